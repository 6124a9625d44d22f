package rules

import "time"

// DefaultRules returns the built-in rule catalogue the engine is seeded with
// at startup. These are sample policy: project approval thresholds, grant
// deadline alerts, user onboarding, and the deployment workflow gates.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			Name:        "High Value Project Approval",
			Type:        RuleTypeProjectApproval,
			Description: "Require admin approval for projects over $10,000",
			Conditions: []Condition{
				{Field: "project_amount", Operator: OpGreaterThan, Value: 10000},
				{Field: "user_role", Operator: OpNotEquals, Value: "admin"},
			},
			Actions: []Action{
				{Type: ActionRequireApproval, Params: map[string]any{
					"approver_role": "admin",
					"entity_type":   "project",
					"entity_id":     "{project_id}",
				}},
				{Type: ActionSendNotification, Params: map[string]any{
					"type":      "email",
					"recipient": "admin@shadow-goose.com",
					"message":   "High value project requires approval",
				}},
			},
		},
		{
			Name:        "Grant Deadline Alert",
			Type:        RuleTypeNotification,
			Description: "Send alerts for grants closing within 7 days (window fixed when the catalogue is seeded)",
			Conditions: []Condition{
				// The cutoff is a literal computed at seed time, so the
				// 7-day window is anchored to process start. Re-seed or
				// re-add the rule to move the window.
				{Field: "grant_deadline", Operator: OpLessEqual, Value: time.Now().Add(7 * 24 * time.Hour).Format(time.RFC3339)},
				{Field: "grant_status", Operator: OpEquals, Value: "active"},
			},
			Actions: []Action{
				{Type: ActionSendNotification, Params: map[string]any{
					"type":      "slack",
					"recipient": "#grants",
					"message":   "Grant {grant_name} closes in 7 days",
				}},
			},
		},
		{
			Name:        "New User Assignment",
			Type:        RuleTypeUserAccess,
			Description: "Assign new users to default projects",
			Conditions: []Condition{
				{Field: "user_role", Operator: OpEquals, Value: "user"},
				{Field: "user_projects", Operator: OpEquals, Value: 0},
			},
			Actions: []Action{
				{Type: ActionAssignUser, Params: map[string]any{
					"user_id":     "{user_id}",
					"role":        "member",
					"entity_type": "project",
					"entity_id":   "default",
				}},
			},
		},
		{
			Name:        "Production Deployment Approval",
			Type:        RuleTypeWorkflow,
			Description: "Require admin approval for production deployments",
			Conditions: []Condition{
				{Field: "deployment_environment", Operator: OpEquals, Value: "production"},
				{Field: "user_role", Operator: OpNotEquals, Value: "admin"},
			},
			Actions: []Action{
				{Type: ActionRequireApproval, Params: map[string]any{
					"approver_role": "admin",
					"entity_type":   "deployment",
					"entity_id":     "{deployment_id}",
				}},
				{Type: ActionSendNotification, Params: map[string]any{
					"type":      "slack",
					"recipient": "#deployments",
					"message":   "Production deployment requires admin approval",
				}},
				{Type: ActionLogEvent, Params: map[string]any{
					"event_type": "deployment_approval_required",
					"message":    "Production deployment pending approval",
					"level":      "warning",
				}},
			},
		},
		{
			Name:        "Staging Auto-Deploy",
			Type:        RuleTypeWorkflow,
			Description: "Automatically deploy to staging on main branch push",
			Conditions: []Condition{
				{Field: "branch_name", Operator: OpEquals, Value: "main"},
				{Field: "deployment_environment", Operator: OpEquals, Value: "staging"},
				{Field: "commit_message", Operator: OpContains, Value: "feat:"},
			},
			Actions: []Action{
				{Type: ActionTriggerWorkflow, Params: map[string]any{
					"workflow_name": "staging_deploy",
					"workflow_params": map[string]any{
						"environment": "staging",
						"auto_deploy": true,
					},
				}},
				{Type: ActionSendNotification, Params: map[string]any{
					"type":      "slack",
					"recipient": "#deployments",
					"message":   "Auto-deploying to staging: {commit_message}",
				}},
			},
		},
		{
			Name:        "Critical Bug Hotfix",
			Type:        RuleTypeWorkflow,
			Description: "Emergency deployment for critical bug fixes",
			Conditions: []Condition{
				{Field: "commit_message", Operator: OpContains, Value: "hotfix:"},
				{Field: "priority", Operator: OpEquals, Value: "critical"},
			},
			Actions: []Action{
				{Type: ActionTriggerWorkflow, Params: map[string]any{
					"workflow_name": "emergency_deploy",
					"workflow_params": map[string]any{
						"environment": "production",
						"skip_tests":  true,
						"emergency":   true,
					},
				}},
				{Type: ActionSendNotification, Params: map[string]any{
					"type":      "slack",
					"recipient": "#alerts",
					"message":   "CRITICAL: Emergency deployment for hotfix",
				}},
				{Type: ActionLogEvent, Params: map[string]any{
					"event_type": "emergency_deployment",
					"message":    "Critical hotfix deployment initiated",
					"level":      "critical",
				}},
			},
		},
		{
			Name:        "Deployment Health Check",
			Type:        RuleTypeWorkflow,
			Description: "Monitor deployment health and rollback if needed",
			Conditions: []Condition{
				{Field: "deployment_status", Operator: OpEquals, Value: "failed"},
				{Field: "deployment_environment", Operator: OpEquals, Value: "production"},
			},
			Actions: []Action{
				{Type: ActionTriggerWorkflow, Params: map[string]any{
					"workflow_name": "rollback_deployment",
					"workflow_params": map[string]any{
						"environment": "production",
						"reason":      "health_check_failed",
					},
				}},
				{Type: ActionSendNotification, Params: map[string]any{
					"type":      "slack",
					"recipient": "#alerts",
					"message":   "DEPLOYMENT FAILED: Initiating rollback",
				}},
				{Type: ActionLogEvent, Params: map[string]any{
					"event_type": "deployment_rollback",
					"message":    "Production deployment failed, rolling back",
					"level":      "error",
				}},
			},
		},
		{
			Name:        "Code Review Required",
			Type:        RuleTypeWorkflow,
			Description: "Require code review for non-admin commits",
			Conditions: []Condition{
				{Field: "user_role", Operator: OpNotEquals, Value: "admin"},
				{Field: "branch_name", Operator: OpEquals, Value: "main"},
			},
			Actions: []Action{
				{Type: ActionRequireApproval, Params: map[string]any{
					"approver_role": "admin",
					"entity_type":   "pull_request",
					"entity_id":     "{pr_id}",
				}},
				{Type: ActionSendNotification, Params: map[string]any{
					"type":      "slack",
					"recipient": "#code-review",
					"message":   "Code review required for main branch commit",
				}},
			},
		},
		{
			Name:        "Security Scan on Deploy",
			Type:        RuleTypeCompliance,
			Description: "Run security scans before production deployment",
			Conditions: []Condition{
				{Field: "deployment_environment", Operator: OpEquals, Value: "production"},
				{Field: "security_scan_status", Operator: OpNotEquals, Value: "passed"},
			},
			Actions: []Action{
				{Type: ActionTriggerWorkflow, Params: map[string]any{
					"workflow_name": "security_scan",
					"workflow_params": map[string]any{
						"scan_type":    "full",
						"block_deploy": true,
					},
				}},
				{Type: ActionSendNotification, Params: map[string]any{
					"type":      "slack",
					"recipient": "#security",
					"message":   "Security scan required before production deploy",
				}},
			},
		},
	}
}

// SeedDefaults adds the default catalogue to an engine. Rules that fail
// validation are skipped; seeding never aborts startup.
func SeedDefaults(en *Engine) {
	for _, rule := range DefaultRules() {
		_ = en.AddRule(rule)
	}
}
