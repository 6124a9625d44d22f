package rules

// RuleType categorises rules so callers can process only the subset that
// applies to a given business event.
type RuleType string

const (
	RuleTypeProjectApproval RuleType = "project_approval"
	RuleTypeGrantMatching   RuleType = "grant_matching"
	RuleTypeUserAccess      RuleType = "user_access"
	RuleTypeNotification    RuleType = "notification"
	RuleTypeWorkflow        RuleType = "workflow"
	RuleTypeCompliance      RuleType = "compliance"
)

// RuleTypes lists every known rule type, in a stable order for API responses.
var RuleTypes = []RuleType{
	RuleTypeProjectApproval,
	RuleTypeGrantMatching,
	RuleTypeUserAccess,
	RuleTypeNotification,
	RuleTypeWorkflow,
	RuleTypeCompliance,
}

// Operator identifies how a condition compares a context field to its value.
type Operator string

const (
	OpEquals       Operator = "equals"
	OpNotEquals    Operator = "not_equals"
	OpGreaterThan  Operator = "greater_than"
	OpLessThan     Operator = "less_than"
	OpGreaterEqual Operator = "greater_equal"
	OpLessEqual    Operator = "less_equal"
	OpContains     Operator = "contains"
	OpNotContains  Operator = "not_contains"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpRegex        Operator = "regex"
	OpExists       Operator = "exists"
	OpNotExists    Operator = "not_exists"
)

// Operators lists every known condition operator.
var Operators = []Operator{
	OpEquals,
	OpNotEquals,
	OpGreaterThan,
	OpLessThan,
	OpGreaterEqual,
	OpLessEqual,
	OpContains,
	OpNotContains,
	OpIn,
	OpNotIn,
	OpRegex,
	OpExists,
	OpNotExists,
}

// ActionType names a built-in action handler.
type ActionType string

const (
	ActionSendNotification ActionType = "send_notification"
	ActionUpdateStatus     ActionType = "update_status"
	ActionRequireApproval  ActionType = "require_approval"
	ActionAssignUser       ActionType = "assign_user"
	ActionCreateTask       ActionType = "create_task"
	ActionUpdateProject    ActionType = "update_project"
	ActionLogEvent         ActionType = "log_event"
	ActionTriggerWorkflow  ActionType = "trigger_workflow"
)

// ActionTypes lists every built-in action type.
var ActionTypes = []ActionType{
	ActionSendNotification,
	ActionUpdateStatus,
	ActionRequireApproval,
	ActionAssignUser,
	ActionCreateTask,
	ActionUpdateProject,
	ActionLogEvent,
	ActionTriggerWorkflow,
}

// Condition is a single field/operator/value test against a context.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// Action is a side-effect request dispatched to a handler when a rule fires.
// Params may contain placeholder text such as "{project_id}"; the engine
// passes params through untouched and leaves interpolation to the caller.
type Action struct {
	Type   ActionType     `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// Rule bundles conditions (all must hold) with the actions to run when they
// do. Expression is an optional CEL predicate evaluated in addition to the
// declarative conditions; it refers to the context through the `ctx` variable.
type Rule struct {
	ID          string      `json:"-"`
	Name        string      `json:"name"`
	Type        RuleType    `json:"rule_type"`
	Description string      `json:"description,omitempty"`
	Conditions  []Condition `json:"conditions"`
	Actions     []Action    `json:"actions"`
	Expression  string      `json:"expression,omitempty"`
}

// Context is the flat snapshot of facts about an event that rules are
// evaluated against. It is supplied fresh per Process call and never stored.
type Context map[string]any

// ActionResult records the outcome of one executed action.
type ActionResult struct {
	Action  ActionType     `json:"action"`
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// TriggerResult is produced for each rule whose conditions all passed.
// Rules that do not fire produce no result at all.
type TriggerResult struct {
	RuleName  string         `json:"rule_name"`
	RuleType  RuleType       `json:"rule_type"`
	Triggered bool           `json:"triggered"`
	Actions   []ActionResult `json:"actions"`
}
