package server

import (
	"encoding/json"
	"net/http"

	"github.com/shadow-goose/grants-api/rules"
)

type ruleRequest struct {
	Name        string            `json:"name"`
	Type        rules.RuleType    `json:"rule_type"`
	Description string            `json:"description"`
	Conditions  []rules.Condition `json:"conditions"`
	Actions     []rules.Action    `json:"actions"`
	Expression  string            `json:"expression,omitempty"`
}

func (req *ruleRequest) toRule() *rules.Rule {
	return &rules.Rule{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
		Expression:  req.Expression,
	}
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	stored, err := s.engine.Rules()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rules":       stored,
		"total_rules": len(stored),
	})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule := req.toRule()
	if err := s.engine.AddRule(rule); err != nil {
		respondError(w, http.StatusBadRequest, "failed to create rule", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Rule created successfully",
		"rule":    rule,
	})
}

func (s *Server) handleProcessRules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Context   rules.Context    `json:"context"`
		RuleTypes []rules.RuleType `json:"rule_types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Context == nil {
		respondError(w, http.StatusBadRequest, "context is required", nil)
		return
	}

	results, err := s.engine.Process(req.Context, req.RuleTypes)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to process rules", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"results":               results,
		"total_rules_processed": len(results),
	})
}

func (s *Server) handleRuleTypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"rule_types":          rules.RuleTypes,
		"action_types":        rules.ActionTypes,
		"condition_operators": rules.Operators,
	})
}

func (s *Server) handleRuleExamples(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"examples": rules.DefaultRules(),
	})
}

// handleTestRule runs a candidate rule against a context in a throwaway
// engine, so a draft never touches the live rule set.
func (s *Server) handleTestRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rule    ruleRequest `json:"rule_data"`
		Context struct {
			Context rules.Context `json:"context"`
		} `json:"context_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	testEngine, err := rules.NewEngine(rules.NewMemoryStore())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build test engine", err)
		return
	}

	if err := testEngine.AddRule(req.Rule.toRule()); err != nil {
		respondError(w, http.StatusBadRequest, "failed to add rule", err)
		return
	}

	results, err := testEngine.Process(req.Context.Context, nil)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to process rules", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rule_tested": req.Rule.Name,
		"context":     req.Context.Context,
		"results":     results,
	})
}
