package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Engine is the entry point most callers use: it validates and stores rules,
// evaluates them against a context, and executes the actions of the rules
// that fire. Evaluation is synchronous and stateless across calls; the only
// shared state is the store, which is safe for concurrent Add and Process.
type Engine struct {
	store     RuleStore
	evaluator *Evaluator
	executor  *Executor

	env      *cel.Env
	programs map[string]cel.Program // rule ID -> compiled expression
	mu       sync.RWMutex
}

// NewEngine creates an engine around the given store. The CEL environment
// exposes the evaluation context as the single dynamic variable `ctx`.
func NewEngine(store RuleStore) (*Engine, error) {
	env, err := cel.NewEnv(cel.Variable("ctx", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	en := &Engine{
		store:     store,
		evaluator: NewEvaluator(),
		executor:  NewExecutor(),
		env:       env,
		programs:  make(map[string]cel.Program),
	}

	if err := en.compileStored(); err != nil {
		return nil, fmt.Errorf("failed to compile stored rules: %w", err)
	}

	return en, nil
}

// Executor exposes the action executor so callers can register real handlers
// in place of the built-in stubs.
func (en *Engine) Executor() *Executor {
	return en.executor
}

// AddRule validates a rule, compiles its optional expression, and appends it
// to the store. Duplicate names are allowed. The error carries the reason a
// rule was rejected; nothing is partially added on failure.
func (en *Engine) AddRule(rule *Rule) error {
	if err := validateRule(rule); err != nil {
		log.Error().Err(err).Msg("failed to add rule")
		return err
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	if rule.Expression != "" {
		if err := en.compileExpression(rule.ID, rule.Expression); err != nil {
			log.Error().Err(err).Str("rule", rule.Name).Msg("failed to add rule")
			return err
		}
	}

	if err := en.store.Add(rule); err != nil {
		en.mu.Lock()
		delete(en.programs, rule.ID)
		en.mu.Unlock()
		return err
	}

	log.Info().Str("rule", rule.Name).Str("rule_type", string(rule.Type)).Msg("added rule")
	return nil
}

// Rules returns the stored rules in insertion order.
func (en *Engine) Rules() ([]*Rule, error) {
	return en.store.All()
}

// Process evaluates every applicable rule against the context, in insertion
// order, and returns a trigger result for each rule that fired. Rules whose
// conditions fail are silently omitted. When ruleTypes is non-empty, rules of
// other types are skipped before evaluation.
func (en *Engine) Process(ctx Context, ruleTypes []RuleType) ([]TriggerResult, error) {
	stored, err := en.store.All()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot rules: %w", err)
	}

	results := []TriggerResult{}
	for _, rule := range stored {
		if len(ruleTypes) > 0 && !containsType(ruleTypes, rule.Type) {
			continue
		}

		if !en.evaluator.EvaluateAll(rule.Conditions, ctx) {
			continue
		}

		if rule.Expression != "" && !en.evalExpression(rule, ctx) {
			continue
		}

		results = append(results, TriggerResult{
			RuleName:  rule.Name,
			RuleType:  rule.Type,
			Triggered: true,
			Actions:   en.executor.ExecuteAll(rule.Actions, ctx),
		})
	}

	return results, nil
}

// LoadFile reads a JSON array of rules and adds each through AddRule. Rules
// that fail validation are skipped with a log line; the file succeeding as a
// whole only requires that it parses.
func (en *Engine) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rules file: %w", err)
	}

	var loaded []*Rule
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse rules file: %w", err)
	}

	for _, rule := range loaded {
		if err := en.AddRule(rule); err != nil {
			log.Warn().Err(err).Str("rule", rule.Name).Msg("skipping rule from file")
		}
	}
	return nil
}

// SaveFile writes the current rules as an indented JSON array, in insertion
// order, using the same field names the HTTP API accepts.
func (en *Engine) SaveFile(path string) error {
	stored, err := en.store.All()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write rules file: %w", err)
	}
	return nil
}

// compileStored compiles the expressions of rules already in the store, for
// engines constructed over a pre-populated (e.g. database-backed) store.
func (en *Engine) compileStored() error {
	stored, err := en.store.All()
	if err != nil {
		return err
	}

	for _, rule := range stored {
		if rule.Expression == "" {
			continue
		}
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		if err := en.compileExpression(rule.ID, rule.Expression); err != nil {
			return fmt.Errorf("rule %q: %w", rule.Name, err)
		}
	}
	return nil
}

func (en *Engine) compileExpression(ruleID, expression string) error {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("expression compile error: %w", issues.Err())
	}

	// Cost limit keeps a pathological expression from stalling evaluation.
	prog, err := en.env.Program(ast, cel.CostLimit(1000000))
	if err != nil {
		return fmt.Errorf("expression program error: %w", err)
	}

	en.mu.Lock()
	en.programs[ruleID] = prog
	en.mu.Unlock()
	return nil
}

// evalExpression runs a rule's compiled expression against the context. Any
// failure (missing program, evaluation error, non-boolean result) means the
// rule does not fire, mirroring condition-evaluation failures.
func (en *Engine) evalExpression(rule *Rule, ctx Context) bool {
	en.mu.RLock()
	prog, ok := en.programs[rule.ID]
	en.mu.RUnlock()

	if !ok {
		log.Warn().Str("rule", rule.Name).Msg("expression not compiled")
		return false
	}

	out, _, err := prog.Eval(map[string]any{"ctx": map[string]any(ctx)})
	if err != nil {
		log.Error().Err(err).Str("rule", rule.Name).Msg("expression evaluation failed")
		return false
	}

	matched, ok := out.Value().(bool)
	return ok && matched
}

func validateRule(rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("rule must not be nil")
	}
	if rule.Name == "" {
		return fmt.Errorf("missing required field: name")
	}
	if rule.Type == "" {
		return fmt.Errorf("missing required field: rule_type")
	}
	if rule.Conditions == nil {
		return fmt.Errorf("missing required field: conditions")
	}
	if rule.Actions == nil {
		return fmt.Errorf("missing required field: actions")
	}
	return nil
}

func containsType(types []RuleType, t RuleType) bool {
	for _, rt := range types {
		if rt == t {
			return true
		}
	}
	return false
}
