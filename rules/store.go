package rules

import (
	"fmt"
	"sync"
)

// RuleStore holds rules in insertion order. Evaluation iterates the store in
// that order, so implementations must preserve it. Rules are append-only;
// there is no delete, the catalogue resets with the process (or the table).
type RuleStore interface {
	// Add appends a rule to the store.
	Add(rule *Rule) error

	// All returns every rule in insertion order. The returned slice is a
	// snapshot: mutating it does not affect the store, and a concurrent Add
	// never corrupts iteration over it.
	All() ([]*Rule, error)
}

// MemoryStore implements RuleStore with an in-memory slice guarded by an
// RWMutex. This is the default store; the process starts with the built-in
// catalogue and loses any added rules on restart.
type MemoryStore struct {
	rules []*Rule
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add appends a rule. Duplicate names are allowed; every copy fires
// independently.
func (s *MemoryStore) Add(rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("rule must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = append(s.rules, rule)
	return nil
}

// All returns a copy of the rule list in insertion order.
func (s *MemoryStore) All() ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]*Rule, len(s.rules))
	copy(snapshot, s.rules)
	return snapshot, nil
}
