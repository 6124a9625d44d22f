package rules

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements RuleStore backed by PostgreSQL. A serial position
// column preserves insertion order across restarts so evaluation order stays
// stable. Conditions and actions are stored as JSONB with the same field
// names the HTTP API and the file codec use.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed rule store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Add inserts a rule. Duplicate names are allowed, matching the in-memory
// store's semantics.
func (s *PostgresStore) Add(rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("rule must not be nil")
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("failed to encode actions: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO rules (id, name, rule_type, description, expression, conditions, actions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rule.ID, rule.Name, string(rule.Type), rule.Description, rule.Expression,
		conditions, actions)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

// All returns every rule ordered by insertion position.
func (s *PostgresStore) All() ([]*Rule, error) {
	rows, err := s.db.Query(`
		SELECT id, name, rule_type, description, expression, conditions, actions
		FROM rules
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var stored []*Rule
	for rows.Next() {
		var (
			r          Rule
			ruleType   string
			conditions []byte
			actions    []byte
		)
		if err := rows.Scan(&r.ID, &r.Name, &ruleType, &r.Description,
			&r.Expression, &conditions, &actions); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.Type = RuleType(ruleType)

		if err := json.Unmarshal(conditions, &r.Conditions); err != nil {
			return nil, fmt.Errorf("failed to decode conditions for rule %s: %w", r.ID, err)
		}
		if err := json.Unmarshal(actions, &r.Actions); err != nil {
			return nil, fmt.Errorf("failed to decode actions for rule %s: %w", r.ID, err)
		}

		stored = append(stored, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return stored, nil
}
