package grants

import (
	"fmt"
	"sync"
)

// Store persists the grant catalogue and application records. The default
// implementation is in-memory; a PostgreSQL implementation is selected when
// DATABASE_URL is configured.
type Store interface {
	AddGrant(g *Grant) error
	Grants() ([]*Grant, error)
	GrantByID(id string) (*Grant, error)

	CreateApplication(app *Application) error
	UpdateApplication(app *Application) error
	ApplicationByID(id string) (*Application, error)
	Applications() ([]*Application, error)

	AddAnswer(ans *Answer) error
	AnswersByApplication(applicationID string) ([]*Answer, error)

	AddComment(c *Comment) error
	CommentsByApplication(applicationID string) ([]*Comment, error)
}

// ErrNotFound is returned when a grant or application ID does not exist.
var ErrNotFound = fmt.Errorf("not found")

// cloneApplication deep-copies an application so callers never share maps or
// slices with the store. Handlers JSON-encode applications after the store
// lock is released; without the copy a concurrent answer update would race
// the encoder.
func cloneApplication(app *Application) *Application {
	out := *app
	out.Collaborators = append([]string(nil), app.Collaborators...)
	out.Documents = append([]string(nil), app.Documents...)
	if app.Answers != nil {
		out.Answers = make(map[string]string, len(app.Answers))
		for q, a := range app.Answers {
			out.Answers[q] = a
		}
	}
	if app.SubmittedAt != nil {
		submitted := *app.SubmittedAt
		out.SubmittedAt = &submitted
	}
	return &out
}

// MemoryStore implements Store with RWMutex-guarded slices. Data lives for
// the process lifetime only. Applications cross the store boundary as deep
// copies in both directions, so a caller holding a previously returned
// application never observes a later update in place.
type MemoryStore struct {
	grants       []*Grant
	applications []*Application
	answers      []*Answer
	comments     []*Comment
	mu           sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AddGrant(g *Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = append(s.grants, g)
	return nil
}

func (s *MemoryStore) Grants() ([]*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Grant, len(s.grants))
	copy(out, s.grants)
	return out, nil
}

func (s *MemoryStore) GrantByID(id string) (*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.grants {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, fmt.Errorf("grant %s: %w", id, ErrNotFound)
}

func (s *MemoryStore) CreateApplication(app *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications = append(s.applications, cloneApplication(app))
	return nil
}

func (s *MemoryStore) UpdateApplication(app *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.applications {
		if existing.ID == app.ID {
			s.applications[i] = cloneApplication(app)
			return nil
		}
	}
	return fmt.Errorf("application %s: %w", app.ID, ErrNotFound)
}

func (s *MemoryStore) ApplicationByID(id string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.applications {
		if app.ID == id {
			return cloneApplication(app), nil
		}
	}
	return nil, fmt.Errorf("application %s: %w", id, ErrNotFound)
}

func (s *MemoryStore) Applications() ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Application, len(s.applications))
	for i, app := range s.applications {
		out[i] = cloneApplication(app)
	}
	return out, nil
}

func (s *MemoryStore) AddAnswer(ans *Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, ans)
	return nil
}

func (s *MemoryStore) AnswersByApplication(applicationID string) ([]*Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Answer
	for _, ans := range s.answers {
		if ans.ApplicationID == applicationID {
			out = append(out, ans)
		}
	}
	return out, nil
}

func (s *MemoryStore) AddComment(c *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, c)
	return nil
}

func (s *MemoryStore) CommentsByApplication(applicationID string) ([]*Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Comment
	for _, c := range s.comments {
		if c.ApplicationID == applicationID {
			out = append(out, c)
		}
	}
	return out, nil
}
