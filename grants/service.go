package grants

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SearchFilters narrows a catalogue search. Zero values mean "no filter".
type SearchFilters struct {
	Category       Category
	MinAmount      float64
	MaxAmount      float64
	DeadlineBefore time.Time
	Keywords       string
}

// Profile describes a user's funding interests for recommendations.
type Profile struct {
	PreferredCategories []Category `json:"preferred_categories"`
	MinAmount           float64    `json:"min_amount"`
	MaxAmount           float64    `json:"max_amount"`
	FocusAreas          []string   `json:"focus_areas"`
}

// Service implements the grant catalogue and application workflows on top of
// a Store.
type Service struct {
	store Store
}

// NewService creates a grant service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// AllGrants returns the full catalogue.
func (s *Service) AllGrants() ([]*Grant, error) {
	return s.store.Grants()
}

// GrantByID looks up a single grant.
func (s *Service) GrantByID(id string) (*Grant, error) {
	return s.store.GrantByID(id)
}

// SearchGrants applies the filters and returns matches sorted by success
// score, highest first.
func (s *Service) SearchGrants(filters SearchFilters) ([]*Grant, error) {
	all, err := s.store.Grants()
	if err != nil {
		return nil, err
	}

	keywords := strings.ToLower(filters.Keywords)

	results := make([]*Grant, 0, len(all))
	for _, g := range all {
		if filters.Category != "" && g.Category != filters.Category {
			continue
		}
		if filters.MinAmount > 0 && g.Amount < filters.MinAmount {
			continue
		}
		if filters.MaxAmount > 0 && g.Amount > filters.MaxAmount {
			continue
		}
		if !filters.DeadlineBefore.IsZero() && g.Deadline.After(filters.DeadlineBefore) {
			continue
		}
		if keywords != "" &&
			!strings.Contains(strings.ToLower(g.Title), keywords) &&
			!strings.Contains(strings.ToLower(g.Description), keywords) {
			continue
		}
		results = append(results, g)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SuccessScore > results[j].SuccessScore
	})
	return results, nil
}

// Recommend scores the catalogue against a user profile and returns up to
// ten grants above the recommendation cutoff, best first. Scoring: preferred
// category 0.3, amount within min/max 0.2 each, deadline within 30 days 0.2
// (60 days 0.1), plus a tenth of the grant's success score.
func (s *Service) Recommend(profile Profile) ([]*Grant, error) {
	all, err := s.store.Grants()
	if err != nil {
		return nil, err
	}

	type scored struct {
		grant *Grant
		score float64
	}

	var recommendations []scored
	now := time.Now()

	for _, g := range all {
		score := 0.0

		for _, cat := range profile.PreferredCategories {
			if g.Category == cat {
				score += 0.3
				break
			}
		}

		if profile.MinAmount > 0 && g.Amount >= profile.MinAmount {
			score += 0.2
		}
		if profile.MaxAmount > 0 && g.Amount <= profile.MaxAmount {
			score += 0.2
		}

		daysUntilDeadline := g.Deadline.Sub(now).Hours() / 24
		if daysUntilDeadline <= 30 {
			score += 0.2
		} else if daysUntilDeadline <= 60 {
			score += 0.1
		}

		score += g.SuccessScore * 0.1

		if score > 0.3 {
			recommendations = append(recommendations, scored{grant: g, score: score})
		}
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].score > recommendations[j].score
	})

	if len(recommendations) > 10 {
		recommendations = recommendations[:10]
	}

	out := make([]*Grant, 0, len(recommendations))
	for _, r := range recommendations {
		out = append(out, r.grant)
	}
	return out, nil
}

// CreateApplication starts a draft application against a grant.
func (s *Service) CreateApplication(grantID, title, assignedTo string, collaborators []string) (*Application, error) {
	if collaborators == nil {
		collaborators = []string{}
	}

	now := time.Now()
	app := &Application{
		ID:            uuid.NewString(),
		GrantID:       grantID,
		Title:         title,
		Status:        StatusDraft,
		Priority:      PriorityMedium,
		AssignedTo:    assignedTo,
		Collaborators: collaborators,
		Answers:       map[string]string{},
		Documents:     []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateApplication(app); err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}

// ApplicationsByUser returns applications the user is assigned to or
// collaborating on.
func (s *Service) ApplicationsByUser(username string) ([]*Application, error) {
	all, err := s.store.Applications()
	if err != nil {
		return nil, err
	}

	out := []*Application{}
	for _, app := range all {
		if app.AssignedTo == username {
			out = append(out, app)
			continue
		}
		for _, c := range app.Collaborators {
			if c == username {
				out = append(out, app)
				break
			}
		}
	}
	return out, nil
}

// AllApplications returns every application regardless of assignee.
func (s *Service) AllApplications() ([]*Application, error) {
	return s.store.Applications()
}

// ApplicationByID looks up a single application.
func (s *Service) ApplicationByID(id string) (*Application, error) {
	return s.store.ApplicationByID(id)
}

// UpdateAnswer saves an answer to an application question. Answers are
// versioned: saving over an existing question appends a new row with the
// version bumped, and the application's answer map tracks the latest text.
func (s *Service) UpdateAnswer(applicationID, question, answerText, author string) (*Answer, error) {
	app, err := s.store.ApplicationByID(applicationID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.AnswersByApplication(applicationID)
	if err != nil {
		return nil, err
	}

	version := 1
	for _, ans := range existing {
		if ans.Question == question && ans.Version >= version {
			version = ans.Version + 1
		}
	}

	now := time.Now()
	answer := &Answer{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		Question:      question,
		Answer:        answerText,
		Author:        author,
		Version:       version,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.AddAnswer(answer); err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	if app.Answers == nil {
		app.Answers = map[string]string{}
	}
	app.Answers[question] = answerText
	app.UpdatedAt = now
	if err := s.store.UpdateApplication(app); err != nil {
		return nil, fmt.Errorf("failed to update application: %w", err)
	}

	return answer, nil
}

// Answers returns every answer row for an application, all versions included.
func (s *Service) Answers(applicationID string) ([]*Answer, error) {
	return s.store.AnswersByApplication(applicationID)
}

// AddComment attaches a comment to an application.
func (s *Service) AddComment(applicationID, content, author string) (*Comment, error) {
	if _, err := s.store.ApplicationByID(applicationID); err != nil {
		return nil, err
	}

	comment := &Comment{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		Author:        author,
		Content:       content,
		CreatedAt:     time.Now(),
	}

	if err := s.store.AddComment(comment); err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}
	return comment, nil
}

// Comments returns every comment on an application.
func (s *Service) Comments(applicationID string) ([]*Comment, error) {
	return s.store.CommentsByApplication(applicationID)
}

// Submit moves an application to submitted and stamps the submission time.
func (s *Service) Submit(applicationID string) error {
	app, err := s.store.ApplicationByID(applicationID)
	if err != nil {
		return err
	}

	now := time.Now()
	app.Status = StatusSubmitted
	app.SubmittedAt = &now
	app.UpdatedAt = now
	return s.store.UpdateApplication(app)
}

// StatsForUser summarises a user's applications by status.
func (s *Service) StatsForUser(username string) (*Stats, error) {
	apps, err := s.ApplicationsByUser(username)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalApplications: len(apps)}
	for _, app := range apps {
		switch app.Status {
		case StatusDraft:
			stats.Draft++
		case StatusInProgress:
			stats.InProgress++
		case StatusSubmitted:
			stats.Submitted++
		case StatusApproved:
			stats.Approved++
		case StatusRejected:
			stats.Rejected++
		case StatusWithdrawn:
			stats.Withdrawn++
		}
	}
	return stats, nil
}
