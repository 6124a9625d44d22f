package grants

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL. List-valued and
// map-valued fields are stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed grant store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) AddGrant(g *Grant) error {
	eligibility, err := json.Marshal(g.Eligibility)
	if err != nil {
		return fmt.Errorf("failed to encode eligibility: %w", err)
	}
	requirements, err := json.Marshal(g.Requirements)
	if err != nil {
		return fmt.Errorf("failed to encode requirements: %w", err)
	}
	contact, err := json.Marshal(g.ContactInfo)
	if err != nil {
		return fmt.Errorf("failed to encode contact info: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO grants (id, title, description, amount, deadline, category,
			eligibility, requirements, contact_info, website, source,
			success_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, g.ID, g.Title, g.Description, g.Amount, g.Deadline, string(g.Category),
		eligibility, requirements, contact, g.Website, g.Source,
		g.SuccessScore, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) Grants() ([]*Grant, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, amount, deadline, category,
			eligibility, requirements, contact_info, website, source,
			success_score, created_at, updated_at
		FROM grants
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var out []*Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grants: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GrantByID(id string) (*Grant, error) {
	row := s.db.QueryRow(`
		SELECT id, title, description, amount, deadline, category,
			eligibility, requirements, contact_info, website, source,
			success_score, created_at, updated_at
		FROM grants
		WHERE id = $1
	`, id)

	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("grant %s: %w", id, ErrNotFound)
	}
	return g, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (*Grant, error) {
	var (
		g            Grant
		category     string
		eligibility  []byte
		requirements []byte
		contact      []byte
	)
	err := row.Scan(&g.ID, &g.Title, &g.Description, &g.Amount, &g.Deadline,
		&category, &eligibility, &requirements, &contact, &g.Website,
		&g.Source, &g.SuccessScore, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Category = Category(category)

	if err := json.Unmarshal(eligibility, &g.Eligibility); err != nil {
		return nil, fmt.Errorf("failed to decode eligibility for grant %s: %w", g.ID, err)
	}
	if err := json.Unmarshal(requirements, &g.Requirements); err != nil {
		return nil, fmt.Errorf("failed to decode requirements for grant %s: %w", g.ID, err)
	}
	if err := json.Unmarshal(contact, &g.ContactInfo); err != nil {
		return nil, fmt.Errorf("failed to decode contact info for grant %s: %w", g.ID, err)
	}
	return &g, nil
}

func (s *PostgresStore) CreateApplication(app *Application) error {
	collaborators, err := json.Marshal(app.Collaborators)
	if err != nil {
		return fmt.Errorf("failed to encode collaborators: %w", err)
	}
	answers, err := json.Marshal(app.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	documents, err := json.Marshal(app.Documents)
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO applications (id, grant_id, title, status, priority,
			assigned_to, collaborators, answers, documents, budget, timeline,
			impact_statement, created_at, updated_at, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, app.ID, app.GrantID, app.Title, string(app.Status), string(app.Priority),
		app.AssignedTo, collaborators, answers, documents, app.Budget,
		app.Timeline, app.ImpactStatement, app.CreatedAt, app.UpdatedAt,
		app.SubmittedAt)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateApplication(app *Application) error {
	collaborators, err := json.Marshal(app.Collaborators)
	if err != nil {
		return fmt.Errorf("failed to encode collaborators: %w", err)
	}
	answers, err := json.Marshal(app.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	documents, err := json.Marshal(app.Documents)
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}

	result, err := s.db.Exec(`
		UPDATE applications
		SET title = $1, status = $2, priority = $3, assigned_to = $4,
			collaborators = $5, answers = $6, documents = $7, budget = $8,
			timeline = $9, impact_statement = $10, updated_at = $11,
			submitted_at = $12
		WHERE id = $13
	`, app.Title, string(app.Status), string(app.Priority), app.AssignedTo,
		collaborators, answers, documents, app.Budget, app.Timeline,
		app.ImpactStatement, app.UpdatedAt, app.SubmittedAt, app.ID)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("application %s: %w", app.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ApplicationByID(id string) (*Application, error) {
	row := s.db.QueryRow(`
		SELECT id, grant_id, title, status, priority, assigned_to,
			collaborators, answers, documents, budget, timeline,
			impact_statement, created_at, updated_at, submitted_at
		FROM applications
		WHERE id = $1
	`, id)

	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	return app, err
}

func (s *PostgresStore) Applications() ([]*Application, error) {
	rows, err := s.db.Query(`
		SELECT id, grant_id, title, status, priority, assigned_to,
			collaborators, answers, documents, budget, timeline,
			impact_statement, created_at, updated_at, submitted_at
		FROM applications
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []*Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}
	return out, nil
}

func scanApplication(row rowScanner) (*Application, error) {
	var (
		app           Application
		status        string
		priority      string
		collaborators []byte
		answers       []byte
		documents     []byte
	)
	err := row.Scan(&app.ID, &app.GrantID, &app.Title, &status, &priority,
		&app.AssignedTo, &collaborators, &answers, &documents, &app.Budget,
		&app.Timeline, &app.ImpactStatement, &app.CreatedAt, &app.UpdatedAt,
		&app.SubmittedAt)
	if err != nil {
		return nil, err
	}
	app.Status = Status(status)
	app.Priority = Priority(priority)

	if err := json.Unmarshal(collaborators, &app.Collaborators); err != nil {
		return nil, fmt.Errorf("failed to decode collaborators for application %s: %w", app.ID, err)
	}
	if err := json.Unmarshal(answers, &app.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers for application %s: %w", app.ID, err)
	}
	if err := json.Unmarshal(documents, &app.Documents); err != nil {
		return nil, fmt.Errorf("failed to decode documents for application %s: %w", app.ID, err)
	}
	return &app, nil
}

func (s *PostgresStore) AddAnswer(ans *Answer) error {
	_, err := s.db.Exec(`
		INSERT INTO answers (id, application_id, question, answer, author,
			version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ans.ID, ans.ApplicationID, ans.Question, ans.Answer, ans.Author,
		ans.Version, ans.CreatedAt, ans.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}
	return nil
}

func (s *PostgresStore) AnswersByApplication(applicationID string) ([]*Answer, error) {
	rows, err := s.db.Query(`
		SELECT id, application_id, question, answer, author, version,
			created_at, updated_at
		FROM answers
		WHERE application_id = $1
		ORDER BY created_at ASC
	`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var out []*Answer
	for rows.Next() {
		var ans Answer
		if err := rows.Scan(&ans.ID, &ans.ApplicationID, &ans.Question,
			&ans.Answer, &ans.Author, &ans.Version, &ans.CreatedAt,
			&ans.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		out = append(out, &ans)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddComment(c *Comment) error {
	_, err := s.db.Exec(`
		INSERT INTO comments (id, application_id, author, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.ApplicationID, c.Author, c.Content, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) CommentsByApplication(applicationID string) ([]*Comment, error) {
	rows, err := s.db.Query(`
		SELECT id, application_id, author, content, created_at
		FROM comments
		WHERE application_id = $1
		ORDER BY created_at ASC
	`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var out []*Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ApplicationID, &c.Author, &c.Content,
			&c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return out, nil
}
