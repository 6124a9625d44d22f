package grants

import "time"

// Status tracks a grant application through its lifecycle.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusWithdrawn  Status = "withdrawn"
)

// Statuses lists every application status.
var Statuses = []Status{
	StatusDraft,
	StatusInProgress,
	StatusSubmitted,
	StatusApproved,
	StatusRejected,
	StatusWithdrawn,
}

// Priority ranks how urgently an application needs attention.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Category classifies what a grant funds.
type Category string

const (
	CategoryArtsCulture Category = "arts_culture"
	CategoryCommunity   Category = "community"
	CategoryEducation   Category = "education"
	CategoryEnvironment Category = "environment"
	CategoryHealth      Category = "health"
	CategoryTechnology  Category = "technology"
	CategoryYouth       Category = "youth"
	CategoryIndigenous  Category = "indigenous"
	CategoryDisability  Category = "disability"
	CategoryOther       Category = "other"
)

// Categories lists every grant category.
var Categories = []Category{
	CategoryArtsCulture,
	CategoryCommunity,
	CategoryEducation,
	CategoryEnvironment,
	CategoryHealth,
	CategoryTechnology,
	CategoryYouth,
	CategoryIndigenous,
	CategoryDisability,
	CategoryOther,
}

// CategoryDescriptions maps each category to the copy shown in client forms.
var CategoryDescriptions = map[Category]string{
	CategoryArtsCulture: "Arts and cultural projects",
	CategoryCommunity:   "Community development and social impact",
	CategoryEducation:   "Educational programs and initiatives",
	CategoryEnvironment: "Environmental and sustainability projects",
	CategoryHealth:      "Health and wellbeing programs",
	CategoryTechnology:  "Technology and innovation projects",
	CategoryYouth:       "Youth-focused initiatives",
	CategoryIndigenous:  "Indigenous community projects",
	CategoryDisability:  "Disability support and inclusion",
	CategoryOther:       "Other project types",
}

// Grant is a funding opportunity in the catalogue.
type Grant struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Amount       float64           `json:"amount"`
	Deadline     time.Time         `json:"deadline"`
	Category     Category          `json:"category"`
	Eligibility  []string          `json:"eligibility"`
	Requirements []string          `json:"requirements"`
	ContactInfo  map[string]string `json:"contact_info"`
	Website      string            `json:"website"`
	Source       string            `json:"source"`
	SuccessScore float64           `json:"success_score"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Application is one team's submission against a grant.
type Application struct {
	ID              string            `json:"id"`
	GrantID         string            `json:"grant_id"`
	Title           string            `json:"title"`
	Status          Status            `json:"status"`
	Priority        Priority          `json:"priority"`
	AssignedTo      string            `json:"assigned_to"`
	Collaborators   []string          `json:"collaborators"`
	Answers         map[string]string `json:"answers"`
	Documents       []string          `json:"documents"`
	Budget          float64           `json:"budget"`
	Timeline        string            `json:"timeline"`
	ImpactStatement string            `json:"impact_statement"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	SubmittedAt     *time.Time        `json:"submitted_at,omitempty"`
}

// Answer is one versioned response to an application question. Edits never
// overwrite: each save appends a new row with the version bumped.
type Answer struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	Author        string    `json:"author"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Comment is freeform discussion attached to an application.
type Comment struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	Author        string    `json:"author"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

// Stats summarises a user's applications by status.
type Stats struct {
	TotalApplications int `json:"total_applications"`
	Draft             int `json:"draft"`
	InProgress        int `json:"in_progress"`
	Submitted         int `json:"submitted"`
	Approved          int `json:"approved"`
	Rejected          int `json:"rejected"`
	Withdrawn         int `json:"withdrawn"`
}
