package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shadow-goose/grants-api/auth"
	"github.com/shadow-goose/grants-api/rules"
)

// Project is a production the team is pursuing funding for.
type Project struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Amount      float64   `json:"amount"`
	CreatedBy   int       `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Deployment tracks one release through the deployment workflow rules.
type Deployment struct {
	ID                 int        `json:"id"`
	Environment        string     `json:"environment"`
	BranchName         string     `json:"branch_name"`
	CommitMessage      string     `json:"commit_message"`
	UserRole           string     `json:"user_role"`
	DeploymentID       string     `json:"deployment_id"`
	Priority           string     `json:"priority"`
	SecurityScanStatus string     `json:"security_scan_status"`
	Status             string     `json:"status"`
	CreatedBy          int        `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// Commit records a pushed commit for the review and security rules.
type Commit struct {
	ID            int       `json:"id"`
	BranchName    string    `json:"branch_name"`
	CommitMessage string    `json:"commit_message"`
	UserRole      string    `json:"user_role"`
	PRID          string    `json:"pr_id"`
	FilesChanged  []string  `json:"files_changed"`
	Status        string    `json:"status"`
	CreatedBy     int       `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	s.mu.Lock()
	owned := []*Project{}
	for _, p := range s.projects {
		if p.CreatedBy == user.ID {
			owned = append(owned, p)
		}
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"projects": owned})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Status      string  `json:"status"`
		Amount      float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.Status == "" {
		req.Status = "draft"
	}

	now := time.Now().UTC()
	s.mu.Lock()
	project := &Project{
		ID:          len(s.projects) + 1,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Amount:      req.Amount,
		CreatedBy:   user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.projects = append(s.projects, project)
	s.mu.Unlock()

	results, err := s.engine.Process(rules.Context{
		"project_id":     project.ID,
		"project_amount": req.Amount,
		"user_role":      user.Role,
		"project_status": req.Status,
		"user_id":        user.ID,
	}, []rules.RuleType{rules.RuleTypeProjectApproval})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create project", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"project":         project,
		"rules_processed": results,
	})
}

func (s *Server) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		Environment        string `json:"environment"`
		BranchName         string `json:"branch_name"`
		CommitMessage      string `json:"commit_message"`
		DeploymentID       string `json:"deployment_id"`
		Priority           string `json:"priority"`
		SecurityScanStatus string `json:"security_scan_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Environment == "" || req.BranchName == "" {
		respondError(w, http.StatusBadRequest, "environment and branch_name are required", nil)
		return
	}
	if req.Priority == "" {
		req.Priority = "normal"
	}
	if req.SecurityScanStatus == "" {
		req.SecurityScanStatus = "pending"
	}

	s.mu.Lock()
	if req.DeploymentID == "" {
		req.DeploymentID = fmt.Sprintf("deploy-%d", len(s.deployments)+1)
	}
	deployment := &Deployment{
		ID:                 len(s.deployments) + 1,
		Environment:        req.Environment,
		BranchName:         req.BranchName,
		CommitMessage:      req.CommitMessage,
		UserRole:           user.Role,
		DeploymentID:       req.DeploymentID,
		Priority:           req.Priority,
		SecurityScanStatus: req.SecurityScanStatus,
		Status:             "pending",
		CreatedBy:          user.ID,
		CreatedAt:          time.Now().UTC(),
	}
	s.deployments = append(s.deployments, deployment)
	// Encode a value snapshot: a concurrent status update mutates the
	// stored record, and the JSON encoder must not observe it.
	snapshot := *deployment
	s.mu.Unlock()

	results, err := s.engine.Process(rules.Context{
		"deployment_environment": req.Environment,
		"branch_name":            req.BranchName,
		"commit_message":         req.CommitMessage,
		"user_role":              user.Role,
		"deployment_id":          snapshot.DeploymentID,
		"priority":               req.Priority,
		"security_scan_status":   req.SecurityScanStatus,
		"deployment_status":      "pending",
	}, []rules.RuleType{rules.RuleTypeWorkflow})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create deployment", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"deployment":      snapshot,
		"rules_processed": results,
	})
}

func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	s.mu.Lock()
	deployments := make([]Deployment, len(s.deployments))
	for i, d := range s.deployments {
		deployments[i] = *d
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"deployments":       deployments,
		"total_deployments": len(deployments),
	})
}

func (s *Server) handleUpdateDeploymentStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	deploymentID := chi.URLParam(r, "deploymentId")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		respondError(w, http.StatusBadRequest, "status is required", nil)
		return
	}

	s.mu.Lock()
	var deployment *Deployment
	for _, d := range s.deployments {
		if d.DeploymentID == deploymentID {
			deployment = d
			break
		}
	}
	if deployment == nil {
		s.mu.Unlock()
		respondError(w, http.StatusNotFound, "deployment not found", nil)
		return
	}
	deployment.Status = req.Status
	now := time.Now().UTC()
	deployment.UpdatedAt = &now
	snapshot := *deployment
	s.mu.Unlock()

	results, err := s.engine.Process(rules.Context{
		"deployment_environment": snapshot.Environment,
		"deployment_status":      req.Status,
		"deployment_id":          deploymentID,
		"user_role":              user.Role,
	}, []rules.RuleType{rules.RuleTypeWorkflow})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update deployment", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"deployment":      snapshot,
		"rules_processed": results,
	})
}

func (s *Server) handleCreateCommit(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		BranchName    string   `json:"branch_name"`
		CommitMessage string   `json:"commit_message"`
		PRID          string   `json:"pr_id"`
		FilesChanged  []string `json:"files_changed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.BranchName == "" {
		respondError(w, http.StatusBadRequest, "branch_name is required", nil)
		return
	}
	if req.FilesChanged == nil {
		req.FilesChanged = []string{}
	}

	s.mu.Lock()
	commit := &Commit{
		ID:            len(s.commits) + 1,
		BranchName:    req.BranchName,
		CommitMessage: req.CommitMessage,
		UserRole:      user.Role,
		PRID:          req.PRID,
		FilesChanged:  req.FilesChanged,
		Status:        "pending",
		CreatedBy:     user.ID,
		CreatedAt:     time.Now().UTC(),
	}
	s.commits = append(s.commits, commit)
	s.mu.Unlock()

	results, err := s.engine.Process(rules.Context{
		"branch_name":    req.BranchName,
		"commit_message": req.CommitMessage,
		"user_role":      user.Role,
		"pr_id":          req.PRID,
		"files_changed":  req.FilesChanged,
	}, []rules.RuleType{rules.RuleTypeWorkflow})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create commit", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"commit":          commit,
		"rules_processed": results,
	})
}

func (s *Server) handleListCommits(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	s.mu.Lock()
	commits := append([]*Commit{}, s.commits...)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"commits":       commits,
		"total_commits": len(commits),
	})
}
