package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shadow-goose/grants-api/auth"
	"github.com/shadow-goose/grants-api/grants"
)

// grantPayload serialises a grant with the data_source marker clients use to
// distinguish live API data from cached fixtures.
func grantPayload(g *grants.Grant) map[string]any {
	raw, err := json.Marshal(g)
	if err != nil {
		return map[string]any{"data_source": "api"}
	}
	out := map[string]any{}
	json.Unmarshal(raw, &out)
	out["data_source"] = "api"
	return out
}

func grantPayloads(list []*grants.Grant) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, g := range list {
		out = append(out, grantPayload(g))
	}
	return out
}

func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	all, err := s.grants.AllGrants()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch grants", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"grants":       grantPayloads(all),
		"total_grants": len(all),
	})
}

func (s *Server) handleGetGrant(w http.ResponseWriter, r *http.Request) {
	grant, err := s.grants.GrantByID(chi.URLParam(r, "grantId"))
	if err != nil {
		if errors.Is(err, grants.ErrNotFound) {
			respondError(w, http.StatusNotFound, "grant not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to fetch grant", err)
		return
	}
	respondJSON(w, http.StatusOK, grantPayload(grant))
}

func (s *Server) handleSearchGrants(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category       string  `json:"category"`
		MinAmount      float64 `json:"min_amount"`
		MaxAmount      float64 `json:"max_amount"`
		DeadlineBefore string  `json:"deadline_before"`
		Keywords       string  `json:"keywords"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	filters := grants.SearchFilters{
		MinAmount: req.MinAmount,
		MaxAmount: req.MaxAmount,
		Keywords:  req.Keywords,
	}

	if req.Category != "" {
		category := grants.Category(req.Category)
		if _, ok := grants.CategoryDescriptions[category]; !ok {
			respondError(w, http.StatusBadRequest, "invalid category", nil)
			return
		}
		filters.Category = category
	}

	if req.DeadlineBefore != "" {
		deadline, err := time.Parse(time.RFC3339, req.DeadlineBefore)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid deadline format", err)
			return
		}
		filters.DeadlineBefore = deadline
	}

	results, err := s.grants.SearchGrants(filters)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to search grants", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"grants":          grantPayloads(results),
		"total_results":   len(results),
		"filters_applied": req,
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var profile grants.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	recommendations, err := s.grants.Recommend(profile)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get recommendations", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"recommendations":       grantPayloads(recommendations),
		"total_recommendations": len(recommendations),
		"user_profile":          profile,
	})
}

func (s *Server) handleGrantCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"categories":            grants.Categories,
		"category_descriptions": grants.CategoryDescriptions,
	})
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	apps, err := s.grants.ApplicationsByUser(user.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch applications", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"applications":       apps,
		"total_applications": len(apps),
	})
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	app, err := s.grants.ApplicationByID(chi.URLParam(r, "applicationId"))
	if err != nil {
		if errors.Is(err, grants.ErrNotFound) {
			respondError(w, http.StatusNotFound, "application not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to fetch application", err)
		return
	}

	if !canAccess(app, user.Username) {
		respondError(w, http.StatusForbidden, "access denied", nil)
		return
	}

	respondJSON(w, http.StatusOK, app)
}

func canAccess(app *grants.Application, username string) bool {
	if app.AssignedTo == username {
		return true
	}
	for _, c := range app.Collaborators {
		if c == username {
			return true
		}
	}
	return false
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GrantID       string   `json:"grant_id"`
		Title         string   `json:"title"`
		AssignedTo    string   `json:"assigned_to"`
		Collaborators []string `json:"collaborators"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.GrantID == "" || req.Title == "" || req.AssignedTo == "" {
		respondError(w, http.StatusBadRequest, "missing required fields", nil)
		return
	}

	app, err := s.grants.CreateApplication(req.GrantID, req.Title, req.AssignedTo, req.Collaborators)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create application", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":     "Grant application created successfully",
		"application": app,
	})
}

func (s *Server) handleUpdateAnswer(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Question == "" || req.Answer == "" {
		respondError(w, http.StatusBadRequest, "missing required fields", nil)
		return
	}

	answer, err := s.grants.UpdateAnswer(chi.URLParam(r, "applicationId"), req.Question, req.Answer, user.Username)
	if err != nil {
		if errors.Is(err, grants.ErrNotFound) {
			respondError(w, http.StatusNotFound, "application not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update answer", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Answer updated successfully",
		"answer":  answer,
	})
}

func (s *Server) handleListAnswers(w http.ResponseWriter, r *http.Request) {
	answers, err := s.grants.Answers(chi.URLParam(r, "applicationId"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch answers", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"answers":       answers,
		"total_answers": len(answers),
	})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "content is required", nil)
		return
	}

	comment, err := s.grants.AddComment(chi.URLParam(r, "applicationId"), req.Content, user.Username)
	if err != nil {
		if errors.Is(err, grants.ErrNotFound) {
			respondError(w, http.StatusNotFound, "application not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to add comment", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Comment added successfully",
		"comment": comment,
	})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.grants.Comments(chi.URLParam(r, "applicationId"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch comments", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"comments":       comments,
		"total_comments": len(comments),
	})
}

func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	err := s.grants.Submit(chi.URLParam(r, "applicationId"))
	if err != nil {
		if errors.Is(err, grants.ErrNotFound) {
			respondError(w, http.StatusNotFound, "application not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to submit application", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Application submitted successfully",
	})
}

func (s *Server) handleApplicationStats(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	stats, err := s.grants.StatsForUser(user.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch stats", err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
