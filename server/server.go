// Package server wires the HTTP surface: authentication, project and
// deployment workflows, the rules engine endpoints, grants and applications,
// and the monitoring endpoints.
package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/shadow-goose/grants-api/auth"
	"github.com/shadow-goose/grants-api/config"
	"github.com/shadow-goose/grants-api/grants"
	"github.com/shadow-goose/grants-api/quality"
	"github.com/shadow-goose/grants-api/rules"
)

const version = "4.5.0"

type Server struct {
	cfg       *config.Config
	db        *sql.DB // nil when running on the in-memory stores
	engine    *rules.Engine
	grants    *grants.Service
	auth      *auth.Service
	validator *quality.Validator
	router    *chi.Mux

	startTime    time.Time
	requestCount atomic.Int64

	// Process-local workflow state, as in the original service.
	mu          sync.Mutex
	projects    []*Project
	deployments []*Deployment
	commits     []*Commit
}

// NewServer assembles the HTTP server over already-constructed services. db
// may be nil; it only backs the health and database-status endpoints.
func NewServer(cfg *config.Config, db *sql.DB, engine *rules.Engine, grantSvc *grants.Service, authSvc *auth.Service) *Server {
	s := &Server{
		cfg:       cfg,
		db:        db,
		engine:    engine,
		grants:    grantSvc,
		auth:      authSvc,
		validator: quality.NewValidator(cfg.Environment),
		startTime: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.countRequests)

	r.Get("/", s.handleRoot)
	r.Get("/debug", s.handleDebug)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Post("/auth/login", s.handleLogin)
	r.With(s.auth.Middleware).Get("/auth/user", s.handleUserInfo)

	r.Get("/api/database-status", s.handleDatabaseStatus)
	r.Get("/api/grants/categories", s.handleGrantCategories)
	r.Get("/api/rules/types", s.handleRuleTypes)
	r.Get("/api/rules/examples", s.handleRuleExamples)
	r.Post("/api/rules/test", s.handleTestRule)

	// Everything else requires a valid token.
	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Get("/api/projects", s.handleListProjects)
		r.Post("/api/projects", s.handleCreateProject)

		r.Post("/api/deployments", s.handleCreateDeployment)
		r.Get("/api/deployments", s.handleListDeployments)
		r.Post("/api/deployments/{deploymentId}/status", s.handleUpdateDeploymentStatus)

		r.Post("/api/commits", s.handleCreateCommit)
		r.Get("/api/commits", s.handleListCommits)

		r.Get("/api/rules", s.handleListRules)
		r.Post("/api/rules", s.handleCreateRule)
		r.Post("/api/rules/process", s.handleProcessRules)

		r.Get("/api/grants", s.handleListGrants)
		r.Post("/api/grants/search", s.handleSearchGrants)
		r.Post("/api/grants/recommendations", s.handleRecommendations)
		r.Get("/api/grants/{grantId}", s.handleGetGrant)

		r.Get("/api/grant-applications", s.handleListApplications)
		r.Get("/api/grant-applications/stats", s.handleApplicationStats)
		r.Post("/api/grant-applications", s.handleCreateApplication)
		r.Route("/api/grant-applications/{applicationId}", func(r chi.Router) {
			r.Get("/", s.handleGetApplication)
			r.Get("/answers", s.handleListAnswers)
			r.Post("/answers", s.handleUpdateAnswer)
			r.Get("/comments", s.handleListComments)
			r.Post("/comments", s.handleAddComment)
			r.Post("/submit", s.handleSubmitApplication)
		})

		r.Get("/api/quality/grants", s.handleGrantQuality)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// countRequests tracks the request counter for /metrics, stamps
// X-Response-Time, and logs each request.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requestCount.Add(1)
		start := time.Now()

		tw := &timingWriter{ResponseWriter: w, start: start, status: http.StatusOK}
		next.ServeHTTP(tw, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status_code", tw.status).
			Dur("response_time", time.Since(start)).
			Msg("request processed")
	})
}

// timingWriter writes the response-time header just before the status line
// goes out, which is the last point headers can still change.
type timingWriter struct {
	http.ResponseWriter
	start  time.Time
	status int
	wrote  bool
}

func (t *timingWriter) WriteHeader(code int) {
	if !t.wrote {
		t.wrote = true
		t.status = code
		t.Header().Set("X-Response-Time", time.Since(t.start).String())
	}
	t.ResponseWriter.WriteHeader(code)
}

func (t *timingWriter) Write(b []byte) (int, error) {
	if !t.wrote {
		t.WriteHeader(http.StatusOK)
	}
	return t.ResponseWriter.Write(b)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message":  "Shadow Goose API v" + version,
		"status":   "running",
		"features": []string{"auth", "projects", "rules_engine", "deployment_workflows"},
	})
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	db := "not_set"
	if s.cfg.DatabaseURL != "" {
		db = "set"
	}
	secret := "not_set"
	if s.cfg.SecretKey != "" && s.cfg.SecretKey != "your-secret-key-here" {
		secret = "set"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"version":      version,
		"database_url": db,
		"secret_key":   secret,
		"environment":  s.cfg.Info(),
		"features": []string{
			"in_memory_storage",
			"project_management",
			"user_management",
			"database_ready",
			"rules_engine",
			"deployment_workflows",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	status := "healthy"
	checks := map[string]string{
		"api":            "healthy",
		"grants_service": "healthy",
		"rules_engine":   "healthy",
		"authentication": "healthy",
	}
	dependencies := map[string]any{}

	if all, err := s.grants.AllGrants(); err != nil {
		checks["grants_service"] = "unhealthy"
		dependencies["grants_error"] = err.Error()
		status = "degraded"
	} else {
		dependencies["grants_count"] = len(all)
	}

	if stored, err := s.engine.Rules(); err != nil {
		checks["rules_engine"] = "unhealthy"
		dependencies["rules_error"] = err.Error()
		status = "degraded"
	} else {
		dependencies["rules_count"] = len(stored)
	}

	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			dependencies["database_error"] = err.Error()
			status = "degraded"
		} else {
			checks["database"] = "healthy"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, map[string]any{
		"status":       status,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"version":      version,
		"environment":  string(s.cfg.Environment),
		"checks":       checks,
		"dependencies": dependencies,
		"performance": map[string]any{
			"response_time_ms": float64(time.Since(start).Microseconds()) / 1000,
		},
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	totalGrants := 0
	if all, err := s.grants.AllGrants(); err == nil {
		totalGrants = len(all)
	}
	totalApplications := 0
	if apps, err := s.grants.AllApplications(); err == nil {
		totalApplications = len(apps)
	}

	s.mu.Lock()
	totalProjects := len(s.projects)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"application": map[string]any{
			"version":            version,
			"uptime_seconds":     time.Since(s.startTime).Seconds(),
			"requests_processed": s.requestCount.Load(),
		},
		"business": map[string]any{
			"total_grants":       totalGrants,
			"total_applications": totalApplications,
			"total_users":        len(s.auth.Users()),
			"total_projects":     totalProjects,
		},
	})
}

func (s *Server) handleDatabaseStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"database_url_configured":        s.cfg.DatabaseURL != "",
		"database_url_length":            len(s.cfg.DatabaseURL),
		"ready_for_database_integration": true,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	user, token, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
}

func (s *Server) handleGrantQuality(w http.ResponseWriter, r *http.Request) {
	catalogue, err := s.grants.AllGrants()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch grants", err)
		return
	}
	respondJSON(w, http.StatusOK, s.validator.ValidateGrants(catalogue))
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

// requireAdmin enforces the admin-only endpoints. It returns the user when
// the check passes and has already written the response when it fails.
func requireAdmin(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || !user.IsAdmin() {
		respondError(w, http.StatusForbidden, "admin access required", nil)
		return nil, false
	}
	return user, true
}
