package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadow-goose/grants-api/auth"
	"github.com/shadow-goose/grants-api/config"
	"github.com/shadow-goose/grants-api/grants"
	"github.com/shadow-goose/grants-api/rules"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	engine, err := rules.NewEngine(rules.NewMemoryStore())
	require.NoError(t, err)
	rules.SeedDefaults(engine)

	grantStore := grants.NewMemoryStore()
	require.NoError(t, grants.SeedSamples(grantStore))

	cfg := &config.Config{
		Environment: config.Testing,
		SecretKey:   "unit-test-secret",
		Port:        "8080",
		Quality:     config.QualityThresholdsFor(config.Testing),
		Performance: config.PerformanceThresholdsFor(config.Testing),
	}

	return NewServer(cfg, nil, engine, grants.NewService(grantStore), auth.NewService(cfg.SecretKey, auth.DefaultUsers()))
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	body := `{"username":"test","password":"test"}`
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRootAndDebug(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Response-Time"))

	rec = doJSON(t, s, http.MethodGet, "/debug", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "not_set", body["database_url"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, float64(3), deps["grants_count"])
	assert.Equal(t, float64(9), deps["rules_count"])
}

func TestMetricsCountsRequests(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodGet, "/", "", nil)
	rec := doJSON(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	app := body["application"].(map[string]any)
	assert.GreaterOrEqual(t, app["requests_processed"].(float64), float64(2))

	business := body["business"].(map[string]any)
	assert.Equal(t, float64(3), business["total_grants"])
	assert.Equal(t, float64(1), business["total_users"])
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "test", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserInfo(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodGet, "/auth/user", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "test", body["username"])
	assert.Equal(t, "admin", body["role"])

	rec = doJSON(t, s, http.MethodGet, "/auth/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateProject(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/projects", token, map[string]any{
		"name":   "Feature documentary",
		"amount": 15000,
		"status": "draft",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	project := body["project"].(map[string]any)
	assert.Equal(t, float64(1), project["id"])

	// The high-value approval rule exempts admins, and the seeded login is
	// an admin, so nothing fires despite the amount.
	assert.Empty(t, body["rules_processed"])

	rec = doJSON(t, s, http.MethodGet, "/api/projects", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["projects"].([]any), 1)
}

func TestDeploymentWorkflow(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/deployments", token, map[string]any{
		"environment":    "production",
		"branch_name":    "main",
		"commit_message": "hotfix: patch stream crash",
		"priority":       "critical",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	deployment := body["deployment"].(map[string]any)
	assert.Equal(t, "deploy-1", deployment["deployment_id"])
	assert.Equal(t, "pending", deployment["status"])

	// The hotfix rule fires regardless of role; the production-approval
	// rule exempts admins.
	fired := ruleNames(t, body["rules_processed"])
	assert.Contains(t, fired, "Critical Bug Hotfix")
	assert.NotContains(t, fired, "Production Deployment Approval")

	// Status update runs the health-check rules.
	rec = doJSON(t, s, http.MethodPost, "/api/deployments/deploy-1/status", token, map[string]any{
		"status": "failed",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Contains(t, ruleNames(t, body["rules_processed"]), "Deployment Health Check")

	rec = doJSON(t, s, http.MethodGet, "/api/deployments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["total_deployments"])

	rec = doJSON(t, s, http.MethodPost, "/api/deployments/deploy-404/status", token, map[string]any{
		"status": "success",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommitWorkflow(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/commits", token, map[string]any{
		"branch_name":    "feature/rules",
		"commit_message": "add rules engine",
		"pr_id":          "42",
		"files_changed":  []string{"engine.go"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Code review is only demanded of non-admins on main; an admin pushing
	// a feature branch trips nothing.
	body := decode(t, rec)
	assert.Empty(t, body["rules_processed"])

	rec = doJSON(t, s, http.MethodGet, "/api/commits", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["total_commits"])
}

func ruleNames(t *testing.T, processed any) []string {
	t.Helper()
	list, ok := processed.([]any)
	require.True(t, ok)
	names := []string{}
	for _, item := range list {
		names = append(names, item.(map[string]any)["rule_name"].(string))
	}
	return names
}

func TestRuleEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/rules", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(9), decode(t, rec)["total_rules"])

	rec = doJSON(t, s, http.MethodPost, "/api/rules", token, map[string]any{
		"name":       "Big Grant Alert",
		"rule_type":  "grant_matching",
		"conditions": []map[string]any{{"field": "amount", "operator": "greater_than", "value": 40000}},
		"actions":    []map[string]any{{"type": "send_notification", "params": map[string]any{"recipient": "team"}}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rule created successfully", decode(t, rec)["message"])

	rec = doJSON(t, s, http.MethodGet, "/api/rules", token, nil)
	assert.Equal(t, float64(10), decode(t, rec)["total_rules"])

	// Missing conditions is a validation error.
	rec = doJSON(t, s, http.MethodPost, "/api/rules", token, map[string]any{
		"name":      "Broken",
		"rule_type": "workflow",
		"actions":   []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessRulesEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/rules/process", token, map[string]any{
		"context": map[string]any{
			"project_amount": 20000,
			"user_role":      "member",
		},
		"rule_types": []string{"project_approval"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(1), body["total_rules_processed"])
	assert.Contains(t, ruleNames(t, body["results"]), "High Value Project Approval")

	rec = doJSON(t, s, http.MethodPost, "/api/rules/process", token, map[string]any{
		"rule_types": []string{"project_approval"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuleTypesAndExamples(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/rules/types", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["rule_types"].([]any), 6)
	assert.Len(t, body["action_types"].([]any), 8)
	assert.Len(t, body["condition_operators"].([]any), 13)

	rec = doJSON(t, s, http.MethodGet, "/api/rules/examples", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["examples"].([]any), 9)
}

func TestTestRuleEndpointIsIsolated(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/rules/test", "", map[string]any{
		"rule_data": map[string]any{
			"name":       "Trial",
			"rule_type":  "workflow",
			"conditions": []map[string]any{{"field": "ok", "operator": "equals", "value": true}},
			"actions":    []map[string]any{{"type": "log_event"}},
		},
		"context_data": map[string]any{
			"context": map[string]any{"ok": true},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Trial", body["rule_tested"])
	assert.Len(t, body["results"].([]any), 1)

	// The trial rule never lands in the live engine.
	token := login(t, s)
	rec = doJSON(t, s, http.MethodGet, "/api/rules", token, nil)
	assert.Equal(t, float64(9), decode(t, rec)["total_rules"])
}

func TestGrantEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/grants", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(3), body["total_grants"])
	first := body["grants"].([]any)[0].(map[string]any)
	assert.Equal(t, "api", first["data_source"])

	rec = doJSON(t, s, http.MethodGet, "/api/grants/grant_001", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	grant := decode(t, rec)
	assert.Equal(t, "Victorian Creative Industries Grant", grant["title"])
	assert.Equal(t, "api", grant["data_source"])

	rec = doJSON(t, s, http.MethodGet, "/api/grants/grant_999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/grants/search", token, map[string]any{
		"category": "youth",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["total_results"])

	rec = doJSON(t, s, http.MethodPost, "/api/grants/search", token, map[string]any{
		"category": "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/grants/search", token, map[string]any{
		"deadline_before": "next tuesday",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/grants/recommendations", token, map[string]any{
		"preferred_categories": []string{"arts_culture"},
		"min_amount":           10000,
		"max_amount":           60000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	recs := decode(t, rec)
	assert.NotEmpty(t, recs["recommendations"])

	rec = doJSON(t, s, http.MethodGet, "/api/grants/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["categories"].([]any), 10)
}

func TestApplicationEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/grant-applications", token, map[string]any{
		"grant_id":    "grant_001",
		"title":       "Documentary pitch",
		"assigned_to": "test",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode(t, rec)["application"].(map[string]any)
	appID := created["id"].(string)
	assert.Equal(t, "draft", created["status"])

	rec = doJSON(t, s, http.MethodPost, "/api/grant-applications", token, map[string]any{
		"grant_id": "grant_001",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/grant-applications", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["total_applications"])

	rec = doJSON(t, s, http.MethodGet, "/api/grant-applications/"+appID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/grant-applications/"+appID+"/answers", token, map[string]any{
		"question": "What is the impact?",
		"answer":   "Wide reach",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	answer := decode(t, rec)["answer"].(map[string]any)
	assert.Equal(t, float64(1), answer["version"])
	assert.Equal(t, "test", answer["author"])

	rec = doJSON(t, s, http.MethodGet, "/api/grant-applications/"+appID+"/answers", token, nil)
	assert.Equal(t, float64(1), decode(t, rec)["total_answers"])

	rec = doJSON(t, s, http.MethodPost, "/api/grant-applications/"+appID+"/comments", token, map[string]any{
		"content": "Looks good",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/grant-applications/"+appID+"/comments", token, nil)
	assert.Equal(t, float64(1), decode(t, rec)["total_comments"])

	rec = doJSON(t, s, http.MethodPost, "/api/grant-applications/"+appID+"/submit", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/grant-applications/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.Equal(t, float64(1), stats["total_applications"])
	assert.Equal(t, float64(1), stats["submitted"])

	rec = doJSON(t, s, http.MethodPost, "/api/grant-applications/missing/submit", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplicationAccessControl(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	// Assigned to someone else with no collaborators.
	rec := doJSON(t, s, http.MethodPost, "/api/grant-applications", token, map[string]any{
		"grant_id":    "grant_002",
		"title":       "Community project",
		"assigned_to": "someone-else",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	appID := decode(t, rec)["application"].(map[string]any)["id"].(string)

	rec = doJSON(t, s, http.MethodGet, "/api/grant-applications/"+appID, token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestQualityEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/quality/grants", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "grants", body["data_type"])
	assert.Equal(t, "testing", body["environment"])
	assert.Equal(t, "excellent", body["quality_level"])
	assert.Len(t, body["metrics"].([]any), 5)
}

func TestDatabaseStatus(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/database-status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["database_url_configured"])
	assert.Equal(t, true, body["ready_for_database_integration"])
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/projects", "/api/grants", "/api/grant-applications", "/api/rules"} {
		rec := doJSON(t, s, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "path %s", path)
	}
}

func TestConcurrentDeploymentStatusAndList(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/deployments", token, map[string]any{
		"environment": "production",
		"branch_name": "main",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Status updates mutate the stored record while list and update
	// responses encode it; both must serve value snapshots.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			body := bytes.NewBufferString(fmt.Sprintf(`{"status":"wave-%d"}`, i))
			req := httptest.NewRequest(http.MethodPost, "/api/deployments/deploy-1/status", body)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}(i)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/deployments", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	rec = doJSON(t, s, http.MethodGet, "/api/deployments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["total_deployments"])
}

func TestConcurrentApplicationAnswersAndList(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/grant-applications", token, map[string]any{
		"grant_id":    "grant_001",
		"title":       "Youth Stories Documentary",
		"assigned_to": "test",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	appID := decode(t, rec)["application"].(map[string]any)["id"].(string)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			body := bytes.NewBufferString(fmt.Sprintf(`{"question":"q%d","answer":"draft"}`, i))
			req := httptest.NewRequest(http.MethodPost, "/api/grant-applications/"+appID+"/answers", body)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}(i)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/grant-applications", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()
}
