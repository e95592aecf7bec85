package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paritybit-setup/internal/config"
	"paritybit-setup/internal/middleware"
	"paritybit-setup/internal/models"
	"paritybit-setup/internal/runner"
	"paritybit-setup/services"
)

func newRouter(t *testing.T) (*gin.Engine, *services.StateStore) {
	gin.SetMode(gin.TestMode)
	cfg := config.Default().Provision
	cfg.InstallPath = t.TempDir()

	rec := runner.NewRecorder()
	rec.OnRun = func(c runner.Command) (runner.Result, error) {
		return runner.Result{Stdout: []string{"active"}}, nil
	}
	store := services.NewStateStore(filepath.Join(t.TempDir(), "state"))
	status := services.NewStatusService(cfg, services.NewServiceManager(rec), nil, store)

	r := gin.New()
	r.Use(middleware.MetricsMiddleware())
	NewAPIController(services.NewServer(status)).RegisterRoutes(r)
	return r, store
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := newRouter(t)
	w := get(r, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "UP", resp.Status)
	assert.Empty(t, resp.Metrics.LastRunID)
}

func TestOutcome(t *testing.T) {
	r, store := newRouter(t)

	w := get(r, "/api/v1/outcome")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, store.Save(&models.RunOutcome{RunID: "run-42", Manager: "apt"}))
	w = get(r, "/api/v1/outcome")
	require.Equal(t, http.StatusOK, w.Code)

	var out models.RunOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "run-42", out.RunID)

	w = get(r, "/healthz")
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-42", resp.Metrics.LastRunID)
	assert.True(t, resp.Metrics.LastRunSucceeded)
	assert.GreaterOrEqual(t, resp.Metrics.ErrorRequests, int64(1))
}

func TestStatus(t *testing.T) {
	r, _ := newRouter(t)
	w := get(r, "/api/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var report models.StatusReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, models.OverallHealthy, report.OverallStatus)
	assert.Len(t, report.Services, 3)
}

func TestMetrics(t *testing.T) {
	r, _ := newRouter(t)
	get(r, "/healthz")
	w := get(r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "paritybit_setup_http_requests_total")
}
