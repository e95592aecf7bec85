package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"paritybit-setup/internal/config"
	"paritybit-setup/internal/models"
	"paritybit-setup/internal/rpc"
	"paritybit-setup/internal/runner"
	"paritybit-setup/services"
)

func localService(t *testing.T) *services.StatusService {
	cfg := config.Default().Provision
	cfg.InstallPath = t.TempDir()
	rec := runner.NewRecorder()
	rec.OnRun = func(c runner.Command) (runner.Result, error) {
		return runner.Result{Stdout: []string{"active"}}, nil
	}
	return services.NewStatusService(cfg, services.NewServiceManager(rec), nil, nil)
}

func TestCollectFromServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/status", r.URL.Path)
		w.Write([]byte(`{"overallStatus":"degraded","services":[{"name":"tor","state":"failed"}]}`))
	}))
	defer srv.Close()

	client := rpc.NewHTTPClient(rpc.DefaultHTTPConfig(srv.Listener.Addr().String()))
	report := collect(context.Background(), client, localService(t))

	assert.Equal(t, models.OverallDegraded, report.OverallStatus)
	assert.Equal(t, "failed", report.Services[0].State)
}

func TestCollectFallsBackToLocal(t *testing.T) {
	client := rpc.NewHTTPClient(rpc.DefaultHTTPConfig("unix:" + filepath.Join(t.TempDir(), "none.sock")))
	report := collect(context.Background(), client, localService(t))

	assert.Equal(t, models.OverallHealthy, report.OverallStatus)
	assert.Len(t, report.Services, 3)
}

func TestCollectLocalOnly(t *testing.T) {
	report := collect(context.Background(), nil, localService(t))
	assert.Len(t, report.Services, 3)
}
