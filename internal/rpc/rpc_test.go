package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	network, addr := ParseAddress("unix:/run/paritybit-setup.sock")
	assert.Equal(t, "unix", network)
	assert.Equal(t, "/run/paritybit-setup.sock", addr)

	network, addr = ParseAddress("127.0.0.1:9570")
	assert.Equal(t, "tcp", network)
	assert.Equal(t, "127.0.0.1:9570", addr)
}

func TestGetTCP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/status":
			w.Write([]byte(`{"overallStatus":"healthy"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"code":"outcome.not_found","error":"no provisioning run recorded"}`))
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(DefaultHTTPConfig(srv.Listener.Addr().String()))
	defer client.Close()

	var out struct {
		OverallStatus string `json:"overallStatus"`
	}
	require.NoError(t, client.Get(context.Background(), "/api/v1/status", &out))
	assert.Equal(t, "healthy", out.OverallStatus)

	err := client.Get(context.Background(), "/api/v1/outcome", &out)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "outcome.not_found", httpErr.Code)
}

func TestGetUnixSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "s.sock")
	l, err := net.Listen("unix", sock)
	require.NoError(t, err)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"UP"}`))
	})}
	go srv.Serve(l)
	defer srv.Close()

	client := NewHTTPClient(DefaultHTTPConfig("unix:" + sock))
	var out map[string]string
	require.NoError(t, client.Get(context.Background(), "/healthz", &out))
	assert.Equal(t, "UP", out["status"])
}

func TestGetUnreachable(t *testing.T) {
	client := NewHTTPClient(DefaultHTTPConfig("unix:" + filepath.Join(t.TempDir(), "missing.sock")))
	var out map[string]string
	err := client.Get(context.Background(), "/healthz", &out)
	require.Error(t, err)
	var httpErr *HTTPError
	assert.False(t, errors.As(err, &httpErr))
}
