package account

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paritybit-setup/internal/host"
	"paritybit-setup/internal/runner"
)

func newManager(t *testing.T) (*Manager, *host.Fake, *runner.Recorder) {
	sys := host.NewFake()
	rec := runner.NewRecorder()
	rec.OnRun = func(c runner.Command) (runner.Result, error) {
		if c.Name == "useradd" {
			sys.AddUser(c.Args[len(c.Args)-1])
		}
		return runner.Result{}, nil
	}
	m := NewManager(sys, rec)
	m.HomeBase = t.TempDir()
	return m, sys, rec
}

func TestEnsureCreatesOnce(t *testing.T) {
	m, _, rec := newManager(t)
	ctx := context.Background()

	created, err := m.Ensure(ctx, "paritybit")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.Ensure(ctx, "paritybit")
	require.NoError(t, err)
	assert.False(t, created)

	require.Len(t, rec.Calls(), 1)
	home := filepath.Join(m.HomeBase, "paritybit")
	assert.Equal(t, []string{"--system", "--create-home", "--home-dir", home, "--shell", "/usr/sbin/nologin", "paritybit"}, rec.Calls()[0].Args)
	assert.Empty(t, rec.Calls()[0].As)
}

func TestEnsureKeepsExistingHome(t *testing.T) {
	m, _, rec := newManager(t)
	require.NoError(t, os.MkdirAll(m.Home("paritybit"), 0755))

	_, err := m.Ensure(context.Background(), "paritybit")
	require.NoError(t, err)
	assert.Contains(t, rec.Calls()[0].Args, "--no-create-home")
	assert.NotContains(t, rec.Calls()[0].Args, "--create-home")
}

func TestEnsureFailure(t *testing.T) {
	m, _, rec := newManager(t)
	rec.OnRun = func(c runner.Command) (runner.Result, error) {
		return runner.Fail(c, 9, "useradd: group paritybit exists")
	}
	created, err := m.Ensure(context.Background(), "paritybit")
	require.Error(t, err)
	assert.False(t, created)
	assert.Contains(t, err.Error(), "create account paritybit")
}
