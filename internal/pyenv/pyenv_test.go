package pyenv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paritybit-setup/internal/runner"
)

func newTarget(t *testing.T) Target {
	return Target{
		Account:      "paritybit",
		Python:       "python3",
		Dir:          filepath.Join(t.TempDir(), "venv"),
		Requirements: []string{"requests", "stem"},
	}
}

// fakeVenv makes `python3 -m venv` create the interpreter.
func fakeVenv(rec *runner.Recorder, fail func(runner.Command) bool) {
	rec.OnRun = func(c runner.Command) (runner.Result, error) {
		if fail != nil && fail(c) {
			return runner.Fail(c, 1, "pip failed")
		}
		if len(c.Args) == 3 && c.Args[0] == "-m" && c.Args[1] == "venv" {
			bin := filepath.Join(c.Args[2], "bin")
			if err := os.MkdirAll(bin, 0755); err != nil {
				return runner.Result{}, err
			}
			if err := os.WriteFile(filepath.Join(bin, "python"), nil, 0755); err != nil {
				return runner.Result{}, err
			}
		}
		return runner.Result{}, nil
	}
}

func TestEnsureCreatesAndInstalls(t *testing.T) {
	target := newTarget(t)
	rec := runner.NewRecorder()
	fakeVenv(rec, nil)

	res, err := NewBuilder(rec).Ensure(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Empty(t, res.Failed)

	pip := target.Pip()
	assert.Equal(t, []string{
		"[paritybit] python3 -m venv " + target.Dir,
		"[paritybit] " + pip + " install --upgrade pip",
		"[paritybit] " + pip + " install requests",
		"[paritybit] " + pip + " install stem",
	}, rec.Lines())
}

func TestEnsureSkipsExistingVenv(t *testing.T) {
	target := newTarget(t)
	rec := runner.NewRecorder()
	fakeVenv(rec, nil)
	b := NewBuilder(rec)

	_, err := b.Ensure(context.Background(), target)
	require.NoError(t, err)
	rec.Reset()

	res, err := b.Ensure(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 0, rec.Count("python3 -m venv"))
	assert.Equal(t, 3, len(rec.Calls()))
}

func TestEnsureCreateFailure(t *testing.T) {
	target := newTarget(t)
	rec := runner.NewRecorder()
	rec.OnRun = func(c runner.Command) (runner.Result, error) {
		return runner.Fail(c, 1, "ensurepip is not available")
	}

	_, err := NewBuilder(rec).Ensure(context.Background(), target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCreate))
	assert.Len(t, rec.Calls(), 1)
}

func TestEnsureRequirementFailureStops(t *testing.T) {
	target := newTarget(t)
	rec := runner.NewRecorder()
	fakeVenv(rec, func(c runner.Command) bool {
		return len(c.Args) == 2 && c.Args[1] == "requests"
	})

	_, err := NewBuilder(rec).Ensure(context.Background(), target)
	require.Error(t, err)
	var reqErr RequirementError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "requests", reqErr.Requirement)
	assert.Equal(t, 0, rec.Count(target.Pip()+" install stem"))
}

func TestEnsureBestEffortCollects(t *testing.T) {
	target := newTarget(t)
	target.BestEffort = true
	rec := runner.NewRecorder()
	fakeVenv(rec, func(c runner.Command) bool {
		return len(c.Args) == 2 && c.Args[1] == "requests"
	})

	res, err := NewBuilder(rec).Ensure(context.Background(), target)
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "requests", res.Failed[0].Requirement)
	assert.Equal(t, 1, rec.Count(target.Pip()+" install stem"))
}
