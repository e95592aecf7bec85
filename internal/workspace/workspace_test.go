package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paritybit-setup/internal/runner"
)

// initCheckout creates a git repository with one commit and returns its HEAD.
func initCheckout(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crawler.py"), []byte("print('crawl')\n"), 0644))

	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add("crawler.py")
	require.NoError(t, err)
	hash, err := w.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestInspect(t *testing.T) {
	root := t.TempDir()

	state, err := Inspect(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Equal(t, Empty, state)

	empty := filepath.Join(root, "empty")
	require.NoError(t, os.Mkdir(empty, 0770))
	state, err = Inspect(empty)
	require.NoError(t, err)
	assert.Equal(t, Empty, state)

	checkout := filepath.Join(root, "checkout")
	initCheckout(t, checkout)
	state, err = Inspect(checkout)
	require.NoError(t, err)
	assert.Equal(t, Checkout, state)

	foreign := filepath.Join(root, "foreign")
	require.NoError(t, os.Mkdir(foreign, 0770))
	require.NoError(t, os.WriteFile(filepath.Join(foreign, "notes.txt"), []byte("x"), 0644))
	state, err = Inspect(foreign)
	require.NoError(t, err)
	assert.Equal(t, Foreign, state)
}

func TestDecide(t *testing.T) {
	const url = "https://example.com/paritybit.git"
	cases := []struct {
		state   State
		locator string
		want    Action
	}{
		{Empty, url, Clone},
		{Checkout, url, Update},
		{Foreign, url, ManualCopy},
		{Empty, "", ManualCopy},
		{Checkout, "", ManualCopy},
		{Foreign, "", ManualCopy},
	}
	for _, tc := range cases {
		t.Run(tc.state.String()+"/"+tc.want.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.state, tc.locator))
		})
	}
}

func TestPrepare(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opt", "paritybit")
	rec := runner.NewRecorder()

	require.NoError(t, NewManager(rec).Prepare(context.Background(), path, "paritybit"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, []string{
		"chown paritybit:paritybit " + path,
		"chmod 770 " + path,
	}, rec.Lines())
}

func TestPrepareCreatesTraversableParents(t *testing.T) {
	base := t.TempDir()
	parent := filepath.Join(base, "srv", "pb")
	path := filepath.Join(parent, "paritybit")

	require.NoError(t, NewManager(runner.NewRecorder()).Prepare(context.Background(), path, "paritybit"))

	for _, dir := range []string{filepath.Join(base, "srv"), parent} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0001, "%s not traversable by the account", dir)
		assert.Equal(t, ParentMode, info.Mode().Perm(), dir)
	}
}

func TestPrepareKeepsExistingParentMode(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "private")
	require.NoError(t, os.Mkdir(parent, 0700))
	path := filepath.Join(parent, "paritybit")

	require.NoError(t, NewManager(runner.NewRecorder()).Prepare(context.Background(), path, "paritybit"))

	info, err := os.Stat(parent)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestPrepareRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paritybit")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	rec := runner.NewRecorder()
	err := NewManager(rec).Prepare(context.Background(), path, "paritybit")
	require.Error(t, err)
	assert.Empty(t, rec.Calls())
}

func TestPrepareChownFailure(t *testing.T) {
	rec := runner.NewRecorder()
	rec.OnRun = func(c runner.Command) (runner.Result, error) {
		return runner.Fail(c, 1, "chown: invalid user")
	}
	err := NewManager(rec).Prepare(context.Background(), t.TempDir(), "paritybit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chown workspace")
	assert.Len(t, rec.Calls(), 1)
}

/**
 * Clone into an empty workspace as the service account
 * @description
 * - The fake runner materialises the clone with go-git
 * - The resulting HEAD is reported
 */
func TestAcquireClone(t *testing.T) {
	path := t.TempDir()
	var head string
	rec := runner.NewRecorder()
	rec.OnRun = func(c runner.Command) (runner.Result, error) {
		head = initCheckout(t, path)
		return runner.Result{}, nil
	}

	res, err := NewManager(rec).Acquire(context.Background(), path, "paritybit", "https://example.com/p.git", "main")
	require.NoError(t, err)
	assert.Equal(t, Empty, res.State)
	assert.Equal(t, Clone, res.Action)
	assert.Equal(t, head, res.Revision)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "paritybit", calls[0].As)
	assert.Equal(t, "git clone --branch main https://example.com/p.git "+path, calls[0].Line())
	assert.Contains(t, calls[0].Env, "GIT_TERMINAL_PROMPT=0")
}

func TestAcquireCloneFailureIsFatal(t *testing.T) {
	rec := runner.NewRecorder()
	rec.OnRun = func(c runner.Command) (runner.Result, error) {
		return runner.Fail(c, 128, "fatal: repository not found")
	}
	_, err := NewManager(rec).Acquire(context.Background(), t.TempDir(), "paritybit", "https://example.com/p.git", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository not found")
}

func TestAcquireUpdate(t *testing.T) {
	path := t.TempDir()
	head := initCheckout(t, path)
	rec := runner.NewRecorder()

	res, err := NewManager(rec).Acquire(context.Background(), path, "paritybit", "https://example.com/p.git", "")
	require.NoError(t, err)
	assert.Equal(t, Update, res.Action)
	assert.NoError(t, res.UpdateErr)
	assert.Equal(t, head, res.Revision)
	assert.Equal(t, []string{"[paritybit] git -C " + path + " pull --ff-only"}, rec.Lines())
}

func TestAcquireUpdateFailureIsNotFatal(t *testing.T) {
	path := t.TempDir()
	head := initCheckout(t, path)
	rec := runner.NewRecorder()
	rec.OnRun = func(c runner.Command) (runner.Result, error) {
		return runner.Fail(c, 1, "fatal: Not possible to fast-forward, aborting.")
	}

	res, err := NewManager(rec).Acquire(context.Background(), path, "paritybit", "https://example.com/p.git", "")
	require.NoError(t, err)
	require.Error(t, res.UpdateErr)
	assert.Equal(t, head, res.Revision)

	data, err := os.ReadFile(filepath.Join(path, "crawler.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('crawl')\n", string(data))
}

func TestAcquireForeignContentIsPreserved(t *testing.T) {
	path := t.TempDir()
	keep := filepath.Join(path, "crawler.py")
	require.NoError(t, os.WriteFile(keep, []byte("local edits"), 0644))
	rec := runner.NewRecorder()

	res, err := NewManager(rec).Acquire(context.Background(), path, "paritybit", "https://example.com/p.git", "")
	require.NoError(t, err)
	assert.Equal(t, Foreign, res.State)
	assert.Equal(t, ManualCopy, res.Action)
	assert.True(t, res.Conflict)
	assert.Empty(t, res.Revision)
	assert.Empty(t, rec.Calls())

	data, err := os.ReadFile(keep)
	require.NoError(t, err)
	assert.Equal(t, "local edits", string(data))
}

func TestAcquireWithoutLocator(t *testing.T) {
	path := t.TempDir()
	rec := runner.NewRecorder()

	res, err := NewManager(rec).Acquire(context.Background(), path, "paritybit", "", "")
	require.NoError(t, err)
	assert.Equal(t, ManualCopy, res.Action)
	assert.False(t, res.Conflict)
	assert.Empty(t, rec.Calls())
	assert.Contains(t, ManualCopyInstruction(path, "paritybit"), path)
}
