package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/runner"
)

// State is the workspace content as seen once, before source acquisition.
type State int

const (
	Empty State = iota
	Checkout
	Foreign
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Checkout:
		return "checkout"
	case Foreign:
		return "foreign"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Action is how the workspace gets populated.
type Action int

const (
	Clone Action = iota
	Update
	ManualCopy
)

func (a Action) String() string {
	switch a {
	case Clone:
		return "clone"
	case Update:
		return "update"
	case ManualCopy:
		return "manual-copy"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

const WorkspaceMode os.FileMode = 0770

// ParentMode is applied to install path ancestors created by Prepare.
const ParentMode os.FileMode = 0755

/**
 * Inspect the workspace
 * @param {string} path - install path
 * @returns {(State, error)} Empty when missing or without entries, Checkout when a git
 * repository opens at path, Foreign otherwise
 */
func Inspect(path string) (State, error) {
	entries, err := os.ReadDir(path)
	if errors.Is(err, os.ErrNotExist) {
		return Empty, nil
	}
	if err != nil {
		return Empty, fmt.Errorf("read workspace %s: %w", path, err)
	}
	if len(entries) == 0 {
		return Empty, nil
	}
	if _, err := git.PlainOpen(path); err == nil {
		return Checkout, nil
	}
	return Foreign, nil
}

// Decide maps the inspected state and the optional repository locator to an action.
func Decide(state State, locator string) Action {
	if locator == "" {
		return ManualCopy
	}
	switch state {
	case Empty:
		return Clone
	case Checkout:
		return Update
	}
	return ManualCopy
}

// Revision returns the HEAD commit of the checkout at path, empty when there is none.
func Revision(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

// ManualCopyInstruction tells the operator how to populate the workspace by hand.
func ManualCopyInstruction(path, account string) string {
	return fmt.Sprintf("copy crawler.py, scooper.py and their data files into %s, then run 'chown -R %s:%s %s' and re-run provisioning",
		path, account, account, path)
}

/**
 * Result of source acquisition
 * @property {State} State - inspected state
 * @property {Action} Action - chosen action
 * @property {string} Revision - HEAD after the action, empty when not a checkout
 * @property {bool} Conflict - locator given but the workspace holds foreign content
 * @property {error} UpdateErr - non-fatal pull failure
 */
type Result struct {
	State     State
	Action    Action
	Revision  string
	Conflict  bool
	UpdateErr error
}

type Manager struct {
	r runner.Runner
}

func NewManager(r runner.Runner) *Manager {
	return &Manager{r: r}
}

/**
 * Create the install directory and hand it to the service account
 * @param {context.Context} ctx - cancellation
 * @param {string} path - install path
 * @param {string} account - owner
 * @returns {error} Any failure, all of them fatal for the run
 * @description
 * - Missing parent directories are created 0755 so the account can traverse them
 * - Existing parents are left as they are
 */
func (m *Manager) Prepare(ctx context.Context, path, account string) error {
	if err := mkdirParents(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create workspace parent of %s: %w", path, err)
	}
	if err := os.Mkdir(path, WorkspaceMode); err != nil {
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create workspace %s: %w", path, err)
		}
		if info, statErr := os.Stat(path); statErr != nil || !info.IsDir() {
			return fmt.Errorf("create workspace %s: exists and is not a directory", path)
		}
	}
	owner := account + ":" + account
	if _, err := m.r.Run(ctx, runner.Admin("chown", owner, path)); err != nil {
		return fmt.Errorf("chown workspace %s: %w", path, err)
	}
	if _, err := m.r.Run(ctx, runner.Admin("chmod", fmt.Sprintf("%o", WorkspaceMode), path)); err != nil {
		return fmt.Errorf("chmod workspace %s: %w", path, err)
	}
	logger.Infof("Workspace [%s] owned by %s with mode %o", path, owner, WorkspaceMode)
	return nil
}

// mkdirParents creates dir and its missing ancestors with ParentMode, independent of the umask.
func mkdirParents(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := mkdirParents(filepath.Dir(dir)); err != nil {
		return err
	}
	if err := os.Mkdir(dir, ParentMode); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	return os.Chmod(dir, ParentMode)
}

/**
 * Populate the workspace from the source repository
 * @param {context.Context} ctx - cancellation
 * @param {string} path - install path
 * @param {string} account - principal running git
 * @param {string} locator - repository URL, empty for manual deployment
 * @param {string} branch - optional branch for the initial clone
 * @returns {(Result, error)} error only when a clone fails
 * @description
 * - Inspects the workspace exactly once and never deletes existing content
 * - An update failure is reported in Result.UpdateErr and leaves the checkout as it was
 */
func (m *Manager) Acquire(ctx context.Context, path, account, locator, branch string) (Result, error) {
	state, err := Inspect(path)
	if err != nil {
		return Result{}, err
	}
	res := Result{State: state, Action: Decide(state, locator)}
	res.Conflict = locator != "" && state == Foreign

	switch res.Action {
	case Clone:
		args := []string{"clone"}
		if branch != "" {
			args = append(args, "--branch", branch)
		}
		args = append(args, locator, path)
		cmd := runner.As(account, "git", args...).WithEnv("GIT_TERMINAL_PROMPT=0")
		if _, err := m.r.Run(ctx, cmd); err != nil {
			return res, fmt.Errorf("clone %s: %w", locator, err)
		}
		logger.Infof("Workspace [%s] cloned from %s", path, locator)
	case Update:
		cmd := runner.As(account, "git", "-C", path, "pull", "--ff-only").WithEnv("GIT_TERMINAL_PROMPT=0")
		if _, err := m.r.Run(ctx, cmd); err != nil {
			res.UpdateErr = err
			logger.Warnf("Workspace [%s] update failed: %v", path, err)
		} else {
			logger.Infof("Workspace [%s] updated", path)
		}
	case ManualCopy:
		logger.Infof("Workspace [%s] is %s, manual copy required", path, state)
	}

	if rev, err := Revision(path); err == nil {
		res.Revision = rev
	}
	return res, nil
}
