package account

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"paritybit-setup/internal/host"
	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/runner"
)

const NoLoginShell = "/usr/sbin/nologin"

// Manager ensures the service account exists.
type Manager struct {
	users host.UserLookup
	r     runner.Runner
	// HomeBase is the parent of the managed home directory.
	HomeBase string
}

func NewManager(users host.UserLookup, r runner.Runner) *Manager {
	return &Manager{users: users, r: r, HomeBase: "/home"}
}

// Home is the managed home directory of name.
func (m *Manager) Home(name string) string {
	return filepath.Join(m.HomeBase, name)
}

/**
 * Ensure a system account with no login shell exists
 * @param {context.Context} ctx - cancellation
 * @param {string} name - account name
 * @returns {(bool, error)} true when the account was created by this call
 * @description
 * - An existing account is left untouched
 * - The home directory is created only when it does not exist yet, useradd fails on an existing one
 */
func (m *Manager) Ensure(ctx context.Context, name string) (bool, error) {
	exists, err := m.users.UserExists(name)
	if err != nil {
		return false, err
	}
	if exists {
		logger.Infof("Account [%s] already exists", name)
		return false, nil
	}

	home := m.Home(name)
	args := []string{"--system"}
	if _, err := os.Stat(home); err == nil {
		args = append(args, "--no-create-home")
	} else {
		args = append(args, "--create-home")
	}
	args = append(args, "--home-dir", home, "--shell", NoLoginShell, name)

	if _, err := m.r.Run(ctx, runner.Admin("useradd", args...)); err != nil {
		return false, fmt.Errorf("create account %s: %w", name, err)
	}
	logger.Infof("Account [%s] created with home %s", name, home)
	return true, nil
}
