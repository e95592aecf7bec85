package services

import (
	"context"
	"fmt"
	"strings"

	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/models"
	"paritybit-setup/internal/runner"
)

const (
	StateActive  = "active"
	StateUnknown = "unknown"
)

// ServiceManager drives systemd units through systemctl.
type ServiceManager struct {
	r runner.Runner
}

func NewServiceManager(r runner.Runner) *ServiceManager {
	return &ServiceManager{r: r}
}

func (sm *ServiceManager) systemctl(ctx context.Context, args ...string) error {
	_, err := sm.r.Run(ctx, runner.Admin("systemctl", args...))
	return err
}

// Reload makes systemd re-read unit files.
func (sm *ServiceManager) Reload(ctx context.Context) error {
	if err := sm.systemctl(ctx, "daemon-reload"); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	logger.Debugf("Service manager reloaded")
	return nil
}

func (sm *ServiceManager) Enable(ctx context.Context, unit string) error {
	return sm.systemctl(ctx, "enable", unit)
}

func (sm *ServiceManager) Restart(ctx context.Context, unit string) error {
	return sm.systemctl(ctx, "restart", unit)
}

// EnableNow enables the unit at boot and starts it.
func (sm *ServiceManager) EnableNow(ctx context.Context, unit string) error {
	return sm.systemctl(ctx, "enable", "--now", unit)
}

/**
 * Query the activity of a unit
 * @param {context.Context} ctx - cancellation
 * @param {string} unit - unit name
 * @returns {models.ServiceState} State, never an error
 * @description
 * - `systemctl is-active` exits non-zero for every state but active, its stdout still names the state
 * - A query that produced no output is reported as unknown
 */
func (sm *ServiceManager) State(ctx context.Context, unit string) models.ServiceState {
	res, err := sm.r.Run(ctx, runner.Admin("systemctl", "is-active", unit))
	state := StateUnknown
	if len(res.Stdout) > 0 && strings.TrimSpace(res.Stdout[0]) != "" {
		state = strings.TrimSpace(res.Stdout[0])
	}
	ss := models.ServiceState{Name: unit, State: state, Active: err == nil && state == StateActive}
	if !ss.Active {
		ss.Hint = JournalHint(unit)
		logger.Warnf("Service [%s] is %s, inspect with: %s", unit, state, ss.Hint)
	} else {
		logger.Infof("Service [%s] is active", unit)
	}
	return ss
}

// JournalHint is the command an operator runs to see why a unit is down.
func JournalHint(unit string) string {
	return fmt.Sprintf("journalctl -u %s -n 50 --no-pager", unit)
}
