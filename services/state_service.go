package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/models"
	"paritybit-setup/internal/utils"
)

const lastRunFile = "last-run.json"

// ErrNoOutcome is returned by Load before the first run completed.
var ErrNoOutcome = errors.New("no provisioning run recorded")

// StateStore keeps the last Run Outcome on disk.
type StateStore struct {
	dir string
}

func NewStateStore(dir string) *StateStore {
	return &StateStore{dir: dir}
}

func (s *StateStore) Path() string {
	return filepath.Join(s.dir, lastRunFile)
}

/**
 * Persist the outcome
 * @param {*models.RunOutcome} o - outcome of the run
 * @returns {error} Write error
 */
func (s *StateStore) Save(o *models.RunOutcome) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state dir %s: %w", s.dir, err)
	}
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	if err := utils.WriteFileAtomic(s.Path(), data, 0644); err != nil {
		return err
	}
	logger.Infof("Run [%s] outcome saved to %s", o.RunID, s.Path())
	return nil
}

// Load reads the last outcome, ErrNoOutcome when none was saved.
func (s *StateStore) Load() (*models.RunOutcome, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoOutcome
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path(), err)
	}
	var o models.RunOutcome
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path(), err)
	}
	return &o, nil
}
