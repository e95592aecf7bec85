package pyenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/runner"
)

/**
 * Request for one runtime environment build
 * @property {string} Account - principal owning the venv
 * @property {string} Python - interpreter creating the venv
 * @property {string} Dir - absolute venv directory
 * @property {[]string} Requirements - pip specifiers installed in order
 * @property {bool} BestEffort - collect failed requirements instead of stopping
 */
type Target struct {
	Account      string
	Python       string
	Dir          string
	Requirements []string
	BestEffort   bool
}

// Interpreter is the venv python whose presence marks a usable environment.
func (t Target) Interpreter() string {
	return filepath.Join(t.Dir, "bin", "python")
}

func (t Target) Pip() string {
	return filepath.Join(t.Dir, "bin", "pip")
}

/**
 * Result of a build
 * @property {bool} Created - the venv was created by this build
 * @property {[]RequirementError} Failed - requirements that failed in best-effort mode
 */
type Result struct {
	Created bool
	Failed  []RequirementError
}

type RequirementError struct {
	Requirement string
	Err         error
}

func (e RequirementError) Error() string {
	return fmt.Sprintf("install %s: %v", e.Requirement, e.Err)
}

func (e RequirementError) Unwrap() error {
	return e.Err
}

// ErrCreate marks a failed venv creation, fatal regardless of BestEffort.
var ErrCreate = errors.New("create runtime environment")

type Builder struct {
	r runner.Runner
}

func NewBuilder(r runner.Runner) *Builder {
	return &Builder{r: r}
}

/**
 * Build the runtime environment as the service account
 * @param {context.Context} ctx - cancellation
 * @param {Target} target - build request
 * @returns {(Result, error)} error on creation failure, or on the first failed install unless BestEffort
 * @description
 * - Skips creation when the venv interpreter exists, an existing venv is never recreated
 * - Upgrades pip, then installs each requirement with a separate pip call
 */
func (b *Builder) Ensure(ctx context.Context, target Target) (Result, error) {
	var res Result
	if _, err := os.Stat(target.Interpreter()); err == nil {
		logger.Infof("Runtime environment [%s] already exists", target.Dir)
	} else {
		python := target.Python
		if python == "" {
			python = "python3"
		}
		if _, err := b.r.Run(ctx, runner.As(target.Account, python, "-m", "venv", target.Dir)); err != nil {
			return res, fmt.Errorf("%w %s: %v", ErrCreate, target.Dir, err)
		}
		res.Created = true
		logger.Infof("Runtime environment [%s] created", target.Dir)
	}

	steps := [][]string{{"install", "--upgrade", "pip"}}
	for _, req := range target.Requirements {
		steps = append(steps, []string{"install", req})
	}
	for _, args := range steps {
		req := strings.Join(args[1:], " ")
		if _, err := b.r.Run(ctx, runner.As(target.Account, target.Pip(), args...)); err != nil {
			reqErr := RequirementError{Requirement: req, Err: err}
			if !target.BestEffort {
				return res, reqErr
			}
			logger.Warnf("Requirement [%s] failed: %v", req, err)
			res.Failed = append(res.Failed, reqErr)
			continue
		}
		logger.Debugf("Requirement [%s] installed", req)
	}
	return res, nil
}
