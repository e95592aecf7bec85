package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provisioning failures and warnings.
type ErrorKind string

const (
	// no supported package manager on the host, aborts the run
	KindUnsupportedEnvironment ErrorKind = "UnsupportedEnvironment"
	// not running as root, aborts the run
	KindPrivilege ErrorKind = "PrivilegeError"
	// package, clone, venv or requirement installation failed
	KindInstallFailure ErrorKind = "InstallFailure"
	// workspace holds foreign content, degrades to a manual copy instruction
	KindWorkspaceConflict ErrorKind = "WorkspaceConflict"
	// daemon or service not active after the start attempt
	KindActivationWarning ErrorKind = "ActivationWarning"
	// host mutation that must succeed (directories, unit files, reloads)
	KindHostFailure ErrorKind = "HostFailure"
)

/**
 * StepError is a classified failure of one provisioning step
 * @property {ErrorKind} Kind - taxonomy entry
 * @property {string} Step - step name as reported in the Run Outcome
 * @property {error} Err - underlying cause
 */
type StepError struct {
	Kind ErrorKind
	Step string
	Err  error
}

func NewStepError(kind ErrorKind, step string, err error) *StepError {
	return &StepError{Kind: kind, Step: step, Err: err}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Kind, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first StepError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// Warning is a non-fatal condition surfaced at the end of a run.
type Warning struct {
	Kind    ErrorKind `json:"kind" yaml:"kind"`
	Step    string    `json:"step" yaml:"step"`
	Message string    `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s [%s]: %s", w.Kind, w.Step, w.Message)
}
