package models

import (
	"time"
)

type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepSkipped StepStatus = "skipped"
	StepWarning StepStatus = "warning"
	StepFailed  StepStatus = "failed"
)

// StepResult is the result of one attempted step.
type StepResult struct {
	Name     string        `json:"name" yaml:"name"`
	Status   StepStatus    `json:"status" yaml:"status"`
	Detail   string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

/**
 * Activity state of one managed unit or daemon
 * @property {string} name - systemd unit name
 * @property {string} state - raw `systemctl is-active` answer (active/inactive/failed/activating/unknown)
 * @property {bool} active - state == "active"
 * @property {string} hint - operator hint when not active
 */
type ServiceState struct {
	Name   string `json:"name" yaml:"name"`
	State  string `json:"state" yaml:"state"`
	Active bool   `json:"active" yaml:"active"`
	Hint   string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// ProxyProbe records whether the SOCKS listener accepted a connection.
type ProxyProbe struct {
	Address   string `json:"address" yaml:"address"`
	Reachable bool   `json:"reachable" yaml:"reachable"`
}

/**
 * Run Outcome, the consolidated report of one orchestrator invocation
 * @property {string} runId - uuid of the run
 * @property {string} manager - probed package manager kind
 * @property {[]StepResult} steps - every attempted step in order
 * @property {[]Warning} warnings - non-fatal conditions collected during the run
 * @property {[]string} notices - operator instructions (manual copy, proxy skipped)
 * @property {string} revision - workspace HEAD after source acquisition, if a checkout
 * @property {[]ServiceState} services - final activity of tor and both workers
 * @property {string} fatal - single-cause message of the aborting error, empty on success
 */
type RunOutcome struct {
	RunID      string         `json:"runId" yaml:"runId"`
	StartedAt  time.Time      `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt" yaml:"finishedAt"`
	Manager    string         `json:"manager,omitempty" yaml:"manager,omitempty"`
	Steps      []StepResult   `json:"steps" yaml:"steps"`
	Warnings   []Warning      `json:"warnings" yaml:"warnings"`
	Notices    []string       `json:"notices" yaml:"notices"`
	Revision   string         `json:"revision,omitempty" yaml:"revision,omitempty"`
	Services   []ServiceState `json:"services" yaml:"services"`
	Proxy      *ProxyProbe    `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Fatal      string         `json:"fatal,omitempty" yaml:"fatal,omitempty"`
	FatalKind  ErrorKind      `json:"fatalKind,omitempty" yaml:"fatalKind,omitempty"`
}

func (o *RunOutcome) Succeeded() bool {
	return o.Fatal == ""
}

func (o *RunOutcome) AddStep(name string, status StepStatus, detail string, d time.Duration) {
	o.Steps = append(o.Steps, StepResult{Name: name, Status: status, Detail: detail, Duration: d})
}

func (o *RunOutcome) AddWarning(kind ErrorKind, step, message string) {
	o.Warnings = append(o.Warnings, Warning{Kind: kind, Step: step, Message: message})
}

func (o *RunOutcome) AddNotice(notice string) {
	o.Notices = append(o.Notices, notice)
}

// Step returns the named step result, nil when the step never ran.
func (o *RunOutcome) Step(name string) *StepResult {
	for i := range o.Steps {
		if o.Steps[i].Name == name {
			return &o.Steps[i]
		}
	}
	return nil
}

// Service returns the named service state, nil when it was not queried.
func (o *RunOutcome) Service(name string) *ServiceState {
	for i := range o.Services {
		if o.Services[i].Name == name {
			return &o.Services[i]
		}
	}
	return nil
}
