package runner

import (
	"context"
	"strings"
	"sync"
)

// Recorder is a Runner that records every command instead of executing it.
// OnRun, when set, decides the result and may fake side effects.
type Recorder struct {
	mu    sync.Mutex
	calls []Command
	OnRun func(c Command) (Result, error)
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Run(ctx context.Context, c Command) (Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	hook := r.OnRun
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{Exit: -1}, &CommandError{Command: c.String(), Exit: -1, Err: err}
	}
	if hook == nil {
		return Result{}, nil
	}
	return hook(c)
}

// Calls returns a copy of the recorded commands in order.
func (r *Recorder) Calls() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.calls...)
}

// Lines returns the recorded commands rendered with String.
func (r *Recorder) Lines() []string {
	var out []string
	for _, c := range r.Calls() {
		out = append(out, c.String())
	}
	return out
}

// Count returns how many recorded command lines start with prefix.
func (r *Recorder) Count(prefix string) int {
	n := 0
	for _, c := range r.Calls() {
		if strings.HasPrefix(c.Line(), prefix) {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// Fail builds a failed result for OnRun hooks.
func Fail(c Command, exit int, stderr string) (Result, error) {
	res := Result{Exit: exit, Stderr: []string{stderr}}
	return res, &CommandError{Command: c.String(), Exit: exit, Stderr: stderr}
}
