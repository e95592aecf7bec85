package runner

import (
	"context"
	"os"
	"time"

	gocmd "github.com/go-cmd/cmd"

	"paritybit-setup/internal/logger"
)

const stderrTailLines = 5

// Exec runs commands on the local host through go-cmd. Commands for a
// service account are wrapped in `runuser -u <account> --`.
type Exec struct {
	// RunUser is the privilege-dropping helper, "runuser" when empty.
	RunUser string
}

func NewExec() *Exec {
	return &Exec{RunUser: "runuser"}
}

// argv resolves the executable and arguments actually spawned.
func (e *Exec) argv(c Command) (string, []string) {
	if c.As == "" {
		return c.Name, c.Args
	}
	helper := e.RunUser
	if helper == "" {
		helper = "runuser"
	}
	args := append([]string{"-u", c.As, "--", c.Name}, c.Args...)
	return helper, args
}

func (e *Exec) Run(ctx context.Context, c Command) (Result, error) {
	name, args := e.argv(c)
	proc := gocmd.NewCmdOptions(gocmd.Options{Buffered: true}, name, args...)
	if c.Dir != "" {
		proc.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		// go-cmd replaces the environment when Env is set
		proc.Env = append(os.Environ(), c.Env...)
	}

	logger.Debugf("Run command: %s", c)
	statusChan := proc.Start()

	var status gocmd.Status
	select {
	case status = <-statusChan:
	case <-ctx.Done():
		proc.Stop()
		<-statusChan
		return Result{Exit: -1}, &CommandError{Command: c.String(), Exit: -1, Err: ctx.Err()}
	}

	res := Result{
		Exit:    status.Exit,
		Stdout:  status.Stdout,
		Stderr:  status.Stderr,
		Runtime: time.Duration(status.Runtime * float64(time.Second)),
	}
	if status.Error != nil {
		res.Exit = -1
		return res, &CommandError{Command: c.String(), Exit: -1, Err: status.Error}
	}
	if status.Exit != 0 {
		return res, &CommandError{Command: c.String(), Exit: status.Exit, Stderr: tail(status.Stderr, stderrTailLines)}
	}
	logger.Debugf("Command [%s] finished in %s", c.Line(), res.Runtime)
	return res, nil
}
