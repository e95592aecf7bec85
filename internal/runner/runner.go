package runner

import (
	"context"
	"fmt"
	"strings"
	"time"
)

/**
 * External command together with the principal it runs as
 * @property {string} As - effective principal, empty means the invoking administrator
 * @property {string} Name - executable
 * @property {[]string} Args - arguments, passed without a shell
 * @property {string} Dir - working directory, empty inherits the caller's
 * @property {[]string} Env - extra KEY=VALUE pairs appended to the inherited environment
 */
type Command struct {
	As   string
	Name string
	Args []string
	Dir  string
	Env  []string
}

// Admin builds a command run by the invoking administrator.
func Admin(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// As builds a command run as the given service account.
func As(account, name string, args ...string) Command {
	return Command{As: account, Name: name, Args: args}
}

func (c Command) WithEnv(kv ...string) Command {
	c.Env = append(append([]string{}, c.Env...), kv...)
	return c
}

func (c Command) WithDir(dir string) Command {
	c.Dir = dir
	return c
}

// Line is the command line without the principal.
func (c Command) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

func (c Command) String() string {
	if c.As == "" {
		return c.Line()
	}
	return fmt.Sprintf("[%s] %s", c.As, c.Line())
}

type Result struct {
	Exit    int
	Stdout  []string
	Stderr  []string
	Runtime time.Duration
}

// Output joins the captured stdout lines.
func (r Result) Output() string {
	return strings.Join(r.Stdout, "\n")
}

/**
 * Command failure with captured diagnostics
 * @property {string} Command - rendered command line
 * @property {int} Exit - exit code, -1 when the process never started
 * @property {string} Stderr - last stderr lines
 * @property {error} Err - start or wait error
 */
type CommandError struct {
	Command string
	Exit    int
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command '%s' failed", e.Command)
	if e.Exit >= 0 {
		msg += fmt.Sprintf(" with exit code %d", e.Exit)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner executes commands on behalf of a principal. A non-zero exit is
// reported as a *CommandError together with the captured Result.
type Runner interface {
	Run(ctx context.Context, c Command) (Result, error)
}

// tail keeps the last n non-empty lines for error messages.
func tail(lines []string, n int) string {
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "; ")
}
