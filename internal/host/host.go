package host

import (
	"errors"
	"fmt"
	"os/exec"
	"os/user"

	"golang.org/x/sys/unix"
)

// PathFinder resolves executables on PATH.
type PathFinder interface {
	LookPath(file string) (string, error)
}

// UserLookup reports whether an OS account exists.
type UserLookup interface {
	UserExists(name string) (bool, error)
}

// System is the read-only view of the host the provisioner inspects.
type System interface {
	PathFinder
	UserLookup
	IsRoot() bool
}

type local struct{}

// Local returns the System backed by the running host.
func Local() System {
	return local{}
}

func (local) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (local) UserExists(name string) (bool, error) {
	_, err := user.Lookup(name)
	if err == nil {
		return true, nil
	}
	var unknown user.UnknownUserError
	if errors.As(err, &unknown) {
		return false, nil
	}
	return false, fmt.Errorf("lookup user %s: %w", name, err)
}

func (local) IsRoot() bool {
	return unix.Geteuid() == 0
}
