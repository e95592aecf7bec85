package pkgmgr

import (
	"context"
	"errors"
	"fmt"

	"paritybit-setup/internal/host"
	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/runner"
)

// Kind names a supported system package manager family.
type Kind string

const (
	Apt Kind = "apt"
	Dnf Kind = "dnf"
	Yum Kind = "yum"
)

var ErrUnsupportedEnvironment = errors.New("no supported package manager found (apt-get, dnf, yum)")

// probeOrder is the priority in which package managers are detected.
var probeOrder = []struct {
	binary string
	kind   Kind
}{
	{"apt-get", Apt},
	{"dnf", Dnf},
	{"yum", Yum},
}

/**
 * System package manager driven through the command runner
 * @description
 * - EnableExtraRepos activates the extra repository providing tor (EPEL), a no-op for apt
 * - Refresh updates the package index
 * - Install installs packages non-interactively
 */
type Manager interface {
	Kind() Kind
	HasExtraRepos() bool
	EnableExtraRepos(ctx context.Context) error
	Refresh(ctx context.Context) error
	Install(ctx context.Context, packages []string) error
	// BasePackages is the fixed dependency set for this family.
	BasePackages() []string
}

/**
 * Detect the package manager of the host
 * @param {host.PathFinder} finder - executable lookup
 * @param {runner.Runner} r - runner used by the returned manager
 * @returns {(Manager, error)} First match of apt-get, dnf, yum, or ErrUnsupportedEnvironment
 */
func Probe(finder host.PathFinder, r runner.Runner) (Manager, error) {
	for _, p := range probeOrder {
		if _, err := finder.LookPath(p.binary); err != nil {
			continue
		}
		logger.Infof("Package manager [%s] detected", p.kind)
		return New(p.kind, r)
	}
	return nil, ErrUnsupportedEnvironment
}

// New returns the Manager for kind.
func New(kind Kind, r runner.Runner) (Manager, error) {
	switch kind {
	case Apt:
		return &apt{r: r}, nil
	case Dnf:
		return &rpm{kind: Dnf, binary: "dnf", r: r}, nil
	case Yum:
		return &rpm{kind: Yum, binary: "yum", r: r}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedEnvironment, kind)
}

// Packages merges the family's base set with extra packages, dropping duplicates.
func Packages(m Manager, extra []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range append(m.BasePackages(), extra...) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
