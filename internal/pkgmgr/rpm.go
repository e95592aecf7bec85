package pkgmgr

import (
	"context"

	"paritybit-setup/internal/runner"
)

// rpm drives dnf and yum, which share their command line.
type rpm struct {
	kind   Kind
	binary string
	r      runner.Runner
}

func (p *rpm) Kind() Kind {
	return p.kind
}

func (p *rpm) HasExtraRepos() bool {
	return true
}

// EnableExtraRepos installs epel-release, where tor is packaged.
func (p *rpm) EnableExtraRepos(ctx context.Context) error {
	_, err := p.r.Run(ctx, runner.Admin(p.binary, "install", "-y", "epel-release"))
	return err
}

func (p *rpm) Refresh(ctx context.Context) error {
	_, err := p.r.Run(ctx, runner.Admin(p.binary, "makecache"))
	return err
}

func (p *rpm) Install(ctx context.Context, packages []string) error {
	args := append([]string{"install", "-y"}, packages...)
	_, err := p.r.Run(ctx, runner.Admin(p.binary, args...))
	return err
}

func (p *rpm) BasePackages() []string {
	return []string{"tor", "python3", "python3-pip", "git"}
}
