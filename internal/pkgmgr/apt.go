package pkgmgr

import (
	"context"

	"paritybit-setup/internal/runner"
)

const aptFrontend = "DEBIAN_FRONTEND=noninteractive"

type apt struct {
	r runner.Runner
}

func (a *apt) Kind() Kind {
	return Apt
}

func (a *apt) HasExtraRepos() bool {
	return false
}

func (a *apt) EnableExtraRepos(ctx context.Context) error {
	return nil
}

func (a *apt) Refresh(ctx context.Context) error {
	_, err := a.r.Run(ctx, runner.Admin("apt-get", "update").WithEnv(aptFrontend))
	return err
}

func (a *apt) Install(ctx context.Context, packages []string) error {
	args := append([]string{"install", "-y"}, packages...)
	_, err := a.r.Run(ctx, runner.Admin("apt-get", args...).WithEnv(aptFrontend))
	return err
}

func (a *apt) BasePackages() []string {
	return []string{"tor", "python3", "python3-venv", "python3-pip", "git"}
}
