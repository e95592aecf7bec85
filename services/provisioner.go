package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"paritybit-setup/internal/account"
	"paritybit-setup/internal/config"
	"paritybit-setup/internal/host"
	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/models"
	"paritybit-setup/internal/pkgmgr"
	"paritybit-setup/internal/pyenv"
	"paritybit-setup/internal/runner"
	"paritybit-setup/internal/torrc"
	"paritybit-setup/internal/units"
	"paritybit-setup/internal/workspace"
)

// Step names as reported in the Run Outcome, in execution order.
const (
	StepPrivilege  = "privilege"
	StepProbe      = "probe"
	StepExtraRepos = "extra-repos"
	StepPackages   = "packages"
	StepAccount    = "account"
	StepWorkspace  = "workspace"
	StepSource     = "source"
	StepRuntime    = "runtime"
	StepProxy      = "proxy"
	StepUnits      = "units"
	StepActivate   = "activate"
	StepOwnership  = "ownership"
	StepVerify     = "verify"
)

const socksProbeTimeout = 3 * time.Second

/**
 * Provisioning orchestrator
 * @description
 * - Runs the setup steps strictly in order, each one a precondition for the next
 * - A fatal step stops the run, best-effort steps record warnings and continue
 * - The configuration is copied at construction and never modified
 */
type Provisioner struct {
	cfg   config.ProvisionConfig
	sys   host.System
	r     runner.Runner
	store *StateStore

	Accounts  *account.Manager
	Workspace *workspace.Manager
	Runtime   *pyenv.Builder
	Proxy     *torrc.Configurator
	Services  *ServiceManager
	// Prober checks the SOCKS listener, nil disables the probe.
	Prober *Prober
	// MetricsTextfile, when set, receives the registry after each run.
	MetricsTextfile string
}

func NewProvisioner(cfg config.ProvisionConfig, sys host.System, r runner.Runner, store *StateStore) *Provisioner {
	return &Provisioner{
		cfg:       cfg,
		sys:       sys,
		r:         r,
		store:     store,
		Accounts:  account.NewManager(sys, r),
		Workspace: workspace.NewManager(r),
		Runtime:   pyenv.NewBuilder(r),
		Proxy:     torrc.NewConfigurator(sys),
		Services:  NewServiceManager(r),
		Prober:    NewProber("127.0.0.1", socksProbeTimeout),
	}
}

// run carries values produced by one step for the following steps.
type run struct {
	out            *models.RunOutcome
	manager        pkgmgr.Manager
	proxyInstalled bool
}

type stepFunc func(ctx context.Context, st *run) (models.StepStatus, string, error)

/**
 * Execute one provisioning run
 * @param {context.Context} ctx - cancellation, checked before every step
 * @returns {(*models.RunOutcome, error)} The outcome is always returned, error is the fatal *models.StepError if any
 * @description
 * - Privilege check, probe, packages, account, workspace, source, runtime, proxy, units, activation, verification
 * - The outcome is persisted and published as metrics even when the run aborts
 */
func (p *Provisioner) Run(ctx context.Context) (*models.RunOutcome, error) {
	st := &run{out: &models.RunOutcome{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Steps:     []models.StepResult{},
		Warnings:  []models.Warning{},
		Notices:   []string{},
		Services:  []models.ServiceState{},
	}}
	logger.Infof("Run [%s] started for workspace %s", st.out.RunID, p.cfg.InstallPath)

	steps := []struct {
		name string
		fn   stepFunc
	}{
		{StepPrivilege, p.checkPrivilege},
		{StepProbe, p.probe},
		{StepExtraRepos, p.enableExtraRepos},
		{StepPackages, p.installPackages},
		{StepAccount, p.ensureAccount},
		{StepWorkspace, p.prepareWorkspace},
		{StepSource, p.acquireSource},
		{StepRuntime, p.buildRuntime},
		{StepProxy, p.configureProxy},
		{StepUnits, p.writeUnits},
		{StepActivate, p.activate},
		{StepOwnership, p.fixOwnership},
		{StepVerify, p.verify},
	}

	var fatal error
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			fatal = models.NewStepError(models.KindHostFailure, s.name, err)
			p.recordFatal(st.out, s.name, fatal, 0)
			break
		}
		start := time.Now()
		status, detail, err := s.fn(ctx, st)
		d := time.Since(start)
		if err != nil {
			fatal = err
			p.recordFatal(st.out, s.name, err, d)
			break
		}
		st.out.AddStep(s.name, status, detail, d)
		ObserveStep(s.name, status, d)
		logger.Infof("Step [%s] %s %s", s.name, status, detail)
	}

	p.finish(st.out)
	return st.out, fatal
}

func (p *Provisioner) recordFatal(out *models.RunOutcome, step string, err error, d time.Duration) {
	out.AddStep(step, models.StepFailed, err.Error(), d)
	ObserveStep(step, models.StepFailed, d)
	out.Fatal = err.Error()
	if kind, ok := models.KindOf(err); ok {
		out.FatalKind = kind
	}
	logger.Errorf("Step [%s] failed, run aborted: %v", step, err)
}

func (p *Provisioner) finish(out *models.RunOutcome) {
	out.FinishedAt = time.Now().UTC()
	for _, w := range out.Warnings {
		logger.Warnf("Run [%s] warning: %s", out.RunID, w)
	}
	RecordOutcome(out)
	if p.store != nil {
		if err := p.store.Save(out); err != nil {
			logger.Errorf("Run [%s] outcome not saved: %v", out.RunID, err)
		}
	}
	if err := WriteMetricsTextfile(p.MetricsTextfile); err != nil {
		logger.Errorf("Write metrics textfile %s failed: %v", p.MetricsTextfile, err)
	}
	logger.Infof("Run [%s] finished in %s with %d warning(s)", out.RunID, out.FinishedAt.Sub(out.StartedAt).Round(time.Millisecond), len(out.Warnings))
}

func warn(st *run, kind models.ErrorKind, step string, err error) {
	st.out.AddWarning(kind, step, err.Error())
	logger.Warnf("Step [%s] %s: %v", step, kind, err)
}

func (p *Provisioner) checkPrivilege(ctx context.Context, st *run) (models.StepStatus, string, error) {
	if !p.sys.IsRoot() {
		return "", "", models.NewStepError(models.KindPrivilege, StepPrivilege, errors.New("provisioning must run as root"))
	}
	return models.StepOK, "running as root", nil
}

func (p *Provisioner) probe(ctx context.Context, st *run) (models.StepStatus, string, error) {
	m, err := pkgmgr.Probe(p.sys, p.r)
	if err != nil {
		return "", "", models.NewStepError(models.KindUnsupportedEnvironment, StepProbe, err)
	}
	st.manager = m
	st.out.Manager = string(m.Kind())
	return models.StepOK, string(m.Kind()), nil
}

func (p *Provisioner) enableExtraRepos(ctx context.Context, st *run) (models.StepStatus, string, error) {
	if !st.manager.HasExtraRepos() {
		return models.StepSkipped, "not needed for " + string(st.manager.Kind()), nil
	}
	if err := st.manager.EnableExtraRepos(ctx); err != nil {
		warn(st, models.KindInstallFailure, StepExtraRepos, err)
		return models.StepWarning, "epel-release not installed", nil
	}
	return models.StepOK, "epel-release", nil
}

func (p *Provisioner) installPackages(ctx context.Context, st *run) (models.StepStatus, string, error) {
	if err := st.manager.Refresh(ctx); err != nil {
		return "", "", models.NewStepError(models.KindInstallFailure, StepPackages, err)
	}
	pkgs := pkgmgr.Packages(st.manager, p.cfg.ExtraPackages)
	if err := st.manager.Install(ctx, pkgs); err != nil {
		return "", "", models.NewStepError(models.KindInstallFailure, StepPackages, err)
	}
	return models.StepOK, strings.Join(pkgs, " "), nil
}

func (p *Provisioner) ensureAccount(ctx context.Context, st *run) (models.StepStatus, string, error) {
	created, err := p.Accounts.Ensure(ctx, p.cfg.Account)
	if err != nil {
		return "", "", models.NewStepError(models.KindHostFailure, StepAccount, err)
	}
	if !created {
		return models.StepSkipped, fmt.Sprintf("account %s exists", p.cfg.Account), nil
	}
	return models.StepOK, fmt.Sprintf("account %s created", p.cfg.Account), nil
}

func (p *Provisioner) prepareWorkspace(ctx context.Context, st *run) (models.StepStatus, string, error) {
	if err := p.Workspace.Prepare(ctx, p.cfg.InstallPath, p.cfg.Account); err != nil {
		return "", "", models.NewStepError(models.KindHostFailure, StepWorkspace, err)
	}
	return models.StepOK, p.cfg.InstallPath, nil
}

func (p *Provisioner) acquireSource(ctx context.Context, st *run) (models.StepStatus, string, error) {
	res, err := p.Workspace.Acquire(ctx, p.cfg.InstallPath, p.cfg.Account, p.cfg.Repository, p.cfg.Branch)
	if err != nil {
		return "", "", models.NewStepError(models.KindInstallFailure, StepSource, err)
	}
	st.out.Revision = res.Revision
	detail := fmt.Sprintf("%s (workspace %s)", res.Action, res.State)

	switch {
	case res.Conflict:
		warn(st, models.KindWorkspaceConflict, StepSource,
			fmt.Errorf("%s holds content that is not a checkout of %s, leaving it untouched", p.cfg.InstallPath, p.cfg.Repository))
		st.out.AddNotice(workspace.ManualCopyInstruction(p.cfg.InstallPath, p.cfg.Account))
		return models.StepWarning, detail, nil
	case res.Action == workspace.ManualCopy:
		st.out.AddNotice(workspace.ManualCopyInstruction(p.cfg.InstallPath, p.cfg.Account))
		return models.StepSkipped, detail, nil
	case res.UpdateErr != nil:
		warn(st, models.KindInstallFailure, StepSource, res.UpdateErr)
		return models.StepWarning, detail, nil
	}
	return models.StepOK, detail, nil
}

func (p *Provisioner) buildRuntime(ctx context.Context, st *run) (models.StepStatus, string, error) {
	target := pyenv.Target{
		Account:      p.cfg.Account,
		Python:       p.cfg.Python,
		Dir:          p.cfg.RuntimePath(),
		Requirements: p.cfg.Requirements,
		BestEffort:   p.cfg.BestEffortRequirements,
	}
	res, err := p.Runtime.Ensure(ctx, target)
	if err != nil {
		return "", "", models.NewStepError(models.KindInstallFailure, StepRuntime, err)
	}
	for _, f := range res.Failed {
		warn(st, models.KindInstallFailure, StepRuntime, f)
	}
	detail := fmt.Sprintf("%d requirement(s) in %s", len(target.Requirements), target.Dir)
	if res.Created {
		detail = "created, " + detail
	}
	if len(res.Failed) > 0 {
		return models.StepWarning, detail, nil
	}
	return models.StepOK, detail, nil
}

func (p *Provisioner) configureProxy(ctx context.Context, st *run) (models.StepStatus, string, error) {
	proxy := p.cfg.Proxy
	res, err := p.Proxy.Apply(proxy)
	if err != nil {
		return "", "", models.NewStepError(models.KindHostFailure, StepProxy, err)
	}
	if !res.Installed {
		st.out.AddNotice(fmt.Sprintf("%s is not installed, %s was not written and the workers will run without the local proxy", proxy.Binary, proxy.ConfigPath))
		return models.StepSkipped, proxy.Binary + " not installed", nil
	}
	st.proxyInstalled = true

	if err := p.Services.Reload(ctx); err != nil {
		return "", "", models.NewStepError(models.KindHostFailure, StepProxy, err)
	}
	status := models.StepOK
	if err := p.Services.Enable(ctx, proxy.Service); err != nil {
		warn(st, models.KindActivationWarning, StepProxy, err)
		status = models.StepWarning
	}
	if err := p.Services.Restart(ctx, proxy.Service); err != nil {
		warn(st, models.KindActivationWarning, StepProxy, err)
		status = models.StepWarning
	}
	detail := proxy.ConfigPath + " unchanged"
	if res.Changed {
		detail = proxy.ConfigPath + " written"
	}
	if res.BackedUp {
		detail += ", original saved to " + proxy.BackupPath
	}
	return status, detail, nil
}

func (p *Provisioner) writeUnits(ctx context.Context, st *run) (models.StepStatus, string, error) {
	rendered, err := units.Render(p.cfg)
	if err != nil {
		return "", "", models.NewStepError(models.KindHostFailure, StepUnits, err)
	}
	if err := units.Write(p.cfg.UnitDir, rendered); err != nil {
		return "", "", models.NewStepError(models.KindHostFailure, StepUnits, err)
	}
	var names []string
	for _, u := range rendered {
		names = append(names, u.FileName())
	}
	return models.StepOK, strings.Join(names, " "), nil
}

func (p *Provisioner) activate(ctx context.Context, st *run) (models.StepStatus, string, error) {
	if err := p.Services.Reload(ctx); err != nil {
		return "", "", models.NewStepError(models.KindHostFailure, StepActivate, err)
	}
	status := models.StepOK
	for _, unit := range p.workerUnits() {
		if err := p.Services.EnableNow(ctx, unit); err != nil {
			warn(st, models.KindActivationWarning, StepActivate, err)
			status = models.StepWarning
		}
	}
	return status, strings.Join(p.workerUnits(), " "), nil
}

func (p *Provisioner) fixOwnership(ctx context.Context, st *run) (models.StepStatus, string, error) {
	owner := p.cfg.Account + ":" + p.cfg.Account
	if _, err := p.r.Run(ctx, runner.Admin("chown", "-R", owner, p.cfg.InstallPath)); err != nil {
		warn(st, models.KindHostFailure, StepOwnership, err)
		return models.StepWarning, owner, nil
	}
	return models.StepOK, owner, nil
}

func (p *Provisioner) verify(ctx context.Context, st *run) (models.StepStatus, string, error) {
	status := models.StepOK
	active := 0
	for _, unit := range append([]string{p.cfg.Proxy.Service}, p.workerUnits()...) {
		s := p.Services.State(ctx, unit)
		st.out.Services = append(st.out.Services, s)
		if s.Active {
			active++
			continue
		}
		warn(st, models.KindActivationWarning, StepVerify, fmt.Errorf("%s is %s, see '%s'", unit, s.State, s.Hint))
		status = models.StepWarning
	}

	if st.proxyInstalled && p.Prober != nil {
		probe := p.Prober.Probe(p.cfg.Proxy.SocksPort)
		st.out.Proxy = &probe
		if !probe.Reachable {
			warn(st, models.KindActivationWarning, StepVerify, fmt.Errorf("SOCKS listener %s not reachable", probe.Address))
			status = models.StepWarning
		}
	}
	return status, fmt.Sprintf("%d/%d active", active, len(st.out.Services)), nil
}

func (p *Provisioner) workerUnits() []string {
	return []string{p.cfg.Gatherer.Unit, p.cfg.Watcher.Unit}
}
