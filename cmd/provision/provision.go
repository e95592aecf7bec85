package provision

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"paritybit-setup/cmd/root"
	"paritybit-setup/internal/config"
	"paritybit-setup/internal/host"
	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/output"
	"paritybit-setup/internal/runner"
	"paritybit-setup/services"
)

type provisionOptions struct {
	repo            string
	branch          string
	installPath     string
	account         string
	intervalMinutes int
	pollSeconds     int
	bestEffortDeps  bool
	newnym          bool
	format          string
}

var opts provisionOptions

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision this host for the paritybit workers",
	Long: `Installs OS packages, creates the service account and workspace, fetches the workers,
builds their python runtime, configures tor and installs the systemd units, then starts
everything and prints a Run Outcome. Must run as root; safe to re-run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !output.ValidFormat(opts.format) {
			return fmt.Errorf("unsupported output format %q", opts.format)
		}
		cfg := config.Config.Provision
		applyFlags(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runProvision(ctx, cfg)
	},
}

// applyFlags overrides configuration values with the flags given explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.ProvisionConfig) {
	flags := cmd.Flags()
	if flags.Changed("repo") {
		cfg.Repository = opts.repo
	}
	if flags.Changed("branch") {
		cfg.Branch = opts.branch
	}
	if flags.Changed("install-path") {
		cfg.InstallPath = opts.installPath
	}
	if flags.Changed("account") {
		cfg.Account = opts.account
	}
	if flags.Changed("interval-minutes") {
		cfg.Gatherer.IntervalMinutes = opts.intervalMinutes
	}
	if flags.Changed("poll-interval") {
		cfg.Watcher.PollSeconds = opts.pollSeconds
	}
	if flags.Changed("best-effort-deps") {
		cfg.BestEffortRequirements = opts.bestEffortDeps
	}
	if flags.Changed("newnym") {
		cfg.Gatherer.Newnym = opts.newnym
	}
}

/**
 * Run the provisioner and print its outcome
 * @param {context.Context} ctx - cancelled on SIGINT/SIGTERM, the current step finishes and the run stops
 * @param {config.ProvisionConfig} cfg - effective configuration
 * @returns {error} The fatal step error, nil when the run completed (possibly with warnings)
 */
func runProvision(ctx context.Context, cfg config.ProvisionConfig) error {
	store := services.NewStateStore(config.Config.StateDir)
	p := services.NewProvisioner(cfg, host.Local(), runner.NewExec(), store)
	p.MetricsTextfile = config.Config.Metrics.Textfile

	out, fatal := p.Run(ctx)
	if err := output.Outcome(os.Stdout, opts.format, out); err != nil {
		logger.Errorf("Print outcome failed: %v", err)
	}
	if fatal != nil {
		return fmt.Errorf("provisioning aborted: %w", fatal)
	}
	return nil
}

func init() {
	flags := provisionCmd.Flags()
	flags.StringVar(&opts.repo, "repo", "", "repository locator of the worker sources (empty: deploy manually)")
	flags.StringVar(&opts.branch, "branch", "", "branch to clone")
	flags.StringVar(&opts.installPath, "install-path", "", "workspace directory")
	flags.StringVar(&opts.account, "account", "", "service account name")
	flags.IntVar(&opts.intervalMinutes, "interval-minutes", 0, "gatherer run interval in minutes")
	flags.IntVar(&opts.pollSeconds, "poll-interval", 0, "watcher poll interval in seconds")
	flags.BoolVar(&opts.bestEffortDeps, "best-effort-deps", false, "continue when a python requirement fails to install")
	flags.BoolVar(&opts.newnym, "newnym", false, "ask the gatherer to request a new tor circuit per run")
	flags.StringVarP(&opts.format, "output", "o", output.FormatText, "output format (text/json/yaml)")

	root.RootCmd.AddCommand(provisionCmd)

	provisionCmd.Example = `  # provision from a repository
  sudo paritybit-setup provision --repo https://github.com/example/paritybit.git

  # manual deployment, machine readable report
  sudo paritybit-setup provision -o json`
}
