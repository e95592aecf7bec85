package root

import (
	"github.com/spf13/cobra"

	"paritybit-setup/internal/config"
	"paritybit-setup/internal/env"
	"paritybit-setup/internal/logger"
)

var (
	configFile string
	envFile    string
	logLevel   string
)

var RootCmd = &cobra.Command{
	Use:   "paritybit-setup",
	Short: "Provision a host for the paritybit crawler and scooper workers",
	Long: `paritybit-setup installs the OS packages, service account, workspace, python runtime,
tor proxy and systemd units that the paritybit workers need, then reports what it did.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// loadConfig fills config.Config and starts the logger before any subcommand runs.
func loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	config.Config = *cfg
	logger.InitLogger(&config.Config.Log)
	logger.Debugf("Configuration loaded, workspace %s", config.Config.Provision.InstallPath)
	return nil
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file (default ./paritybit-setup.yaml or /etc/paritybit-setup/paritybit-setup.yaml)")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", env.DefaultEnvFile, "dotenv file exported before reading configuration")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug/info/warn/error)")
}
