package status

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"paritybit-setup/cmd/root"
	"paritybit-setup/internal/config"
	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/models"
	"paritybit-setup/internal/output"
	"paritybit-setup/internal/rpc"
	"paritybit-setup/internal/runner"
	"paritybit-setup/services"
)

var (
	format string
	local  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tor and worker status, the SOCKS probe and worker artifacts",
	Long: `Asks a running 'paritybit-setup server' for the host status and falls back to
checking locally when no server answers. Exits non-zero when the host is degraded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !output.ValidFormat(format) {
			return fmt.Errorf("unsupported output format %q", format)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var client *rpc.Client
		if !local {
			client = rpc.NewHTTPClient(rpc.DefaultHTTPConfig(config.Config.Server.Address))
			defer client.Close()
		}
		report := collect(ctx, client, localStatus())
		if err := output.Status(os.Stdout, format, report); err != nil {
			return err
		}
		if report.OverallStatus != models.OverallHealthy {
			return errors.New("host is degraded")
		}
		return nil
	},
}

func localStatus() *services.StatusService {
	cfg := config.Config.Provision
	return services.NewStatusService(cfg,
		services.NewServiceManager(runner.NewExec()),
		services.NewProber("127.0.0.1", 3*time.Second),
		services.NewStateStore(config.Config.StateDir))
}

/**
 * Get the status report from the server, or locally
 * @param {context.Context} ctx - deadline for both paths
 * @param {*rpc.Client} client - server client, nil skips the server
 * @param {*services.StatusService} svc - local checks
 * @returns {models.StatusReport} The report
 * @description
 * - Any server error (not running, bad answer) falls back to the local checks
 */
func collect(ctx context.Context, client *rpc.Client, svc *services.StatusService) models.StatusReport {
	if client != nil {
		var report models.StatusReport
		err := client.Get(ctx, "/api/v1/status", &report)
		if err == nil {
			logger.Debugf("Status served by [%s]", config.Config.Server.Address)
			return report
		}
		logger.Debugf("Server status unavailable, checking locally: %v", err)
	}
	return svc.Status(ctx)
}

func init() {
	statusCmd.Flags().StringVarP(&format, "output", "o", output.FormatText, "output format (text/json/yaml)")
	statusCmd.Flags().BoolVar(&local, "local", false, "check locally without asking the server")

	root.RootCmd.AddCommand(statusCmd)
}
