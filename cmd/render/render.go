package render

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"paritybit-setup/cmd/root"
	"paritybit-setup/internal/config"
	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/torrc"
	"paritybit-setup/internal/units"
)

var unitDir string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the files provisioning would write, without touching the host",
}

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Render the gatherer and watcher systemd units",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Config.Provision
		if unitDir != "" {
			rendered, err := units.Render(cfg)
			if err != nil {
				return err
			}
			if err := units.Write(unitDir, rendered); err != nil {
				return err
			}
			logger.Infof("Units written to [%s]", unitDir)
			return nil
		}
		return printUnits(os.Stdout, cfg)
	},
}

var torrcCmd = &cobra.Command{
	Use:   "torrc",
	Short: "Render the tor configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printTorrc(os.Stdout, config.Config.Provision.Proxy)
	},
}

// printUnits writes every unit preceded by a comment naming its file.
func printUnits(w io.Writer, cfg config.ProvisionConfig) error {
	rendered, err := units.Render(cfg)
	if err != nil {
		return err
	}
	for i, u := range rendered {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "# %s\n", u.FileName())
		if _, err := w.Write(u.Content); err != nil {
			return err
		}
	}
	return nil
}

func printTorrc(w io.Writer, cfg config.ProxyConfig) error {
	content, err := torrc.Render(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

func init() {
	unitsCmd.Flags().StringVar(&unitDir, "dir", "", "write the units into this directory instead of printing them")

	renderCmd.AddCommand(unitsCmd)
	renderCmd.AddCommand(torrcCmd)
	root.RootCmd.AddCommand(renderCmd)

	renderCmd.Example = `  paritybit-setup render units
  paritybit-setup render torrc > /tmp/torrc`
}
