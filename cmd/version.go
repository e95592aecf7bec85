package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"paritybit-setup/cmd/root"
	"paritybit-setup/internal/env"
)

func PrintVersions() {
	fmt.Printf("Version %s\n", env.Version)
	fmt.Printf("Build Time: %s\n", env.BuildTime)
	fmt.Printf("Build Tag: %s\n", env.BuildTag)
	fmt.Printf("Build Commit ID: %s\n", env.BuildCommitId)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `The 'version' command shows version details including git commit and build time`,
	// no configuration needed
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		PrintVersions()
	},
}

func init() {
	root.RootCmd.AddCommand(versionCmd)

	versionCmd.Example = `  paritybit-setup version`
}
