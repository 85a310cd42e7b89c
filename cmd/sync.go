package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Clone or update the shared review repository",
	Long: `Clone the review repository into the workspace if it is not there yet,
otherwise pull the latest changes. Requires sync.enabled and sync.repo_url.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return syncRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func syncRun(cmd *cobra.Command) error {
	if dryRun {
		ui.DryRunMsg("Would sync %s into %s", viper.GetString("sync.repo_url"), viper.GetString("workspace"))
		return nil
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	msg, err := svc.Setup(cmd.Context())
	if err != nil {
		return err
	}
	ui.Success("%s", msg)
	return nil
}
