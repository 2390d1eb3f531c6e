package cmd

import (
	"github.com/spf13/cobra"
)

func newDaemonCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "run backups and health checks on their schedules",
		Long: `Run the backup and health workflows on the cron specs of the
schedule section until interrupted. Specs have a leading seconds field.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			return a.RunDaemon(cmd.Context())
		},
	}
}
