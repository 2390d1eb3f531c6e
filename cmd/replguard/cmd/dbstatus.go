package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDBStatusCmd(open opener) *cobra.Command {
	var servers []string

	cmd := &cobra.Command{
		Use:   "dbstatus",
		Short: "check replication health of the selected replicas",
		Long: `Check replication health of the selected replicas.

One line per server is printed. The report is mailed when a server is
in error, and otherwise once a day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			report, err := a.DBStatus(cmd.Context(), servers)
			for _, line := range report.Lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return err
		},
	}

	cmd.Flags().StringArrayVarP(&servers, "serveur", "s", nil, "Server id to check (repeatable, default all)")
	return cmd
}
