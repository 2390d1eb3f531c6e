package cmd

import (
	"github.com/spf13/cobra"
)

func newBackupCmd(open opener) *cobra.Command {
	var args struct {
		servers []string
		status  bool
	}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "dump every database of the selected replicas",
		Long: `Dump every database of the selected replicas.

For each server, replication is checked, paused, every non-system
database is dumped, replication is resumed, and the dumps are folded
into the reverse-increment history with rdiff-backup. Servers whose
replication is not running are skipped.

With --status, only the raw replication status of each server is
printed and nothing is changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			if args.status {
				return a.BackupStatus(cmd.Context(), args.servers, cmd.OutOrStdout())
			}
			return a.Backup(cmd.Context(), args.servers)
		},
	}

	fs := cmd.Flags()
	fs.StringArrayVarP(&args.servers, "serveur", "s", nil, "Server id to back up (repeatable, default all)")
	fs.BoolVar(&args.status, "status", false, "Print the replication status of each server and exit")
	return cmd
}
