package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semmidev/replguard/internal/app"
	"github.com/semmidev/replguard/internal/config"
	"github.com/semmidev/replguard/internal/domain"
)

const defaultConfigPath = "/etc/replguard/config.yaml"

// application is what the commands need from *app.App.
type application interface {
	Backup(ctx context.Context, ids []string) error
	BackupStatus(ctx context.Context, ids []string, w io.Writer) error
	DBStatus(ctx context.Context, ids []string) (domain.HealthReport, error)
	RunDaemon(ctx context.Context) error
	Shutdown()
}

// appFactory loads the configuration and wires the application.
var appFactory = func(ctx context.Context, configPath string) (application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize app: %w", err)
	}
	return a, nil
}

// opener builds the application for the command being run.
type opener func(cmd *cobra.Command) (application, error)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "replguard",
		Short: "back up and watch replicated MySQL servers",
		Long: `Back up replicated MySQL servers running in docker containers and
watch their replication health.

Replication is paused while a server is dumped and always resumed
afterwards. Reports are mailed at most once a day, health problems as
soon as they are seen.`,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to the configuration file")

	open := func(cmd *cobra.Command) (application, error) {
		return appFactory(cmd.Context(), configPath)
	}
	root.AddCommand(newBackupCmd(open), newDBStatusCmd(open), newDaemonCmd(open))
	return root
}

// Execute runs the command line. A failure is printed and the process
// exits 1.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	return 0
}
