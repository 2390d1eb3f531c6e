package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/semmidev/replguard/internal/adapter/compressor"
	"github.com/semmidev/replguard/internal/adapter/database"
	"github.com/semmidev/replguard/internal/adapter/notifier"
	"github.com/semmidev/replguard/internal/adapter/rdiff"
	"github.com/semmidev/replguard/internal/adapter/storage"
	"github.com/semmidev/replguard/internal/config"
	"github.com/semmidev/replguard/internal/domain"
	"github.com/semmidev/replguard/internal/infrastructure/executor"
	"github.com/semmidev/replguard/internal/infrastructure/lock"
	"github.com/semmidev/replguard/internal/infrastructure/logger"
	"github.com/semmidev/replguard/internal/infrastructure/scheduler"
	"github.com/semmidev/replguard/internal/usecase"
)

// ErrNoSchedule is returned by RunDaemon when neither workflow has a cron spec.
var ErrNoSchedule = errors.New("no schedule configured")

type App struct {
	config         *config.Config
	logger         *logger.Logger
	servers        []domain.Server
	backup         *usecase.Backup
	health         *usecase.Health
	offsiteTargets []usecase.OffsiteTarget
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(loggerOptions(cfg.App))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	servers := cfg.ServerList()
	log.Debugf("Starting %s with %d server(s): %v", cfg.App.Name, len(servers), domain.ServerIDs(servers))

	notify, err := initializeNotifiers(cfg, log)
	if err != nil {
		return nil, err
	}

	runner := executor.New()
	replicas := replicaFactory(runner, cfg.Timeouts)
	locker := lock.NewManager()

	offsiteTargets := initializeOffsiteTargets(ctx, cfg, log)
	opts := usecase.BackupOptions{
		LockPath:  cfg.BackupLockPath(),
		Retention: cfg.Retention.Increments,
	}
	if len(offsiteTargets) > 0 {
		opts.Offsite = usecase.NewOffsite(offsiteTargets, compressor.NewGzip(), log, cfg.Offsite.Compress)
		opts.Cleanup = usecase.NewCleanup(offsiteTargets, log, cfg.Retention.OffsiteDays)
	}

	backup := usecase.NewBackup(
		replicas,
		rdiff.New(runner, cfg.Timeouts.Sync, cfg.Timeouts.Prune),
		notify,
		locker,
		log,
		opts,
	)
	health := usecase.NewHealth(replicas, notify, locker, log, cfg.HealthLockPath())

	return &App{
		config:         cfg,
		logger:         log,
		servers:        servers,
		backup:         backup,
		health:         health,
		offsiteTargets: offsiteTargets,
	}, nil
}

func loggerOptions(cfg config.AppConfig) logger.Options {
	return logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Quiet: cfg.LogQuiet}
}

// replicaFactory reads the server secret at use time so a rotated password
// file is picked up by the next run.
func replicaFactory(runner database.Runner, timeouts config.TimeoutsConfig) domain.ReplicaFactory {
	return func(server domain.Server) (domain.Replica, error) {
		password, err := usecase.ResolveSecret(server)
		if err != nil {
			return nil, err
		}
		return database.NewMySQL(runner, server, password, database.Timeouts{
			Query: timeouts.Query,
			Dump:  timeouts.Dump,
		}), nil
	}
}

func initializeNotifiers(cfg *config.Config, log *logger.Logger) (domain.Notifier, error) {
	email, err := notifier.NewEmail(cfg.Notify.Email, cfg.Notify.Recipients)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email: %w", err)
	}
	channels := notifier.Multi{email}

	if cfg.Notify.Telegram.Enabled {
		tg, err := notifier.NewTelegram(cfg.Notify.Telegram)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telegram: %w", err)
		}
		channels = append(channels, tg)
		log.Debugf("Telegram alerts enabled")
	}

	return channels, nil
}

// initializeOffsiteTargets builds the offsite targets. A target that cannot
// be built is logged and left out; offsite copies never block a backup.
func initializeOffsiteTargets(ctx context.Context, cfg *config.Config, log *logger.Logger) []usecase.OffsiteTarget {
	var targets []usecase.OffsiteTarget

	for _, targetCfg := range cfg.EnabledOffsiteTargets() {
		var store domain.OffsiteStore
		var err error

		switch targetCfg.Type {
		case "local":
			store, err = storage.NewLocal(targetCfg.Path)
		case "gdrive":
			store, err = storage.NewGDrive(ctx, &targetCfg)
		case "s3":
			store, err = storage.NewS3(ctx, &targetCfg)
		case "telegram":
			store, err = storage.NewTelegram(&targetCfg)
		default:
			log.Warnf("Unknown offsite target type: %s", targetCfg.Type)
			continue
		}
		if err != nil {
			log.Errorf("Failed to initialize %s target: %v", targetCfg.Type, err)
			continue
		}

		targets = append(targets, usecase.OffsiteTarget{
			Name:  targetCfg.Type,
			Store: store,
		})
	}

	return targets
}

// Backup runs the backup workflow over the requested servers, or all of
// them when ids is empty.
func (a *App) Backup(ctx context.Context, ids []string) error {
	servers, err := usecase.Resolve(a.servers, ids)
	if err != nil {
		return err
	}
	return a.backup.Execute(ctx, servers)
}

// BackupStatus prints the raw replication status of the requested servers.
func (a *App) BackupStatus(ctx context.Context, ids []string, w io.Writer) error {
	servers, err := usecase.Resolve(a.servers, ids)
	if err != nil {
		return err
	}
	return a.backup.Status(ctx, servers, w)
}

// DBStatus runs the health workflow over the requested servers.
func (a *App) DBStatus(ctx context.Context, ids []string) (domain.HealthReport, error) {
	servers, err := usecase.Resolve(a.servers, ids)
	if err != nil {
		return domain.HealthReport{}, err
	}
	return a.health.Execute(ctx, servers)
}

// RunDaemon schedules both workflows over every server and blocks until
// ctx is cancelled.
func (a *App) RunDaemon(ctx context.Context) error {
	sched := a.config.Schedule
	if sched.Backup == "" && sched.Health == "" {
		return ErrNoSchedule
	}

	s := scheduler.New(a.logger)
	if sched.Backup != "" {
		if err := s.AddJob("backup", sched.Backup, func(ctx context.Context) error {
			return a.Backup(ctx, nil)
		}); err != nil {
			return fmt.Errorf("failed to schedule backup: %w", err)
		}
		a.logger.Infof("Scheduled backup: %s", sched.Backup)
	}
	if sched.Health != "" {
		if err := s.AddJob("health check", sched.Health, func(ctx context.Context) error {
			_, err := a.DBStatus(ctx, nil)
			return err
		}); err != nil {
			return fmt.Errorf("failed to schedule health check: %w", err)
		}
		a.logger.Infof("Scheduled health check: %s", sched.Health)
	}

	s.Start(ctx)
	a.logger.Infof("Daemon started for %d server(s), %d offsite target(s)", len(a.servers), len(a.offsiteTargets))

	<-ctx.Done()
	a.logger.Infof("Stopping scheduler, waiting for running jobs...")
	s.Stop()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Close()
}
