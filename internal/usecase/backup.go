package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/semmidev/replguard/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// BackupOptions holds the optional parts of a Backup.
type BackupOptions struct {
	LockPath string
	// Retention is the age passed to the increment pruner, e.g. 4W.
	Retention string
	Offsite   *Offsite
	Cleanup   *Cleanup
	Now       func() time.Time
}

// Backup dumps every selected replica while its replication is paused and
// keeps reverse increments of the dumps.
type Backup struct {
	replicas  domain.ReplicaFactory
	syncer    domain.IncrementSyncer
	notifier  domain.Notifier
	locker    domain.Locker
	logger    Logger
	lockPath  string
	retention string
	offsite   *Offsite
	cleanup   *Cleanup
	now       func() time.Time
}

func NewBackup(
	replicas domain.ReplicaFactory,
	syncer domain.IncrementSyncer,
	notifier domain.Notifier,
	locker domain.Locker,
	logger Logger,
	opts BackupOptions,
) *Backup {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Retention == "" {
		opts.Retention = "4W"
	}
	return &Backup{
		replicas:  replicas,
		syncer:    syncer,
		notifier:  notifier,
		locker:    locker,
		logger:    logger,
		lockPath:  opts.LockPath,
		retention: opts.Retention,
		offsite:   opts.Offsite,
		cleanup:   opts.Cleanup,
		now:       opts.Now,
	}
}

// Execute backs up servers one after the other. A server whose dump fails
// is recorded and the run moves on; pause, resume, sync and prune failures
// abort the run. The daily report is sent at most once per day.
func (uc *Backup) Execute(ctx context.Context, servers []domain.Server) error {
	lock, err := uc.locker.Acquire(uc.lockPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	start := uc.now()
	today := domain.Day(start)
	report := domain.BackupReport{Date: today}

	for _, server := range servers {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("backup interrupted before %s: %w", server.ID, err)
		}
		result, err := uc.backupServer(ctx, server)
		report.Servers = append(report.Servers, result)
		if err != nil {
			return err
		}
	}

	if uc.cleanup != nil {
		uc.cleanup.Execute(ctx)
	}

	if lock.LastDay() != today {
		if err := uc.notifier.NotifyBackup(ctx, report); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
		if err := lock.RecordDay(today); err != nil {
			return err
		}
		uc.logger.Infof("Daily report sent for %s", today)
	} else {
		uc.logger.Infof("Daily report already sent for %s", today)
	}

	uc.logger.Infof("Backup run completed in %s", uc.now().Sub(start).Round(time.Second))

	failed := report.Failed()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, f := range failed {
		errs = append(errs, f.Err)
	}
	return fmt.Errorf("%w: %w", domain.ErrPartialBackup, errors.Join(errs...))
}

// backupServer returns a non-nil error only when the whole run must stop.
func (uc *Backup) backupServer(ctx context.Context, server domain.Server) (domain.ServerBackup, error) {
	result := domain.ServerBackup{ServerID: server.ID, Outcome: domain.OutcomeFailed}
	uc.logger.Infof("[%s] Starting backup...", server.ID)

	if err := ensureDirs(server); err != nil {
		result.Err = &domain.StageError{Server: server.ID, Stage: domain.StagePrepare, Err: err}
		return result, result.Err
	}

	replica, err := uc.replicas(server)
	if err != nil {
		result.Err = &domain.StageError{Server: server.ID, Stage: domain.StagePrepare, Err: err}
		return result, result.Err
	}

	status, err := replica.RunningStatus(ctx)
	if err != nil || !domain.IsSlaveRunning(status) {
		if err != nil {
			uc.logger.Errorf("[%s] SLAVE STATUS UNAVAILABLE: %v", server.ID, err)
			result.Err = fmt.Errorf("%w: %w", domain.ErrReplicaNotRunning, err)
		} else {
			uc.logger.Errorf("[%s] SLAVE NOT RUNNING", server.ID)
			result.Err = domain.ErrReplicaNotRunning
		}
		result.Outcome = domain.OutcomeSkipped
		return result, nil
	}
	uc.logger.Infof("[%s] SLAVE OK", server.ID)

	if err := replica.StopSlave(ctx); err != nil {
		result.Err = &domain.StageError{Server: server.ID, Stage: domain.StagePause, Err: err}
		return result, result.Err
	}

	databases, dumpErr, resumeErr := uc.dumpPaused(ctx, server, replica)
	result.Databases = databases
	if resumeErr != nil {
		result.Err = errors.Join(resumeErr, dumpErr)
		return result, result.Err
	}
	if dumpErr != nil {
		uc.logger.Errorf("[%s] Backup failed: %v", server.ID, dumpErr)
		result.Err = dumpErr
		return result, nil
	}

	uc.logger.Infof("[%s] Syncing increments...", server.ID)
	if err := uc.syncer.Sync(ctx, server.StagingDir, server.BackupDir); err != nil {
		result.Err = &domain.StageError{Server: server.ID, Stage: domain.StageSync, Err: err}
		return result, result.Err
	}

	if err := uc.syncer.RemoveOlderThan(ctx, server.BackupDir, uc.retention); err != nil {
		result.Err = &domain.StageError{Server: server.ID, Stage: domain.StagePrune, Err: err}
		return result, result.Err
	}

	dumps, err := stagedDumps(server.StagingDir)
	if err != nil {
		result.Err = &domain.StageError{Server: server.ID, Stage: domain.StageCleanup, Err: err}
		return result, result.Err
	}

	if uc.offsite != nil {
		uc.offsite.Ship(ctx, server.ID, dumps)
	}

	for _, path := range dumps {
		if err := os.Remove(path); err != nil {
			result.Err = &domain.StageError{Server: server.ID, Stage: domain.StageCleanup, Err: err}
			return result, result.Err
		}
	}

	result.Outcome = domain.OutcomeSuccess
	result.Err = nil
	uc.logger.Infof("[%s] done", server.ID)
	return result, nil
}

// dumpPaused enumerates and dumps databases. Replication is resumed on
// every return path, exactly once, even when ctx is already cancelled.
func (uc *Backup) dumpPaused(
	ctx context.Context,
	server domain.Server,
	replica domain.Replica,
) (dumped []string, dumpErr, resumeErr error) {
	defer func() {
		if err := replica.StartSlave(context.WithoutCancel(ctx)); err != nil {
			resumeErr = &domain.StageError{Server: server.ID, Stage: domain.StageResume, Err: err}
		}
	}()

	databases, err := replica.ListDatabases(ctx)
	if err != nil {
		return nil, &domain.StageError{Server: server.ID, Stage: domain.StageEnumerate, Err: err}, nil
	}

	for _, db := range databases {
		if domain.IsSystemSchema(db) {
			continue
		}
		uc.logger.Infof("[%s] Dumping %s ...", server.ID, db)
		path := filepath.Join(server.StagingDir, db+".sql")
		if err := replica.Dump(ctx, db, path); err != nil {
			return dumped, &domain.StageError{
				Server: server.ID,
				Stage:  domain.StageDump,
				Err:    fmt.Errorf("database %s: %w", db, err),
			}, nil
		}
		dumped = append(dumped, db)
	}

	return dumped, nil, nil
}

// Status writes the raw replication status of every server to w. Nothing
// is locked or modified.
func (uc *Backup) Status(ctx context.Context, servers []domain.Server, w io.Writer) error {
	for _, server := range servers {
		fmt.Fprintln(w, server.ID)

		replica, err := uc.replicas(server)
		if err != nil {
			return &domain.StageError{Server: server.ID, Stage: domain.StagePrepare, Err: err}
		}
		status, err := replica.SlaveStatus(ctx)
		if err != nil {
			return &domain.StageError{Server: server.ID, Stage: domain.StageProbe, Err: err}
		}
		fmt.Fprintln(w, status)
	}
	return nil
}

// ensureDirs creates the staging and durable directories and drops dumps
// left behind by an interrupted run.
func ensureDirs(server domain.Server) error {
	for _, dir := range []string{server.StagingDir, server.BackupDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	stale, err := stagedDumps(server.StagingDir)
	if err != nil {
		return err
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove stale dump: %w", err)
		}
	}
	return nil
}

func stagedDumps(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.sql"))
}
