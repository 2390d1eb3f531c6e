package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/semmidev/replguard/internal/domain"
)

// Health checks replication of every selected server and reports once per
// day, or immediately when something is wrong.
type Health struct {
	replicas domain.ReplicaFactory
	notifier domain.Notifier
	locker   domain.Locker
	logger   Logger
	lockPath string
	now      func() time.Time
}

func NewHealth(
	replicas domain.ReplicaFactory,
	notifier domain.Notifier,
	locker domain.Locker,
	logger Logger,
	lockPath string,
) *Health {
	return &Health{
		replicas: replicas,
		notifier: notifier,
		locker:   locker,
		logger:   logger,
		lockPath: lockPath,
		now:      time.Now,
	}
}

func (uc *Health) Execute(ctx context.Context, servers []domain.Server) (domain.HealthReport, error) {
	var report domain.HealthReport

	for _, server := range servers {
		state := uc.check(ctx, server)
		report.Add(server.ID, state)

		line := state.StatusLine(server.ID)
		if state.Classify().IsError() {
			uc.logger.Errorf("%s", line)
		} else {
			uc.logger.Infof("%s", line)
		}
	}

	lock, err := uc.locker.Acquire(uc.lockPath)
	if err != nil {
		return report, err
	}
	defer lock.Release()

	today := domain.Day(uc.now())
	report.Date = today

	if lock.LastDay() == today && !report.HasError {
		uc.logger.Infof("Replication OK, report already sent for %s", today)
		return report, nil
	}

	if err := uc.notifier.NotifyHealth(ctx, report); err != nil {
		return report, fmt.Errorf("notify: %w", err)
	}
	if err := lock.RecordDay(today); err != nil {
		return report, err
	}

	return report, nil
}

func (uc *Health) check(ctx context.Context, server domain.Server) domain.ReplicationState {
	replica, err := uc.replicas(server)
	if err != nil {
		return domain.ReplicationState{ProbeError: err}
	}

	out, err := replica.RunningStatus(ctx)
	if err != nil {
		return domain.ReplicationState{ProbeError: err}
	}
	if !domain.IsSlaveRunning(out) {
		return domain.ReplicationState{}
	}

	status, err := replica.SlaveStatus(ctx)
	if err != nil {
		return domain.ReplicationState{Running: true, ProbeError: err}
	}

	lag, err := domain.ParseLag(status)
	return domain.ReplicationState{Running: true, Lag: lag, LagError: err}
}
