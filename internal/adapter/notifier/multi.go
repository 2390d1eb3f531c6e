package notifier

import (
	"context"
	"errors"

	"github.com/semmidev/replguard/internal/domain"
)

// Multi fans a report out to every channel. Every channel is tried; any
// failure is returned.
type Multi []domain.Notifier

func (m Multi) NotifyBackup(ctx context.Context, report domain.BackupReport) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyBackup(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyHealth(ctx context.Context, report domain.HealthReport) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyHealth(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
