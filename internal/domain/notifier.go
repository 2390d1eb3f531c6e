package domain

import "context"

// Notifier delivers reports to operators.
type Notifier interface {
	NotifyBackup(ctx context.Context, report BackupReport) error
	NotifyHealth(ctx context.Context, report HealthReport) error
}
