package rdiff

import (
	"context"
	"fmt"
	"time"

	"github.com/semmidev/replguard/internal/domain"
	"github.com/semmidev/replguard/internal/infrastructure/executor"
)

type Runner interface {
	Run(ctx context.Context, cmd executor.Command) ([]byte, error)
}

// Syncer keeps reverse increments with rdiff-backup.
type Syncer struct {
	runner       Runner
	binary       string
	syncTimeout  time.Duration
	pruneTimeout time.Duration
}

var _ domain.IncrementSyncer = (*Syncer)(nil)

func New(runner Runner, syncTimeout, pruneTimeout time.Duration) *Syncer {
	return &Syncer{
		runner:       runner,
		binary:       "rdiff-backup",
		syncTimeout:  syncTimeout,
		pruneTimeout: pruneTimeout,
	}
}

func (s *Syncer) Sync(ctx context.Context, from, to string) error {
	_, err := s.runner.Run(ctx, executor.Command{
		Name:    s.binary,
		Args:    []string{from, to},
		Timeout: s.syncTimeout,
	})
	if err != nil {
		return fmt.Errorf("rdiff-backup sync failed: %w", err)
	}
	return nil
}

// RemoveOlderThan drops increments older than age, an rdiff-backup time
// spec such as 4W.
func (s *Syncer) RemoveOlderThan(ctx context.Context, dir, age string) error {
	_, err := s.runner.Run(ctx, executor.Command{
		Name:    s.binary,
		Args:    []string{"--remove-older-than", age, "--force", dir},
		Timeout: s.pruneTimeout,
	})
	if err != nil {
		return fmt.Errorf("rdiff-backup prune failed: %w", err)
	}
	return nil
}
