package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/semmidev/replguard/internal/domain"
)

// Cleanup deletes offsite copies older than the retention period. Targets
// are purged concurrently; a failing target never stops the others.
type Cleanup struct {
	targets       []OffsiteTarget
	logger        Logger
	retentionDays int
	now           func() time.Time
}

func NewCleanup(targets []OffsiteTarget, logger Logger, retentionDays int) *Cleanup {
	return &Cleanup{
		targets:       targets,
		logger:        logger,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

func (uc *Cleanup) Execute(ctx context.Context) {
	if len(uc.targets) == 0 || uc.retentionDays <= 0 {
		return
	}

	cutoff := uc.now().AddDate(0, 0, -uc.retentionDays)
	uc.logger.Infof("Purging offsite copies older than %s", cutoff.Format(domain.DateLayout))

	var wg sync.WaitGroup
	for _, target := range uc.targets {
		wg.Go(func() {
			deleted, err := uc.purge(ctx, target, cutoff)
			switch {
			case errors.Is(err, domain.ErrListingUnsupported):
				uc.logger.Infof("Offsite %s keeps no listing, nothing purged", target.Name)
			case err != nil:
				uc.logger.Errorf("Offsite purge failed for %s: %v", target.Name, err)
			default:
				uc.logger.Infof("Purged %d old copies from %s", deleted, target.Name)
			}
		})
	}
	wg.Wait()
}

func (uc *Cleanup) purge(ctx context.Context, target OffsiteTarget, cutoff time.Time) (int, error) {
	names, err := target.Store.ListOlderThan(ctx, cutoff)
	if err != nil {
		if errors.Is(err, domain.ErrListingUnsupported) {
			return 0, err
		}
		uc.logger.Warnf("Offsite %s cannot list by age (%v), using names", target.Name, err)
		if names, err = uc.expiredByName(ctx, target, cutoff); err != nil {
			return 0, err
		}
	}

	deleted := 0
	for _, name := range ownCopies(names) {
		if err := target.Store.Delete(ctx, name); err != nil {
			uc.logger.Errorf("Failed to delete %s from %s: %v", name, target.Name, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// ownCopies keeps only names built by copyName; anything else in the
// target belongs to someone else and is never deleted.
func ownCopies(names []string) []string {
	var own []string
	for _, name := range names {
		if _, err := extractTimestamp(name); err == nil {
			own = append(own, name)
		}
	}
	return own
}

// expiredByName selects copies whose name carries a timestamp before cutoff.
func (uc *Cleanup) expiredByName(ctx context.Context, target OffsiteTarget, cutoff time.Time) ([]string, error) {
	names, err := target.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", target.Name, err)
	}

	var expired []string
	for _, name := range names {
		stamp, err := extractTimestamp(name)
		if err != nil {
			continue
		}
		if stamp.Before(cutoff) {
			expired = append(expired, name)
		}
	}
	return expired, nil
}
