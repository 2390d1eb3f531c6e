package domain

import (
	"context"
	"errors"
	"time"
)

// ErrListingUnsupported is returned by stores that can only receive copies.
var ErrListingUnsupported = errors.New("offsite store cannot list copies")

// OffsiteStore keeps copies of dumps away from the backup host.
type OffsiteStore interface {
	Put(ctx context.Context, localPath, name string) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	// ListOlderThan returns the copies stored before cutoff.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}
