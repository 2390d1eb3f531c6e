// Package lock provides per-workflow exclusive locks backed by advisory file
// locks. The locked file also stores the last day a report was sent.
//
// The kernel drops the advisory lock when the owning process exits, so a
// crashed run never leaves the lock held.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/semmidev/replguard/internal/domain"
)

// ErrContention is returned when another process holds the lock.
var ErrContention = errors.New("could not lock: another run is probably in progress")

// File is a held lock. It must stay open for the whole workflow.
type File struct {
	path    string
	flock   *flock.Flock
	lastDay string
}

var _ domain.RunLock = (*File)(nil)

// Acquire opens or creates path and takes a non-blocking exclusive lock.
func Acquire(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (%s)", ErrContention, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}

	return &File{
		path:    path,
		flock:   fl,
		lastDay: strings.TrimSpace(string(data)),
	}, nil
}

func (f *File) LastDay() string {
	return f.lastDay
}

// RecordDay overwrites the stored day.
func (f *File) RecordDay(day string) error {
	if err := os.WriteFile(f.path, []byte(day), 0644); err != nil {
		return fmt.Errorf("failed to record day in %s: %w", f.path, err)
	}
	f.lastDay = day
	return nil
}

func (f *File) Release() error {
	return f.flock.Unlock()
}

// Manager adapts Acquire to domain.Locker.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Acquire(path string) (domain.RunLock, error) {
	f, err := Acquire(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}
