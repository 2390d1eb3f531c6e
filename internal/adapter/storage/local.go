package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/semmidev/replguard/internal/domain"
)

const partialSuffix = ".part"

// LocalDir keeps offsite copies in a directory, typically a mounted share.
// Copies are written under a temporary name and renamed once complete.
type LocalDir struct {
	root string
}

var _ domain.OffsiteStore = (*LocalDir)(nil)

func NewLocal(root string) (*LocalDir, error) {
	if root == "" {
		return nil, fmt.Errorf("local target path is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", root, err)
	}
	return &LocalDir{root: root}, nil
}

func (l *LocalDir) Put(ctx context.Context, localPath, name string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	final := filepath.Join(l.root, name)
	partial := final + partialSuffix
	if err := writeFile(partial, src); err != nil {
		os.Remove(partial)
		return err
	}
	return os.Rename(partial, final)
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to copy to %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return f.Close()
}

func (l *LocalDir) List(ctx context.Context) ([]string, error) {
	return l.collect(func(fs.FileInfo) bool { return true })
}

func (l *LocalDir) Delete(ctx context.Context, name string) error {
	if err := os.Remove(filepath.Join(l.root, name)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// ListOlderThan uses the modification time of each copy.
func (l *LocalDir) ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	return l.collect(func(info fs.FileInfo) bool { return info.ModTime().Before(cutoff) })
}

// collect returns the complete copies accepted by keep.
func (l *LocalDir) collect(keep func(fs.FileInfo) bool) ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.root, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), partialSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		if keep(info) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
