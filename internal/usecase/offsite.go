package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/semmidev/replguard/internal/domain"
)

// OffsiteTarget is a named offsite store.
type OffsiteTarget struct {
	Name  string
	Store domain.OffsiteStore
}

// Offsite copies staged dumps to remote targets. Failures are logged and
// never fail the backup.
type Offsite struct {
	targets    []OffsiteTarget
	compressor domain.Compressor
	logger     Logger
	compress   bool
	now        func() time.Time
}

func NewOffsite(
	targets []OffsiteTarget,
	compressor domain.Compressor,
	logger Logger,
	compress bool,
) *Offsite {
	return &Offsite{
		targets:    targets,
		compressor: compressor,
		logger:     logger,
		compress:   compress,
		now:        time.Now,
	}
}

// Ship uploads every dump of a server to every target.
func (uc *Offsite) Ship(ctx context.Context, serverID string, dumps []string) {
	if len(uc.targets) == 0 {
		return
	}

	at := uc.now()
	for _, dump := range dumps {
		database := strings.TrimSuffix(filepath.Base(dump), ".sql")
		filename := copyName(serverID, database, at)

		path := dump
		if uc.compress {
			compressed, err := uc.compressDump(serverID, dump, filename)
			if err != nil {
				uc.logger.Errorf("[%s] Failed to compress %s: %v", serverID, database, err)
				continue
			}
			path, filename = compressed, filename+".gz"
		}

		uc.uploadToTargets(ctx, serverID, path, filename)

		if path != dump {
			os.Remove(path)
		}
	}
}

func (uc *Offsite) compressDump(serverID, dump, filename string) (string, error) {
	compressedPath := filepath.Join(os.TempDir(), filename+".gz")
	if err := uc.compressor.Compress(dump, compressedPath); err != nil {
		return "", fmt.Errorf("compression: %w", err)
	}

	if info, err := os.Stat(compressedPath); err == nil {
		uc.logger.Infof("[%s] Compressed %s, size: %.2f MB", serverID, filename, float64(info.Size())/(1024*1024))
	}
	return compressedPath, nil
}

func (uc *Offsite) uploadToTargets(ctx context.Context, serverID, filePath, filename string) {
	for _, target := range uc.targets {
		uc.logger.Infof("[%s] Uploading %s to %s...", serverID, filename, target.Name)
		if err := target.Store.Put(ctx, filePath, filename); err != nil {
			uc.logger.Errorf("[%s] Failed to upload to %s: %v", serverID, target.Name, err)
			continue
		}
		uc.logger.Infof("[%s] Successfully uploaded to %s", serverID, target.Name)
	}
}
