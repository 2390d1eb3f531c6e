package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/semmidev/replguard/internal/config"
	"github.com/semmidev/replguard/internal/domain"
)

// DriveFolder keeps offsite copies in one Google Drive folder.
type DriveFolder struct {
	service  *drive.Service
	folderID string
}

var _ domain.OffsiteStore = (*DriveFolder)(nil)

// NewGDrive authenticates with a service account credentials file.
func NewGDrive(ctx context.Context, cfg *config.OffsiteTarget) (*DriveFolder, error) {
	if cfg.FolderID == "" {
		return nil, fmt.Errorf("gdrive folder_id is required")
	}

	service, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveFolder{service: service, folderID: cfg.FolderID}, nil
}

func (d *DriveFolder) Put(ctx context.Context, localPath, name string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	meta := &drive.File{Name: name, Parents: []string{d.folderID}}
	if _, err := d.service.Files.Create(meta).Media(f).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to upload %s to drive: %w", name, err)
	}
	return nil
}

func (d *DriveFolder) List(ctx context.Context) ([]string, error) {
	files, err := d.find(ctx, "")
	if err != nil {
		return nil, err
	}
	return names(files), nil
}

// Delete removes every file of the folder with that name.
func (d *DriveFolder) Delete(ctx context.Context, name string) error {
	files, err := d.find(ctx, fmt.Sprintf("name = '%s'", escapeQuery(name)))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%s not found in drive folder", name)
	}

	for _, f := range files {
		if err := d.service.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
	}
	return nil
}

func (d *DriveFolder) ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	files, err := d.find(ctx, fmt.Sprintf("createdTime < '%s'", cutoff.UTC().Format(time.RFC3339)))
	if err != nil {
		return nil, err
	}
	return names(files), nil
}

// find pages through the folder's files matching the extra query clause.
func (d *DriveFolder) find(ctx context.Context, clause string) ([]*drive.File, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(d.folderID))
	if clause != "" {
		q += " and " + clause
	}

	var files []*drive.File
	err := d.service.Files.List().
		Q(q).
		Fields("nextPageToken, files(id, name)").
		Pages(ctx, func(page *drive.FileList) error {
			files = append(files, page.Files...)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to query drive folder: %w", err)
	}
	return files, nil
}

func names(files []*drive.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
