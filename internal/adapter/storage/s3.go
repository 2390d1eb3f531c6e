package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	appconfig "github.com/semmidev/replguard/internal/config"
	"github.com/semmidev/replguard/internal/domain"
)

// S3Bucket keeps offsite copies under a prefix of an S3 or S3-compatible bucket.
type S3Bucket struct {
	client   *s3.Client
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

var _ domain.OffsiteStore = (*S3Bucket)(nil)

// NewS3 creates an S3Bucket. Static keys are used when given, otherwise the
// default AWS credential chain applies. A custom endpoint switches to
// path-style addressing for S3-compatible stores.
func NewS3(ctx context.Context, cfg *appconfig.OffsiteTarget) (*S3Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})
	uploader := s3manager.NewUploader(client)

	return &S3Bucket{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
	}, nil
}

// Put streams a local file to bucket/prefix/name.
func (s *S3Bucket) Put(ctx context.Context, localPath, name string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	key := path.Join(s.prefix, name)

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// List returns every object name under the prefix.
func (s *S3Bucket) List(ctx context.Context) ([]string, error) {
	return s.listObjects(ctx, func(types.Object) bool { return true })
}

// Delete removes prefix/name.
func (s *S3Bucket) Delete(ctx context.Context, name string) error {
	key := path.Join(s.prefix, name)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// ListOlderThan returns objects last modified before cutoff.
func (s *S3Bucket) ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	return s.listObjects(ctx, func(obj types.Object) bool {
		return obj.LastModified != nil && obj.LastModified.Before(cutoff)
	})
}

func (s *S3Bucket) listObjects(ctx context.Context, keep func(types.Object) bool) ([]string, error) {
	var files []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &s.prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || !keep(obj) {
				continue
			}
			name := strings.TrimPrefix(strings.TrimPrefix(*obj.Key, s.prefix), "/")
			if name != "" {
				files = append(files, name)
			}
		}
	}
	return files, nil
}
