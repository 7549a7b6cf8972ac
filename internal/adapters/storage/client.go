package storage

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOArchive implements ImportArchive using MinIO.
type MinIOArchive struct {
	client *minio.Client
	bucket string
}

// NewMinIOArchive creates a new MinIO-backed archive.
func NewMinIOArchive(cfg Config) (*MinIOArchive, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOArchive{client: client, bucket: cfg.GetMinioBucketImports()}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOArchive) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// Archive uploads the payload with the caller recorded as object metadata.
func (s *MinIOArchive) Archive(ctx context.Context, obj ArchiveObject) (string, error) {
	if err := ValidateObject(obj); err != nil {
		return "", err
	}

	key := ObjectKey(obj)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(obj.Data), int64(len(obj.Data)), minio.PutObjectOptions{
		ContentType: obj.ContentType,
		UserMetadata: map[string]string{
			"caller-id": obj.CallerID,
			"records":   strconv.Itoa(obj.Records),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}
