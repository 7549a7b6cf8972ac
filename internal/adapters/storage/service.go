// Package storage archives raw import payloads in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"time"
)

// ImportArchive stores the raw payload of a committed import.
type ImportArchive interface {
	// Archive uploads data and returns the object key it was stored under.
	Archive(ctx context.Context, obj ArchiveObject) (string, error)
}

// ArchiveObject is one payload to archive.
type ArchiveObject struct {
	ID          string
	CallerID    string
	Extension   string
	ContentType string
	Data        []byte
	Records     int
	At          time.Time
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketImports() string
	IsMinIOEnabled() bool
}

// ObjectKey lays payloads out by UTC day: imports/<yyyy>/<mm>/<dd>/<id>.<ext>.
func ObjectKey(obj ArchiveObject) string {
	at := obj.At.UTC()
	return fmt.Sprintf("imports/%04d/%02d/%02d/%s.%s", at.Year(), int(at.Month()), at.Day(), obj.ID, obj.Extension)
}

// NoopArchive is used when object storage is not configured.
type NoopArchive struct{}

// Archive does nothing.
func (NoopArchive) Archive(context.Context, ArchiveObject) (string, error) {
	return "", nil
}
