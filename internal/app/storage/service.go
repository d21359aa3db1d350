/*
Package storage persists uploaded avatar files.

Two implementations exist behind StorageService: a local directory served under a public
static path, and an S3-compatible bucket. Callers write a file before referencing its key
anywhere else, and delete it again if the reference is never committed.
*/
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ServiceConfig holds the configuration required to build a storage service.
type ServiceConfig struct {
	// Driver selects the implementation: "disk" or "s3".
	Driver string

	// UploadsDir and PublicBaseURL configure the disk driver.
	UploadsDir    string
	PublicBaseURL string

	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicURL       string
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// Put writes body under key. It fails instead of overwriting an existing object,
	// and a failed Put leaves nothing readable under key.
	Put(ctx context.Context, key string, contentType string, size int64, body io.Reader) error

	// Delete removes the file specified by the given key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public address of key.
	URL(key string) string
}

const (
	DriverDisk = "disk"
	DriverS3   = "s3"
)

// NewStorageService is the factory function for StorageService.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverDisk:
		return NewDiskStore(cfg.UploadsDir, cfg.PublicBaseURL)
	case DriverS3:
		return newS3Client(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
