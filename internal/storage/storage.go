// Package storage stores note exports in an object storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/notesapp/apiserver/config"
)

// ErrObjectNotFound is returned when the requested key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage is the subset of bucket operations used for exports.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
	Close() error
}

// Open returns the backend selected by cfg.Backend. It returns a nil
// ObjectStorage and no error when exports are disabled.
func Open(ctx context.Context, cfg config.ExportConfig) (ObjectStorage, error) {
	switch cfg.Backend {
	case "", config.BackendNone:
		return nil, nil
	case config.BackendMinio:
		return NewMinioClient(cfg.Minio)
	case config.BackendGCS:
		return NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unsupported export backend %q", cfg.Backend)
	}
}
