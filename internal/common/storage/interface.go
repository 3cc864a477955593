package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the object operations the submission archive needs.
type ObjectStorage interface {
	// PutObject uploads size bytes from reader under objectKey.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error
}
