package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// BlobStorage defines the interface for encrypted file content storage
type BlobStorage interface {
	// Store saves content at the given path and returns the byte count
	Store(ctx context.Context, path string, content io.Reader) (int64, error)

	// Retrieve opens the content at the given path for streaming reads
	Retrieve(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes content at the given path; deleting content that is
	// already gone is not an error
	Delete(ctx context.Context, path string) error

	// Exists checks if content exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// GetSize returns the size of content at the given path
	GetSize(ctx context.Context, path string) (int64, error)
}

// FilePath is the canonical location of a stored file's ciphertext: one
// directory per owner, one object per file id.
func FilePath(ownerID, fileID uuid.UUID) string {
	return fmt.Sprintf("files/%s/%s", ownerID, fileID)
}
