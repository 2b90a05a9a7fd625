// Package document checks for and reads the scanned forms that get analyzed.
package document

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned by Open when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidKey is returned for keys that are empty or escape the store.
	ErrInvalidKey = errors.New("invalid document key")
)

// Store is the document storage collaborator. Callers check Exists before analysis.
type Store interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// ReadAll opens a document and reads it fully.
func ReadAll(ctx context.Context, s Store, bucket, key string) ([]byte, error) {
	rc, err := s.Open(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
