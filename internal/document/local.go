package document

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements Store on a directory tree: <root>/<bucket>/<key>.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at root.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local store root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	return &LocalStore{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute root directory.
func (s *LocalStore) Root() string { return s.root }

// Path resolves bucket and key to a file path inside the bucket directory.
func (s *LocalStore) Path(bucket, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	base := filepath.Join(s.root, bucket)
	if !within(s.root, base) || base == s.root {
		return "", fmt.Errorf("%w: bucket %s", ErrInvalidKey, bucket)
	}
	p := filepath.Join(base, filepath.FromSlash(key))
	if !within(base, p) || p == base {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return p, nil
}

// within reports whether p is dir or lies below it.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Exists reports whether the document is a regular file.
func (s *LocalStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	p, err := s.Path(bucket, key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Open opens the document file.
func (s *LocalStore) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	p, err := s.Path(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return f, nil
}
