// Package storage defines the persistence interface for extraction history.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/formkv/internal/models"
)

// ErrNotFound is returned when an extraction id is unknown.
var ErrNotFound = errors.New("extraction not found")

// Storage defines extraction history operations.
type Storage interface {
	SaveExtraction(ctx context.Context, e *models.Extraction) error
	GetExtraction(ctx context.Context, id string) (*models.Extraction, error)
	ListExtractions(ctx context.Context, offset, limit int) ([]*models.Extraction, error)
	DeleteExtraction(ctx context.Context, id string) error
	CountExtractions(ctx context.Context) (int64, error)

	Close() error
}
