// Package service runs the form extraction flow: existence check, analysis,
// key/value pairing and history recording.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/formkv/internal/analysis"
	"github.com/hyperjump/formkv/internal/document"
	"github.com/hyperjump/formkv/internal/forms"
	"github.com/hyperjump/formkv/internal/models"
	"github.com/hyperjump/formkv/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrMissingFile is returned when no document name was given.
	ErrMissingFile = errors.New("file name is required")
	// ErrDocumentNotFound is returned when the document store has no such document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrNoDocumentSource is returned by Extract on a service built without a store or analyzer.
	ErrNoDocumentSource = errors.New("no document store or analyzer configured")
)

// Service extracts form fields from documents in a single bucket.
type Service struct {
	store    document.Store
	analyzer analysis.Analyzer
	history  storage.Storage
	bucket   string
	features []string
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every successful extraction in h. A nil h disables history.
func WithHistory(h storage.Storage) Option {
	return func(s *Service) { s.history = h }
}

// WithFeatures overrides the analysis feature list (default FORMS).
func WithFeatures(features []string) Option {
	return func(s *Service) {
		if len(features) > 0 {
			s.features = features
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a service reading documents from bucket in store and analyzing them with analyzer.
// With a nil store or analyzer only ExtractFile is usable.
func New(store document.Store, analyzer analysis.Analyzer, bucket string, opts ...Option) *Service {
	s := &Service{
		store:    store,
		analyzer: analyzer,
		bucket:   bucket,
		features: []string{models.FeatureForms},
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bucket returns the configured document bucket.
func (s *Service) Bucket() string { return s.bucket }

// History returns the history storage, or nil when history is disabled.
func (s *Service) History() storage.Storage { return s.history }

// Extract checks that file exists, analyzes it and pairs its form fields.
func (s *Service) Extract(ctx context.Context, file string) (*models.Extraction, error) {
	if file == "" {
		return nil, ErrMissingFile
	}
	if s.store == nil || s.analyzer == nil {
		return nil, ErrNoDocumentSource
	}
	ok, err := s.store.Exists(ctx, s.bucket, file)
	if err != nil {
		return nil, fmt.Errorf("check document %s: %w", file, err)
	}
	if !ok {
		s.logger.Debug("document not found", zap.String("bucket", s.bucket), zap.String("file", file))
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, file)
	}

	result, err := s.analyzer.Analyze(ctx, analysis.Request{Bucket: s.bucket, Key: file, Features: s.features})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", file, err)
	}
	return s.finish(ctx, file, s.analyzer.Name(), result)
}

// ExtractFile pairs the form fields of a saved analysis response. The document key
// recorded in history is the response file name without its extension.
func (s *Service) ExtractFile(ctx context.Context, path string) (*models.Extraction, error) {
	if path == "" {
		return nil, ErrMissingFile
	}
	result, err := analysis.LoadResponse(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path)
	key := base[:len(base)-len(filepath.Ext(base))]
	return s.finish(ctx, key, "file", result)
}

func (s *Service) finish(ctx context.Context, key, provider string, result *models.AnalyzeResult) (*models.Extraction, error) {
	fields, err := forms.ExtractRaw(result.Blocks)
	if err != nil {
		s.logger.Error("extraction failed", zap.String("file", key), zap.Error(err))
		return nil, fmt.Errorf("extract %s: %w", key, err)
	}
	e := &models.Extraction{
		ID:         uuid.New().String(),
		Bucket:     s.bucket,
		Key:        key,
		Provider:   provider,
		BlockCount: len(result.Blocks),
		Fields:     fields,
		CreatedAt:  s.now(),
	}
	s.logger.Info("extracted form fields",
		zap.String("file", key),
		zap.String("provider", provider),
		zap.Int("blocks", e.BlockCount),
		zap.Int("fields", fields.Len()),
	)
	if s.history != nil {
		if err := s.history.SaveExtraction(ctx, e); err != nil {
			s.logger.Error("failed to record extraction", zap.String("id", e.ID), zap.Error(err))
		}
	}
	return e, nil
}
