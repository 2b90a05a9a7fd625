// Package analysis runs form analysis on stored documents and returns the raw block graph.
package analysis

import (
	"context"
	"errors"

	"github.com/hyperjump/formkv/internal/models"
)

// ErrResponseNotFound is returned by FileAnalyzer when no saved response exists for a document.
var ErrResponseNotFound = errors.New("analysis response not found")

// Request names the document to analyze and the features to ask for.
type Request struct {
	Bucket   string
	Key      string
	Features []string
}

// Analyzer is the form-analysis collaborator. It is the only producer of blocks.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, req Request) (*models.AnalyzeResult, error)
}

// features returns req.Features, or FORMS when none were given.
func (r Request) features() []string {
	if len(r.Features) == 0 {
		return []string{models.FeatureForms}
	}
	return r.Features
}
