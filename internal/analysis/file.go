package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/formkv/internal/document"
	"github.com/hyperjump/formkv/internal/models"
)

// FileAnalyzer serves saved AnalyzeDocument responses from <dir>/<bucket>/<key>.json.
type FileAnalyzer struct {
	dir string
}

// NewFileAnalyzer creates an analyzer reading responses under dir.
func NewFileAnalyzer(dir string) *FileAnalyzer {
	return &FileAnalyzer{dir: filepath.Clean(dir)}
}

// Name implements Analyzer.
func (a *FileAnalyzer) Name() string { return "file" }

// Analyze implements Analyzer. Features are ignored; the saved response is returned as is.
func (a *FileAnalyzer) Analyze(_ context.Context, req Request) (*models.AnalyzeResult, error) {
	base := filepath.Join(a.dir, req.Bucket)
	p := filepath.Join(base, filepath.FromSlash(req.Key)+".json")
	rel, err := filepath.Rel(base, p)
	if err != nil || base == a.dir || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s", document.ErrInvalidKey, req.Key)
	}
	return LoadResponse(p)
}

// LoadResponse reads a saved AnalyzeDocument response file.
func LoadResponse(path string) (*models.AnalyzeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrResponseNotFound, path)
		}
		return nil, fmt.Errorf("read response: %w", err)
	}
	var result models.AnalyzeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode response %s: %w", path, err)
	}
	return &result, nil
}
