package mcp

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/formkv/internal/analysis"
	"github.com/hyperjump/formkv/internal/models"
	"github.com/hyperjump/formkv/internal/service"
	"github.com/hyperjump/formkv/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct{ keys map[string]bool }

func (f fakeStore) Exists(_ context.Context, _, key string) (bool, error) { return f.keys[key], nil }
func (f fakeStore) Open(context.Context, string, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type fakeAnalyzer struct{ blocks []models.Block }

func (f fakeAnalyzer) Name() string { return "fake" }
func (f fakeAnalyzer) Analyze(context.Context, analysis.Request) (*models.AnalyzeResult, error) {
	return &models.AnalyzeResult{Blocks: f.blocks}, nil
}

func nameJohn() []models.Block {
	return []models.Block{
		{ID: "K1", BlockType: models.BlockTypeKeyValueSet, EntityTypes: []string{models.EntityTypeKey},
			Relationships: []models.Relationship{
				{Type: models.RelationshipValue, IDs: []string{"V1"}},
				{Type: models.RelationshipChild, IDs: []string{"W1"}},
			}},
		{ID: "W1", BlockType: models.BlockTypeWord, Text: models.StringPtr("Name")},
		{ID: "V1", BlockType: models.BlockTypeKeyValueSet, EntityTypes: []string{models.EntityTypeValue},
			Relationships: []models.Relationship{{Type: models.RelationshipChild, IDs: []string{"W2"}}}},
		{ID: "W2", BlockType: models.BlockTypeWord, Text: models.StringPtr("John")},
	}
}

func newTestServer(t *testing.T, blocks []models.Block) *Server {
	t.Helper()
	svc := service.New(fakeStore{keys: map[string]bool{"scan.png": true}}, fakeAnalyzer{blocks: blocks}, "forms")
	s, err := NewServer("formkv-test", "0.0.0", svc, nil)
	require.NoError(t, err)
	return s
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer("formkv", "dev", nil, nil)
	assert.Error(t, err)
}

func TestExtractFormFields(t *testing.T) {
	s := newTestServer(t, nameJohn())
	result, err := s.handleExtractFormFields(context.Background(), callTool(map[string]interface{}{"file": "scan.png"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"Name ": "John "}`, resultText(result))
}

func TestExtractFormFields_NotFound(t *testing.T) {
	s := newTestServer(t, nameJohn())
	result, err := s.handleExtractFormFields(context.Background(), callTool(map[string]interface{}{"file": "other.png"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(result), "not found")
}

func TestExtractFormFields_MissingArgument(t *testing.T) {
	s := newTestServer(t, nameJohn())
	result, err := s.handleExtractFormFields(context.Background(), callTool(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestExtractFormFields_LookupError(t *testing.T) {
	blocks := nameJohn()
	blocks[0].Relationships[0].IDs = []string{"V1", "V2"}
	s := newTestServer(t, blocks)
	result, err := s.handleExtractFormFields(context.Background(), callTool(map[string]interface{}{"file": "scan.png"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestListExtractions_HistoryDisabled(t *testing.T) {
	s := newTestServer(t, nameJohn())
	result, err := s.handleListExtractions(context.Background(), callTool(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(result), "history not enabled")
}

func TestListExtractions_AfterExtract(t *testing.T) {
	history, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	defer history.Close()

	svc := service.New(fakeStore{keys: map[string]bool{"scan.png": true}}, fakeAnalyzer{blocks: nameJohn()}, "forms",
		service.WithHistory(history))
	s, err := NewServer("formkv-test", "0.0.0", svc, nil)
	require.NoError(t, err)

	_, err = s.handleExtractFormFields(context.Background(), callTool(map[string]interface{}{"file": "scan.png"}))
	require.NoError(t, err)

	result, err := s.handleListExtractions(context.Background(), callTool(map[string]interface{}{"limit": float64(5)}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(result))

	var list []models.Extraction
	require.NoError(t, json.Unmarshal([]byte(resultText(result)), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "scan.png", list[0].Key)
	v, ok := list[0].Fields.Get("Name ")
	assert.True(t, ok)
	assert.Equal(t, "John ", v)
}
