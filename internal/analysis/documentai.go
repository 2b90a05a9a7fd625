package analysis

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/hyperjump/formkv/internal/document"
	"github.com/hyperjump/formkv/internal/models"
)

// Document AI checkbox value types.
const (
	valueTypeFilledCheckbox   = "filled_checkbox"
	valueTypeUnfilledCheckbox = "unfilled_checkbox"
)

// DocumentAIClient is the subset of the Document AI processor client used by DocumentAIAnalyzer.
type DocumentAIClient interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// DocumentAIOptions identifies the form parser processor.
type DocumentAIOptions struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsFile string
	// MimeType is used when it cannot be derived from the document key.
	MimeType string
}

// DocumentAIAnalyzer sends stored documents to a Google Document AI form parser and
// rewrites its form fields into the KEY_VALUE_SET / WORD / SELECTION_ELEMENT block graph.
type DocumentAIAnalyzer struct {
	client DocumentAIClient
	store  document.Store
	opts   DocumentAIOptions
	logger *zap.Logger
}

// NewDocumentAIAnalyzer dials the regional Document AI endpoint.
func NewDocumentAIAnalyzer(ctx context.Context, store document.Store, opts DocumentAIOptions, logger *zap.Logger) (*DocumentAIAnalyzer, error) {
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", opts.Location)
	clientOpts := []option.ClientOption{option.WithEndpoint(endpoint)}
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return NewDocumentAIAnalyzerWithClient(client, store, opts, logger), nil
}

// NewDocumentAIAnalyzerWithClient creates an analyzer around an existing client.
func NewDocumentAIAnalyzerWithClient(client DocumentAIClient, store document.Store, opts DocumentAIOptions, logger *zap.Logger) *DocumentAIAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentAIAnalyzer{client: client, store: store, opts: opts, logger: logger}
}

// Name implements Analyzer.
func (a *DocumentAIAnalyzer) Name() string { return "documentai" }

// Close releases the client connection.
func (a *DocumentAIAnalyzer) Close() error { return a.client.Close() }

// Analyze implements Analyzer. Only the FORMS feature is meaningful for a form parser processor.
func (a *DocumentAIAnalyzer) Analyze(ctx context.Context, req Request) (*models.AnalyzeResult, error) {
	content, err := document.ReadAll(ctx, a.store, req.Bucket, req.Key)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(req.Key)))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if mimeType == "" {
		mimeType = a.opts.MimeType
	}

	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", a.opts.ProjectID, a.opts.Location, a.opts.ProcessorID)
	a.logger.Debug("documentai process document",
		zap.String("processor", name),
		zap.String("key", req.Key),
		zap.String("mime_type", mimeType),
		zap.Int("bytes", len(content)))

	resp, err := a.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
		SkipHumanReview: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}
	return &models.AnalyzeResult{Blocks: blocksFromDocument(resp.GetDocument())}, nil
}

// blocksFromDocument emits, per form field, a key block and a value block whose CHILD
// relationships point at one WORD block per whitespace-separated token. Checkbox values
// become a single SELECTION_ELEMENT child.
func blocksFromDocument(doc *documentaipb.Document) []models.Block {
	if doc == nil {
		return nil
	}
	var blocks []models.Block
	for pi, page := range doc.GetPages() {
		pageNumber := int(page.GetPageNumber())
		if pageNumber == 0 {
			pageNumber = pi + 1
		}
		for fi, field := range page.GetFormFields() {
			prefix := fmt.Sprintf("p%d-f%d", pageNumber, fi)
			keyID, valueID := prefix+"-key", prefix+"-value"

			keyWords := wordBlocks(keyID, textFromLayout(field.GetFieldName(), doc.GetText()), pageNumber)
			key := models.Block{
				ID:            keyID,
				BlockType:     models.BlockTypeKeyValueSet,
				EntityTypes:   []string{models.EntityTypeKey},
				Confidence:    float64(field.GetFieldName().GetConfidence()),
				Page:          pageNumber,
				Relationships: []models.Relationship{{Type: models.RelationshipValue, IDs: []string{valueID}}},
			}
			if ids := blockIDs(keyWords); len(ids) > 0 {
				key.Relationships = append(key.Relationships, models.Relationship{Type: models.RelationshipChild, IDs: ids})
			}

			var valueChildren []models.Block
			switch field.GetValueType() {
			case valueTypeFilledCheckbox, valueTypeUnfilledCheckbox:
				status := models.SelectionNotSelected
				if field.GetValueType() == valueTypeFilledCheckbox {
					status = models.SelectionSelected
				}
				valueChildren = []models.Block{{
					ID:              valueID + "-sel",
					BlockType:       models.BlockTypeSelectionElement,
					SelectionStatus: models.StringPtr(status),
					Page:            pageNumber,
				}}
			default:
				valueChildren = wordBlocks(valueID, textFromLayout(field.GetFieldValue(), doc.GetText()), pageNumber)
			}
			value := models.Block{
				ID:          valueID,
				BlockType:   models.BlockTypeKeyValueSet,
				EntityTypes: []string{models.EntityTypeValue},
				Confidence:  float64(field.GetFieldValue().GetConfidence()),
				Page:        pageNumber,
			}
			if ids := blockIDs(valueChildren); len(ids) > 0 {
				value.Relationships = []models.Relationship{{Type: models.RelationshipChild, IDs: ids}}
			}

			blocks = append(blocks, key, value)
			blocks = append(blocks, keyWords...)
			blocks = append(blocks, valueChildren...)
		}
	}
	return blocks
}

func wordBlocks(parentID, text string, page int) []models.Block {
	words := strings.Fields(text)
	out := make([]models.Block, len(words))
	for i, w := range words {
		out[i] = models.Block{
			ID:        fmt.Sprintf("%s-w%d", parentID, i),
			BlockType: models.BlockTypeWord,
			Text:      models.StringPtr(w),
			Page:      page,
		}
	}
	return out
}

func blockIDs(blocks []models.Block) []string {
	if len(blocks) == 0 {
		return nil
	}
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}

// textFromLayout extracts text for a layout from the document text using its text anchor.
// Indexes are rune offsets and are clamped to the text bounds.
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	runes := []rune(fullText)
	var sb strings.Builder
	for _, seg := range layout.TextAnchor.TextSegments {
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(runes) {
			end = len(runes)
		}
		if start > end {
			start = end
		}
		sb.WriteString(string(runes[start:end]))
	}
	return sb.String()
}
