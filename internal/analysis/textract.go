package analysis

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"go.uber.org/zap"

	"github.com/hyperjump/formkv/internal/models"
)

// TextractAPI is the subset of the Textract client used by TextractAnalyzer.
type TextractAPI interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

// TextractAnalyzer analyzes S3 objects with Amazon Textract AnalyzeDocument.
type TextractAnalyzer struct {
	client TextractAPI
	logger *zap.Logger
}

// NewTextractAnalyzer creates an analyzer from an AWS config.
func NewTextractAnalyzer(cfg aws.Config, logger *zap.Logger) *TextractAnalyzer {
	return NewTextractAnalyzerWithClient(textract.NewFromConfig(cfg), logger)
}

// NewTextractAnalyzerWithClient creates an analyzer around an existing client.
func NewTextractAnalyzerWithClient(client TextractAPI, logger *zap.Logger) *TextractAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextractAnalyzer{client: client, logger: logger}
}

// Name implements Analyzer.
func (a *TextractAnalyzer) Name() string { return "textract" }

// Analyze implements Analyzer.
func (a *TextractAnalyzer) Analyze(ctx context.Context, req Request) (*models.AnalyzeResult, error) {
	features := req.features()
	featureTypes := make([]types.FeatureType, len(features))
	for i, f := range features {
		featureTypes[i] = types.FeatureType(f)
	}
	a.logger.Debug("textract analyze document",
		zap.String("bucket", req.Bucket),
		zap.String("key", req.Key),
		zap.Strings("features", features))

	out, err := a.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document: &types.Document{
			S3Object: &types.S3Object{
				Bucket: aws.String(req.Bucket),
				Name:   aws.String(req.Key),
			},
		},
		FeatureTypes: featureTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("textract analyze s3://%s/%s: %w", req.Bucket, req.Key, err)
	}
	return &models.AnalyzeResult{Blocks: convertTextractBlocks(out.Blocks)}, nil
}

func convertTextractBlocks(in []types.Block) []models.Block {
	out := make([]models.Block, 0, len(in))
	for _, b := range in {
		mb := models.Block{
			ID:         aws.ToString(b.Id),
			BlockType:  string(b.BlockType),
			Text:       b.Text,
			Confidence: float64(aws.ToFloat32(b.Confidence)),
			Page:       int(aws.ToInt32(b.Page)),
		}
		for _, et := range b.EntityTypes {
			mb.EntityTypes = append(mb.EntityTypes, string(et))
		}
		if b.SelectionStatus != "" {
			mb.SelectionStatus = aws.String(string(b.SelectionStatus))
		}
		for _, r := range b.Relationships {
			mb.Relationships = append(mb.Relationships, models.Relationship{
				Type: string(r.Type),
				IDs:  append([]string(nil), r.Ids...),
			})
		}
		out = append(out, mb)
	}
	return out
}
