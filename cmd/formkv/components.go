package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/hyperjump/formkv/internal/analysis"
	"github.com/hyperjump/formkv/internal/config"
	"github.com/hyperjump/formkv/internal/document"
	"github.com/hyperjump/formkv/internal/service"
	"github.com/hyperjump/formkv/internal/storage"
	"go.uber.org/zap"
)

// Components holds the wired collaborators of a running command.
type Components struct {
	Service *service.Service
	History storage.Storage // nil when history is disabled
	closers []func() error
}

// Close releases the analyzer client and the history database.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}

type componentOptions struct {
	// offline skips the document store and analyzer (saved responses only).
	offline   bool
	noHistory bool
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts componentOptions) (*Components, error) {
	c := &Components{}
	if !opts.noHistory {
		history, err := openHistory(cfg.Storage)
		if err != nil {
			return nil, err
		}
		if history != nil {
			c.History = history
			c.closers = append(c.closers, history.Close)
		}
	}

	svcOpts := []service.Option{
		service.WithLogger(logger),
		service.WithFeatures(cfg.Analysis.Features),
	}
	if c.History != nil {
		svcOpts = append(svcOpts, service.WithHistory(c.History))
	}
	if opts.offline {
		c.Service = service.New(nil, nil, cfg.Documents.Bucket, svcOpts...)
		return c, nil
	}

	if err := cfg.Validate(); err != nil {
		c.Close()
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	var awsCfg *aws.Config
	loadAWS := func(region string) (aws.Config, error) {
		if awsCfg == nil {
			loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
			if err != nil {
				return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
			}
			awsCfg = &loaded
		}
		out := awsCfg.Copy()
		if region != "" {
			out.Region = region
		}
		return out, nil
	}

	var store document.Store
	switch cfg.Documents.Backend {
	case config.BackendLocal:
		local, err := document.NewLocalStore(cfg.Documents.Root)
		if err != nil {
			c.Close()
			return nil, err
		}
		store = local
	default:
		aCfg, err := loadAWS(cfg.Documents.Region)
		if err != nil {
			c.Close()
			return nil, err
		}
		store = document.NewS3Store(aCfg)
	}

	var analyzer analysis.Analyzer
	switch cfg.Analysis.Provider {
	case config.ProviderFile:
		analyzer = analysis.NewFileAnalyzer(cfg.Analysis.ResponsesDir)
	case config.ProviderDocumentAI:
		dai := cfg.Analysis.DocumentAI
		a, err := analysis.NewDocumentAIAnalyzer(ctx, store, analysis.DocumentAIOptions{
			ProjectID:       dai.ProjectID,
			Location:        dai.Location,
			ProcessorID:     dai.ProcessorID,
			CredentialsFile: dai.CredentialsFile,
			MimeType:        dai.MimeType,
		}, logger)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, a.Close)
		analyzer = a
	default:
		region := cfg.Analysis.Region
		if region == "" {
			region = cfg.Documents.Region
		}
		aCfg, err := loadAWS(region)
		if err != nil {
			c.Close()
			return nil, err
		}
		analyzer = analysis.NewTextractAnalyzer(aCfg, logger)
	}

	logger.Debug("components initialized",
		zap.String("backend", cfg.Documents.Backend),
		zap.String("bucket", cfg.Documents.Bucket),
		zap.String("provider", analyzer.Name()),
		zap.String("storage_driver", cfg.Storage.Driver),
	)
	c.Service = service.New(store, analyzer, cfg.Documents.Bucket, svcOpts...)
	return c, nil
}

// openHistory opens the configured history database; it returns nil, nil for driver "none".
func openHistory(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverPostgres:
		s, err := storage.NewPostgresStorage(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		return s, nil
	case config.DriverSQLite, "":
		s, err := storage.NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
