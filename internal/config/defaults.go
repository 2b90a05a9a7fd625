package config

import "github.com/hyperjump/formkv/internal/models"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.TimeoutSeconds == 0 {
		cfg.Server.TimeoutSeconds = 60
	}
	if cfg.Documents.Backend == "" {
		cfg.Documents.Backend = BackendS3
	}
	if cfg.Analysis.Provider == "" {
		cfg.Analysis.Provider = ProviderTextract
	}
	if len(cfg.Analysis.Features) == 0 {
		cfg.Analysis.Features = []string{models.FeatureForms}
	}
	if cfg.Analysis.DocumentAI.Location == "" {
		cfg.Analysis.DocumentAI.Location = "us"
	}
	if cfg.Analysis.DocumentAI.MimeType == "" {
		cfg.Analysis.DocumentAI.MimeType = "application/pdf"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/formkv/data/history.db"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".json"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
