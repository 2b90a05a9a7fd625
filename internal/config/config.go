// Package config provides configuration loading and structs for the formkv server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Document store backends.
const (
	BackendS3    = "s3"
	BackendLocal = "local"
)

// Analysis providers.
const (
	ProviderTextract   = "textract"
	ProviderDocumentAI = "documentai"
	ProviderFile       = "file"
)

// History storage drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Documents DocumentsConfig `yaml:"documents"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Storage   StorageConfig   `yaml:"storage"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DocumentsConfig says where scanned forms live.
type DocumentsConfig struct {
	Backend string `yaml:"backend"`
	Bucket  string `yaml:"bucket"`
	Region  string `yaml:"region"`
	// Root is the base directory for the local backend; buckets are subdirectories.
	Root string `yaml:"root"`
}

// AnalysisConfig selects and configures the form-analysis provider.
type AnalysisConfig struct {
	Provider string   `yaml:"provider"`
	Region   string   `yaml:"region"`
	Features []string `yaml:"features"`
	// ResponsesDir holds saved AnalyzeDocument responses for the file provider.
	ResponsesDir string           `yaml:"responses_dir"`
	DocumentAI   DocumentAIConfig `yaml:"documentai"`
}

// DocumentAIConfig holds Google Document AI processor settings.
type DocumentAIConfig struct {
	ProjectID       string `yaml:"project_id"`
	Location        string `yaml:"location"`
	ProcessorID     string `yaml:"processor_id"`
	CredentialsFile string `yaml:"credentials_file"`
	MimeType        string `yaml:"mime_type"`
}

// StorageConfig holds extraction history settings.
type StorageConfig struct {
	Driver       string `yaml:"driver"`
	DatabasePath string `yaml:"database_path"`
	DSN          string `yaml:"dsn"`
}

// WatchConfig holds settings for watching directories of saved analysis responses.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Documents.Root = expandPath(cfg.Documents.Root, configDir)
	cfg.Analysis.ResponsesDir = expandPath(cfg.Analysis.ResponsesDir, configDir)
	cfg.Analysis.DocumentAI.CredentialsFile = expandPath(cfg.Analysis.DocumentAI.CredentialsFile, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// FromEnv builds a config from defaults and environment variables only.
func FromEnv() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// envBindings maps config keys to the environment variables that override them, in priority order.
var envBindings = map[string][]string{
	"documents.backend":     {"FORMKV_DOCUMENTS_BACKEND"},
	"documents.bucket":      {"FORMKV_DOCUMENTS_BUCKET", "S3_BUCKET_NAME"},
	"documents.region":      {"FORMKV_DOCUMENTS_REGION", "S3_REGION"},
	"documents.root":        {"FORMKV_DOCUMENTS_ROOT"},
	"analysis.provider":     {"FORMKV_ANALYSIS_PROVIDER"},
	"analysis.region":       {"FORMKV_ANALYSIS_REGION", "S3_REGION"},
	"analysis.responsesdir": {"FORMKV_ANALYSIS_RESPONSES_DIR"},
	"storage.driver":        {"FORMKV_STORAGE_DRIVER"},
	"storage.databasepath":  {"FORMKV_STORAGE_DATABASE_PATH"},
	"storage.dsn":           {"FORMKV_STORAGE_DSN"},
}

// ApplyEnv overrides config values from environment variables. S3_BUCKET_NAME and
// S3_REGION are honoured for compatibility with existing deployments.
func ApplyEnv(cfg *Config) {
	v := viper.New()
	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	set := func(key string, dst *string) {
		if v.IsSet(key) {
			if s := v.GetString(key); s != "" {
				*dst = s
			}
		}
	}
	set("documents.backend", &cfg.Documents.Backend)
	set("documents.bucket", &cfg.Documents.Bucket)
	set("documents.region", &cfg.Documents.Region)
	set("documents.root", &cfg.Documents.Root)
	set("analysis.provider", &cfg.Analysis.Provider)
	set("analysis.region", &cfg.Analysis.Region)
	set("analysis.responsesdir", &cfg.Analysis.ResponsesDir)
	set("storage.driver", &cfg.Storage.Driver)
	set("storage.databasepath", &cfg.Storage.DatabasePath)
	set("storage.dsn", &cfg.Storage.DSN)
}

// Validate checks backend, provider and driver names and their required settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Documents.Backend {
	case BackendS3:
		if c.Documents.Bucket == "" {
			errs = append(errs, errors.New("documents.bucket is required for the s3 backend"))
		}
	case BackendLocal:
		if c.Documents.Root == "" {
			errs = append(errs, errors.New("documents.root is required for the local backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown documents.backend %q", c.Documents.Backend))
	}
	switch c.Analysis.Provider {
	case ProviderTextract:
		if c.Documents.Backend != BackendS3 {
			errs = append(errs, errors.New("the textract provider reads documents from s3; set documents.backend to s3"))
		}
	case ProviderDocumentAI:
		if c.Analysis.DocumentAI.ProjectID == "" || c.Analysis.DocumentAI.ProcessorID == "" {
			errs = append(errs, errors.New("analysis.documentai.project_id and processor_id are required"))
		}
	case ProviderFile:
		if c.Analysis.ResponsesDir == "" {
			errs = append(errs, errors.New("analysis.responses_dir is required for the file provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown analysis.provider %q", c.Analysis.Provider))
	}
	switch c.Storage.Driver {
	case DriverNone, DriverSQLite:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
