// Package main is the formkv CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/formkv/internal/cli"
	"github.com/hyperjump/formkv/internal/config"
	"github.com/hyperjump/formkv/internal/mcp"
	"github.com/hyperjump/formkv/internal/models"
	"github.com/hyperjump/formkv/internal/server"
	"github.com/hyperjump/formkv/internal/service"
	"github.com/hyperjump/formkv/internal/storage"
	"github.com/hyperjump/formkv/internal/watcher"
	"github.com/hyperjump/formkv/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/formkv/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory takes precedence (for development), and when neither file exists the
// config is built from defaults and environment variables alone. Returns the config and
// the path that was actually loaded ("" when none was).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.FromEnv(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadDotEnv loads .env from the working directory when present.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load()
}

func main() {
	if err := loadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	switch command {
	case "server":
		runServer(args)
	case "extract":
		runExtract(args)
	case "history":
		runHistory(args)
	case "mcp":
		runMCP(args)
	case "watch":
		runWatch(args)
	case "version", "--version", "-v":
		fmt.Printf("formkv version %s\n", version)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

// commonFlags registers --config and --debug on fs.
func commonFlags(fs *pflag.FlagSet) (configPath *string, debug *bool) {
	configPath = fs.StringP("config", "c", defaultConfigPath, "config file path")
	debug = fs.Bool("debug", false, "enable debug logging")
	return configPath, debug
}

// setup loads config and builds the logger. quiet limits logging to warnings for
// one-shot commands.
func setup(configPath string, debugFlag, quiet bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	var logger *zap.Logger
	if quiet {
		logger, err = utils.NewQuietLogger(debugMode)
	} else {
		logger, err = utils.NewLogger(debugMode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, resolved, logger
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

func runServer(args []string) {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	configPath, debug := commonFlags(fs)
	host := fs.String("host", "", "listen host (overrides config)")
	port := fs.IntP("port", "p", 0, "listen port (overrides config)")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug, false)
	defer logger.Sync()
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger, componentOptions{})
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watchSvc server.WatchService
	if len(cfg.Watch.Directories) > 0 {
		w := watcher.New(components.Service, cfg.Watch, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		go w.SyncExistingFiles()
		watchSvc = w
	}

	srv := server.NewServer(components.Service, &cfg.Server, logger, watchSvc, resolvedConfigPath, cfg)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	waitForSignal()
	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runExtract(args []string) {
	fs := pflag.NewFlagSet("extract", pflag.ExitOnError)
	configPath, debug := commonFlags(fs)
	response := fs.StringP("response", "r", "", "read a saved analysis response file instead of calling the analyzer")
	format := fs.StringP("format", "f", "text", "output format: text, json or xlsx")
	out := fs.StringP("out", "o", "", "write output to this file (required for xlsx)")
	noHistory := fs.Bool("no-history", false, "do not record the extraction")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: formkv extract [flags] <file>\n       formkv extract [flags] --response <response.json>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	outFormat, err := cli.ParseOutputFormat(*format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if outFormat == cli.OutputXLSX && *out == "" {
		fmt.Fprintln(os.Stderr, "--out is required for xlsx output")
		os.Exit(2)
	}
	file := fs.Arg(0)
	if file == "" && *response == "" {
		fs.Usage()
		os.Exit(2)
	}

	cfg, _, logger := setup(*configPath, *debug, true)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, componentOptions{
		offline:   *response != "",
		noHistory: *noHistory,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	var e *models.Extraction
	if *response != "" {
		e, err = components.Service.ExtractFile(ctx, *response)
	} else {
		e, err = components.Service.Extract(ctx, file)
	}
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			fmt.Fprintf(os.Stderr, "Document %q not found in bucket %q\n", file, cfg.Documents.Bucket)
		} else {
			fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		}
		os.Exit(1)
	}
	if err := writeOutput(*out, func(w io.Writer) error { return cli.WriteFields(w, e, outFormat) }); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		os.Exit(1)
	}
}

// writeOutput runs write against stdout, or against path when set.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runHistory(args []string) {
	fs := pflag.NewFlagSet("history", pflag.ExitOnError)
	configPath, debug := commonFlags(fs)
	limit := fs.IntP("limit", "n", 20, "number of extractions to list")
	offset := fs.Int("offset", 0, "number of extractions to skip")
	format := fs.StringP("format", "f", "text", "output format: text or json (xlsx for get)")
	out := fs.StringP("out", "o", "", "write output to this file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: formkv history [list|get <id>|delete <id>] [flags]\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	outFormat, err := cli.ParseOutputFormat(*format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	action := fs.Arg(0)
	if action == "" {
		action = "list"
	}

	cfg, _, logger := setup(*configPath, *debug, true)
	defer logger.Sync()
	history, err := openHistory(cfg.Storage)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if history == nil {
		fmt.Fprintln(os.Stderr, "History is disabled (storage.driver is none)")
		os.Exit(1)
	}
	defer history.Close()

	if err := historyAction(context.Background(), history, action, fs.Arg(1), *offset, *limit, outFormat, *out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			fs.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid arguments")

func historyAction(ctx context.Context, history storage.Storage, action, id string, offset, limit int, format cli.OutputFormat, out string) error {
	switch action {
	case "list":
		q := models.ExtractionListQuery{Offset: offset, Limit: limit}
		q.Normalize()
		list, err := history.ListExtractions(ctx, q.Offset, q.Limit)
		if err != nil {
			return err
		}
		if format == cli.OutputXLSX {
			format = cli.OutputText
		}
		return writeOutput(out, func(w io.Writer) error { return cli.WriteExtractionList(w, list, format) })
	case "get":
		if id == "" {
			return fmt.Errorf("%w: history get needs an id", errUsage)
		}
		e, err := history.GetExtraction(ctx, id)
		if err != nil {
			return err
		}
		if format == cli.OutputXLSX && out == "" {
			return fmt.Errorf("%w: --out is required for xlsx output", errUsage)
		}
		return writeOutput(out, func(w io.Writer) error { return cli.WriteFields(w, e, format) })
	case "delete":
		if id == "" {
			return fmt.Errorf("%w: history delete needs an id", errUsage)
		}
		if err := history.DeleteExtraction(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted extraction %s\n", id)
		return nil
	default:
		return fmt.Errorf("%w: unknown history action %q", errUsage, action)
	}
}

func runMCP(args []string) {
	fs := pflag.NewFlagSet("mcp", pflag.ExitOnError)
	configPath, debug := commonFlags(fs)
	_ = fs.Parse(args)

	cfg, _, logger := setup(*configPath, *debug, true)
	defer logger.Sync()
	components, err := initializeComponents(context.Background(), cfg, logger, componentOptions{})
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv, err := mcp.NewServer("formkv", version, components.Service, logger)
	if err != nil {
		logger.Fatal("Failed to create MCP server", zap.Error(err))
	}
	if err := srv.ServeStdio(); err != nil {
		logger.Error("MCP server stopped", zap.Error(err))
	}
}

func runWatch(args []string) {
	fs := pflag.NewFlagSet("watch", pflag.ExitOnError)
	configPath, debug := commonFlags(fs)
	noSync := fs.Bool("no-sync", false, "skip responses already present in the directories")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: formkv watch [flags] [directory...]\n\nDirectories default to watch.directories from the config.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	cfg, _, logger := setup(*configPath, *debug, false)
	defer logger.Sync()
	if fs.NArg() > 0 {
		cfg.Watch.Directories = fs.Args()
	}
	if len(cfg.Watch.Directories) == 0 {
		fmt.Fprintln(os.Stderr, "No directories to watch")
		fs.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger, componentOptions{offline: true})
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	w := watcher.New(components.Service, cfg.Watch, watcher.WithLogger(logger))
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	if !*noSync {
		w.SyncExistingFiles()
	}
	logger.Info("Watching for analysis responses", zap.Strings("directories", w.Directories()))
	waitForSignal()
	logger.Info("Shutting down...")
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `formkv - form key/value extraction

Usage:
  formkv <command> [flags]

Commands:
  server              Start the HTTP API (GET /api/v1/forms?file=<name>)
  extract <file>      Extract form fields from a document in the configured bucket
  extract -r <path>   Extract form fields from a saved analysis response
  history [list|get <id>|delete <id>]
                      Inspect recorded extractions
  mcp                 Serve the extract_form_fields tool over MCP stdio
  watch [dir...]      Extract every analysis response written to the directories
  version             Print version
  help                Show this help

Common flags:
  -c, --config string   config file path (default %s)
      --debug           enable debug logging

Environment:
  S3_BUCKET_NAME, S3_REGION and FORMKV_* override config values; .env is loaded when present.
`, defaultConfigPath)
}
