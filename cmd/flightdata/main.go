package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/basekick-labs/flightdata/internal/config"
	"github.com/basekick-labs/flightdata/internal/logger"
	"github.com/basekick-labs/flightdata/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Version is set at build time
var Version = "dev"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks command line mistakes; the command prints its usage
var errUsage = errors.New("usage error")

const usage = `flightdata decodes rocket flight computer telemetry.

Usage:
  flightdata check   [flags] <rocket.json>
  flightdata convert [flags] --config <rocket.json> <data> <output|->
  flightdata report  [flags] --config <rocket.json> <data> <output.tex|->
  flightdata version

Run "flightdata <command> -h" for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches a subcommand and returns the process exit status
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	var err error
	switch args[0] {
	case "check":
		err = runCheck(ctx, args[1:], stdout, stderr)
	case "convert":
		err = runConvert(ctx, args[1:], stdout, stderr)
	case "report":
		err = runReport(ctx, args[1:], stdout, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "flightdata %s\n", Version)
		return exitOK
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
}

// commonFlags are shared by every data command
type commonFlags struct {
	settings  string
	logLevel  string
	logFormat string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.settings, "settings", "", "Path to a flightdata.toml (default: search ., /etc/flightdata, ~/.flightdata)")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	fs.StringVar(&c.logFormat, "log-format", "", "Log format: json or console (overrides log.format)")
}

// setup loads the tool configuration, applies flag overrides and
// initializes logging with a fresh run ID
func (c *commonFlags) setup(stderr io.Writer) (*config.Config, string, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.settings != "" {
		cfg, err = config.LoadFile(c.settings)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}

	runID := uuid.NewString()
	logger.Setup(cfg.Log.Level, cfg.Log.Format, stderr)
	logger.WithRunID(runID)
	return cfg, runID, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags parses args, reporting unknown or malformed flags as usage errors
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// newBackend initializes the configured storage backend. Remote backends
// are wrapped with retries.
func newBackend(ctx context.Context, cfg *config.StorageConfig) (storage.Backend, error) {
	resilient := &storage.ResilientConfig{
		MaxRetries:    cfg.MaxRetries,
		RetryDelay:    storage.DefaultResilientConfig().RetryDelay,
		RetryMaxDelay: storage.DefaultResilientConfig().RetryMaxDelay,
	}

	switch cfg.Backend {
	case "local":
		backend, err := storage.NewLocalBackend(cfg.LocalPath, logger.Get("storage"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage backend: %w", err)
		}
		log.Debug().
			Str("backend", "local").
			Str("path", backend.BasePath()).
			Msg("Storage backend initialized")
		return backend, nil

	case "s3", "minio":
		s3Config := &storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			PathStyle: cfg.S3PathStyle,
		}
		backend, err := storage.NewS3Backend(ctx, s3Config, logger.Get("storage"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage backend: %w", err)
		}
		log.Info().
			Str("backend", cfg.Backend).
			Str("bucket", cfg.S3Bucket).
			Str("region", cfg.S3Region).
			Str("endpoint", cfg.S3Endpoint).
			Msg("Storage backend initialized")
		return storage.NewResilientBackend(backend, resilient, logger.Get("storage")), nil

	case "azure", "azblob":
		azureConfig := &storage.AzureBlobConfig{
			ConnectionString:   cfg.AzureConnectionString,
			AccountName:        cfg.AzureAccountName,
			AccountKey:         cfg.AzureAccountKey,
			SASToken:           cfg.AzureSASToken,
			ContainerName:      cfg.AzureContainer,
			Endpoint:           cfg.AzureEndpoint,
			UseManagedIdentity: cfg.AzureUseManagedIdentity,
		}
		backend, err := storage.NewAzureBlobBackend(ctx, azureConfig, logger.Get("storage"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Azure Blob Storage backend: %w", err)
		}
		log.Info().
			Str("backend", cfg.Backend).
			Str("container", cfg.AzureContainer).
			Str("account", cfg.AzureAccountName).
			Msg("Storage backend initialized")
		return storage.NewResilientBackend(backend, resilient, logger.Get("storage")), nil
	}

	return nil, fmt.Errorf("unsupported storage backend %q (use 'local', 's3', 'minio', 'azure', or 'azblob')", cfg.Backend)
}
