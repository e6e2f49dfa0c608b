package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for flightdata
type Config struct {
	Log     LogConfig
	Decode  DecodeConfig
	Input   InputConfig
	Output  OutputConfig
	Storage StorageConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type DecodeConfig struct {
	ErrorPolicy string // "abort" or "continue"
	MaxErrors   int    // 0 = unlimited (continue policy only)
	BufferSize  int64  // read buffer in bytes
}

type InputConfig struct {
	Compression string // auto, none, gzip, zstd
}

type OutputConfig struct {
	Format             string // csv, parquet, msgpack, sqlite
	BatchSize          int    // rows per row group / payload / transaction
	ParquetCompression string // snappy, zstd, gzip, none
	SQLiteTable        string // default: rocket name
}

type StorageConfig struct {
	Backend   string
	LocalPath string
	// S3/MinIO configuration
	S3Bucket    string
	S3Region    string
	S3Endpoint  string // Custom endpoint for MinIO (e.g., "http://localhost:9000")
	S3AccessKey string // AWS access key (or use AWS_ACCESS_KEY_ID env var)
	S3SecretKey string // AWS secret key (or use AWS_SECRET_ACCESS_KEY env var)
	S3UseSSL    bool   // Use HTTPS for S3 connections
	S3PathStyle bool   // Use path-style addressing (required for MinIO)
	// Azure Blob Storage configuration
	AzureConnectionString   string // Connection string (simplest auth method)
	AzureAccountName        string // Storage account name
	AzureAccountKey         string // Storage account key
	AzureSASToken           string // SAS token for scoped access
	AzureContainer          string // Container name
	AzureEndpoint           string // Custom endpoint (for Azurite testing)
	AzureUseManagedIdentity bool   // Use managed identity (Azure-hosted deployments)
	// Retries for remote backends
	MaxRetries int
}

// Load reads configuration from defaults, an optional flightdata.toml and
// FLIGHTDATA_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("flightdata")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/flightdata/")
	v.AddConfigPath("$HOME/.flightdata/")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	return build(v)
}

// LoadFile is Load with an explicit configuration file, which must exist
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FLIGHTDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func build(v *viper.Viper) (*Config, error) {
	bufferSize, err := ParseSize(v.GetString("decode.buffer_size"))
	if err != nil {
		return nil, fmt.Errorf("invalid decode.buffer_size: %w", err)
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Decode: DecodeConfig{
			ErrorPolicy: strings.ToLower(v.GetString("decode.error_policy")),
			MaxErrors:   v.GetInt("decode.max_errors"),
			BufferSize:  bufferSize,
		},
		Input: InputConfig{
			Compression: strings.ToLower(v.GetString("input.compression")),
		},
		Output: OutputConfig{
			Format:             strings.ToLower(v.GetString("output.format")),
			BatchSize:          v.GetInt("output.batch_size"),
			ParquetCompression: strings.ToLower(v.GetString("output.parquet_compression")),
			SQLiteTable:        v.GetString("output.sqlite_table"),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(v.GetString("storage.backend")),
			LocalPath:   v.GetString("storage.local_path"),
			S3Bucket:    v.GetString("storage.s3_bucket"),
			S3Region:    v.GetString("storage.s3_region"),
			S3Endpoint:  v.GetString("storage.s3_endpoint"),
			S3AccessKey: v.GetString("storage.s3_access_key"),
			S3SecretKey: v.GetString("storage.s3_secret_key"),
			S3UseSSL:    v.GetBool("storage.s3_use_ssl"),
			S3PathStyle: v.GetBool("storage.s3_path_style"),
			// Azure Blob Storage
			AzureConnectionString:   v.GetString("storage.azure_connection_string"),
			AzureAccountName:        v.GetString("storage.azure_account_name"),
			AzureAccountKey:         v.GetString("storage.azure_account_key"),
			AzureSASToken:           v.GetString("storage.azure_sas_token"),
			AzureContainer:          v.GetString("storage.azure_container"),
			AzureEndpoint:           v.GetString("storage.azure_endpoint"),
			AzureUseManagedIdentity: v.GetBool("storage.azure_use_managed_identity"),
			MaxRetries:              v.GetInt("storage.max_retries"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Decode defaults
	v.SetDefault("decode.error_policy", "abort")
	v.SetDefault("decode.max_errors", 0)
	v.SetDefault("decode.buffer_size", "64KB")

	// Input defaults
	v.SetDefault("input.compression", "auto")

	// Output defaults
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.batch_size", 10000)
	v.SetDefault("output.parquet_compression", "snappy")
	v.SetDefault("output.sqlite_table", "")

	// Storage defaults
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_path", ".")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_use_ssl", true)
	v.SetDefault("storage.s3_path_style", false) // Use virtual-hosted style by default (set true for MinIO)
	v.SetDefault("storage.azure_use_managed_identity", false)
	v.SetDefault("storage.max_retries", 3)
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (expected one of: %s)", key, value, strings.Join(allowed, ", "))
}

// MaxBufferSize bounds decode.buffer_size; the read buffer is allocated up front
const MaxBufferSize = 64 * 1024 * 1024

// Validate checks enumerated settings and numeric bounds
func (c *Config) Validate() error {
	checks := []error{
		oneOf("log.format", c.Log.Format, "json", "console"),
		oneOf("decode.error_policy", c.Decode.ErrorPolicy, "abort", "continue"),
		oneOf("input.compression", c.Input.Compression, "auto", "none", "gzip", "zstd"),
		oneOf("output.format", c.Output.Format, "csv", "parquet", "msgpack", "sqlite"),
		oneOf("output.parquet_compression", c.Output.ParquetCompression, "snappy", "zstd", "gzip", "none"),
		oneOf("storage.backend", c.Storage.Backend, "local", "s3", "minio", "azure", "azblob"),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	if c.Decode.MaxErrors < 0 {
		return fmt.Errorf("decode.max_errors cannot be negative: %d", c.Decode.MaxErrors)
	}
	if c.Decode.BufferSize <= 0 {
		return fmt.Errorf("decode.buffer_size must be positive")
	}
	if c.Decode.BufferSize > MaxBufferSize {
		return fmt.Errorf("decode.buffer_size %d exceeds the 64MB limit", c.Decode.BufferSize)
	}
	if c.Output.BatchSize <= 0 {
		return fmt.Errorf("output.batch_size must be positive: %d", c.Output.BatchSize)
	}
	if c.Storage.MaxRetries < 0 {
		return fmt.Errorf("storage.max_retries cannot be negative: %d", c.Storage.MaxRetries)
	}
	return nil
}

// ParseSize parses a human-readable size string (e.g., "1GB", "500MB", "100KB") to bytes.
// Supports: B, KB, MB, GB (case-insensitive).
// Returns the size in bytes or an error if the format is invalid.
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(strings.ToUpper(sizeStr))
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	type unitInfo struct {
		suffix     string
		multiplier int64
	}
	// longer suffixes first
	units := []unitInfo{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, unit := range units {
		if strings.HasSuffix(sizeStr, unit.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(sizeStr, unit.suffix))

			var num float64
			var trailing string
			n, _ := fmt.Sscanf(numStr, "%f%s", &num, &trailing)
			if n == 0 {
				return 0, fmt.Errorf("invalid size number: %s", numStr)
			}
			if trailing != "" {
				// e.g. the "T" of "1TB"
				return 0, fmt.Errorf("invalid size format: %s (use e.g., '1MB', '64KB')", sizeStr)
			}
			if num < 0 {
				return 0, fmt.Errorf("size cannot be negative: %s", sizeStr)
			}
			return int64(num * float64(unit.multiplier)), nil
		}
	}

	// plain number of bytes
	var num int64
	var trailing string
	n, _ := fmt.Sscanf(sizeStr, "%d%s", &num, &trailing)
	if n == 0 || trailing != "" {
		return 0, fmt.Errorf("invalid size format: %s (use e.g., '1MB', '64KB')", sizeStr)
	}
	if num < 0 {
		return 0, fmt.Errorf("size cannot be negative: %s", sizeStr)
	}
	return num, nil
}
