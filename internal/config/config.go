// Package config assembles the runtime configuration of clever.
//
// Values are layered: built-in defaults, then the TOML config file, then a
// .env file and CLEVER_* environment variables, then command-line flags.
// Every setting has a dotted key ("embedding.provider") that is the same in
// all layers; the environment name is CLEVER_ followed by the key in upper
// case with dots replaced by underscores.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// Embedding providers.
const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
	BackendSQLite     = "sqlite"
	BackendMemory     = "memory"
	BackendMongo      = "mongo"
	BackendChromem    = "chromem"
	BackendMilvus     = "milvus"
)

// Config is the complete runtime configuration.
type Config struct {
	Chunking  domain.ChunkingConfig
	Embedding EmbeddingConfig
	Retry     domain.RetryPolicy
	Storage   StorageConfig
	Blob      BlobConfig
	Metadata  MetadataConfig
	Vector    VectorConfig
	Keyword   KeywordConfig
	Ingest    IngestConfig
	Log       LogConfig
	Trace     TraceConfig
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string

	// APIVersion is the Azure OpenAI API version.
	APIVersion string

	// Dimensions requests a vector size from providers that support it.
	// Zero keeps the model default.
	Dimensions int

	BatchSize   int
	Concurrency int

	// RequestsPerSecond limits provider calls. Zero is unlimited.
	RequestsPerSecond float64

	Timeout time.Duration
}

// StorageConfig locates local state.
type StorageConfig struct {
	DataDir string
}

// BlobConfig selects where uploads are kept.
type BlobConfig struct {
	Backend         string
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// MetadataConfig selects the document metadata store.
type MetadataConfig struct {
	Backend  string
	URI      string
	Database string
}

// VectorConfig selects the vector index.
type VectorConfig struct {
	Backend    string
	Address    string
	Collection string
}

// KeywordConfig toggles the full-text index.
type KeywordConfig struct {
	Enabled bool
}

// IngestConfig holds pipeline defaults.
type IngestConfig struct {
	DefaultTags []string
	Parallel    int
}

// LogConfig selects the log format.
type LogConfig struct {
	Format string
}

// TraceConfig controls OpenTelemetry export.
type TraceConfig struct {
	Enabled  bool
	Endpoint string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Chunking: domain.DefaultChunkingConfig(),
		Embedding: EmbeddingConfig{
			Provider:    ProviderLocal,
			APIVersion:  "2024-02-01",
			BatchSize:   10,
			Concurrency: 4,
			Timeout:     60 * time.Second,
		},
		Retry:    domain.DefaultRetryPolicy(),
		Storage:  StorageConfig{DataDir: filepath.Join("~", ".clever", "data")},
		Blob:     BlobConfig{Backend: BackendFilesystem, Region: "us-east-1"},
		Metadata: MetadataConfig{Backend: BackendSQLite, Database: "clever"},
		Vector:   VectorConfig{Backend: BackendSQLite, Collection: "clever_records"},
		Keyword:  KeywordConfig{Enabled: true},
		Ingest:   IngestConfig{DefaultTags: []string{"technical section"}, Parallel: 4},
		Log:      LogConfig{Format: "text"},
		Trace:    TraceConfig{Endpoint: "localhost:4317"},
	}
}

// DataDir returns Storage.DataDir with a leading ~ expanded.
func (c *Config) DataDir() (string, error) {
	return expandHome(c.Storage.DataDir)
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}

	if err := oneOf("embedding.provider", c.Embedding.Provider,
		ProviderLocal, ProviderOpenAI, ProviderAzure, ProviderOllama, ProviderGemini); err != nil {
		return err
	}
	if err := oneOf("blob.backend", c.Blob.Backend, BackendFilesystem, BackendS3); err != nil {
		return err
	}
	if err := oneOf("metadata.backend", c.Metadata.Backend, BackendSQLite, BackendMemory, BackendMongo); err != nil {
		return err
	}
	if err := oneOf("vector.backend", c.Vector.Backend,
		BackendSQLite, BackendMemory, BackendChromem, BackendMilvus); err != nil {
		return err
	}
	if err := oneOf("log.format", c.Log.Format, "text", "json"); err != nil {
		return err
	}

	switch {
	case c.Embedding.BatchSize < 1:
		return invalid("embedding.batch_size must be at least 1")
	case c.Embedding.Concurrency < 1:
		return invalid("embedding.concurrency must be at least 1")
	case c.Embedding.RequestsPerSecond < 0:
		return invalid("embedding.requests_per_second must not be negative")
	case c.Embedding.Dimensions < 0:
		return invalid("embedding.dimensions must not be negative")
	case c.Ingest.Parallel < 1:
		return invalid("ingest.parallel must be at least 1")
	case c.Blob.Backend == BackendS3 && c.Blob.Bucket == "":
		return invalid("blob.bucket is required for the s3 backend")
	case c.Metadata.Backend == BackendMongo && c.Metadata.URI == "":
		return invalid("metadata.uri is required for the mongo backend")
	case c.Vector.Backend == BackendMilvus && c.Vector.Address == "":
		return invalid("vector.address is required for the milvus backend")
	case c.Embedding.Provider == ProviderAzure && c.Embedding.BaseURL == "":
		return invalid("embedding.base_url is required for the azure provider")
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return invalid(fmt.Sprintf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value))
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
}
