// Package app wires configuration to adapters and core services.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/clever-documents/internal/adapters/driven/blob/filesystem"
	s3blob "github.com/custodia-labs/clever-documents/internal/adapters/driven/blob/s3"
	"github.com/custodia-labs/clever-documents/internal/adapters/driven/embedding/gemini"
	"github.com/custodia-labs/clever-documents/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/clever-documents/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/clever-documents/internal/adapters/driven/embedding/openai"
	bleveindex "github.com/custodia-labs/clever-documents/internal/adapters/driven/keyword/bleve"
	memstore "github.com/custodia-labs/clever-documents/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/clever-documents/internal/adapters/driven/storage/mongo"
	"github.com/custodia-labs/clever-documents/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/clever-documents/internal/adapters/driven/tokenizer"
	chromemindex "github.com/custodia-labs/clever-documents/internal/adapters/driven/vector/chromem"
	memvector "github.com/custodia-labs/clever-documents/internal/adapters/driven/vector/memory"
	milvusindex "github.com/custodia-labs/clever-documents/internal/adapters/driven/vector/milvus"
	"github.com/custodia-labs/clever-documents/internal/config"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/core/services"
	"github.com/custodia-labs/clever-documents/internal/embedding"
	"github.com/custodia-labs/clever-documents/internal/logger"
	"github.com/custodia-labs/clever-documents/internal/normalisers"
	"github.com/custodia-labs/clever-documents/internal/postprocessors"
	"github.com/custodia-labs/clever-documents/internal/postprocessors/chunker"
)

// App holds the wired services and the resources behind them.
type App struct {
	Config    *config.Config
	Ingest    *services.IngestService
	Search    *services.SearchService
	Documents *services.DocumentService
	Embedder  driven.EmbeddingService

	closers []func() error
}

// New builds every adapter named by cfg and the services on top of them.
// On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()
	a = app

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	chunk, err := a.buildChunker()
	if err != nil {
		return nil, err
	}

	svc, err := a.buildEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	a.Embedder = embedding.NewBatcher(svc,
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithConcurrency(cfg.Embedding.Concurrency),
		embedding.WithRetryPolicy(cfg.Retry),
		embedding.WithRateLimit(cfg.Embedding.RequestsPerSecond, cfg.Embedding.Concurrency),
	)
	a.onClose(a.Embedder.Close)

	blobs, err := a.buildBlobStore(dataDir)
	if err != nil {
		return nil, err
	}

	var store *sqlite.Store
	sqliteStore := func() (*sqlite.Store, error) {
		if store != nil {
			return store, nil
		}
		s, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, err
		}
		a.onClose(s.Close)
		store = s
		return s, nil
	}

	metadata, err := a.buildMetadataStore(ctx, sqliteStore)
	if err != nil {
		return nil, err
	}
	vectors, err := a.buildVectorIndex(ctx, dataDir, sqliteStore)
	if err != nil {
		return nil, err
	}
	keywords, err := a.buildKeywordIndex(dataDir)
	if err != nil {
		return nil, err
	}

	ports := services.IngestPorts{
		Chunker:     chunk,
		Embedder:    a.Embedder,
		Blobs:       blobs,
		Metadata:    metadata,
		Vectors:     vectors,
		Normalisers: normalisers.NewDefaultRegistry(),
	}
	// A typed nil must not reach the services.
	if keywords != nil {
		ports.Keywords = keywords
	}

	a.Ingest, err = services.NewIngestService(ports, cfg.Ingest.DefaultTags)
	if err != nil {
		return nil, err
	}
	a.Search = services.NewSearchService(a.Embedder, vectors, ports.Keywords)
	a.Documents = services.NewDocumentService(metadata, blobs, vectors, ports.Keywords)

	logger.Debug("app ready",
		"data_dir", dataDir,
		"provider", cfg.Embedding.Provider,
		"model", a.Embedder.ModelName(),
		"metadata", cfg.Metadata.Backend,
		"vector", cfg.Vector.Backend,
		"blob", cfg.Blob.Backend,
		"keyword", cfg.Keyword.Enabled,
	)
	return a, nil
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *App) buildChunker() (driven.Chunker, error) {
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry, tokenizer.NewFactory())

	c := a.Config.Chunking
	return registry.Build(chunker.Name, map[string]any{
		"scheme":     c.Scheme,
		"max_tokens": c.MaxTokens,
		"overlap":    c.Overlap,
	})
}

func (a *App) buildEmbedder(ctx context.Context) (driven.EmbeddingService, error) {
	e := a.Config.Embedding
	switch e.Provider {
	case config.ProviderOpenAI, config.ProviderAzure:
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     e.APIKey,
			BaseURL:    e.BaseURL,
			Azure:      e.Provider == config.ProviderAzure,
			APIVersion: e.APIVersion,
			Model:      e.Model,
			Timeout:    e.Timeout,
			Dimensions: e.Dimensions,
		})
	case config.ProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    e.BaseURL,
			Model:      e.Model,
			Timeout:    e.Timeout,
			Dimensions: e.Dimensions,
		}), nil
	case config.ProviderGemini:
		return gemini.NewEmbeddingService(ctx, gemini.Config{
			APIKey:     e.APIKey,
			Model:      e.Model,
			Dimensions: e.Dimensions,
		})
	default:
		return local.NewEmbeddingService(e.Dimensions), nil
	}
}

func (a *App) buildBlobStore(dataDir string) (driven.BlobStore, error) {
	b := a.Config.Blob
	if b.Backend == config.BackendS3 {
		return s3blob.New(s3blob.Config{
			Bucket:          b.Bucket,
			Prefix:          b.Prefix,
			Region:          b.Region,
			Endpoint:        b.Endpoint,
			AccessKeyID:     b.AccessKeyID,
			SecretAccessKey: b.SecretAccessKey,
		})
	}
	return filesystem.New(filepath.Join(dataDir, "blobs"))
}

func (a *App) buildMetadataStore(
	ctx context.Context,
	sqliteStore func() (*sqlite.Store, error),
) (driven.MetadataStore, error) {
	m := a.Config.Metadata
	switch m.Backend {
	case config.BackendMemory:
		return memstore.NewMetadataStore(), nil
	case config.BackendMongo:
		s, err := mongo.Connect(ctx, m.URI, m.Database)
		if err != nil {
			return nil, err
		}
		a.onClose(s.Close)
		return s, nil
	default:
		s, err := sqliteStore()
		if err != nil {
			return nil, err
		}
		return s.MetadataStore(), nil
	}
}

func (a *App) buildVectorIndex(
	ctx context.Context,
	dataDir string,
	sqliteStore func() (*sqlite.Store, error),
) (driven.VectorIndex, error) {
	v := a.Config.Vector
	switch v.Backend {
	case config.BackendMemory:
		return memvector.New(), nil
	case config.BackendChromem:
		x, err := chromemindex.NewPersistent(filepath.Join(dataDir, "chromem"), v.Collection)
		if err != nil {
			return nil, err
		}
		a.onClose(x.Close)
		return x, nil
	case config.BackendMilvus:
		x, err := milvusindex.New(ctx, milvusindex.Config{
			Address:    v.Address,
			Collection: v.Collection,
			Dimensions: a.Embedder.Dimensions(),
		})
		if err != nil {
			return nil, err
		}
		a.onClose(x.Close)
		return x, nil
	default:
		s, err := sqliteStore()
		if err != nil {
			return nil, err
		}
		return s.VectorIndex(), nil
	}
}

// buildKeywordIndex returns nil when the keyword index is disabled.
// The index lives in memory alongside an in-memory vector index.
func (a *App) buildKeywordIndex(dataDir string) (*bleveindex.Index, error) {
	if !a.Config.Keyword.Enabled {
		return nil, nil
	}

	var (
		x   *bleveindex.Index
		err error
	)
	if a.Config.Vector.Backend == config.BackendMemory {
		x, err = bleveindex.NewMemory()
	} else {
		x, err = bleveindex.Open(filepath.Join(dataDir, "keyword"))
	}
	if err != nil {
		return nil, err
	}
	a.onClose(x.Close)
	return x, nil
}
