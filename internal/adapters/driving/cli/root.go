// Package cli provides the clever command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clever-documents/internal/adapters/driven/config/file"
	"github.com/custodia-labs/clever-documents/internal/config"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driving"
	"github.com/custodia-labs/clever-documents/internal/logger"
	"github.com/custodia-labs/clever-documents/internal/telemetry"
)

// version is set at build time with -ldflags.
var version = "dev"

// Services are the driving ports commands run against.
type Services struct {
	Ingest   driving.IngestService
	Search   driving.SearchService
	Document driving.DocumentService

	// Close releases the resources behind the services. Optional.
	Close func() error
}

// ServiceFactory builds services from the loaded configuration.
type ServiceFactory func(ctx context.Context, cfg *config.Config) (*Services, error)

var (
	serviceFactory ServiceFactory

	ingestService   driving.IngestService
	searchService   driving.SearchService
	documentService driving.DocumentService
	closeServices   func() error

	configStore driven.ConfigStore
	appConfig   *config.Config
	shutdown    telemetry.ShutdownFunc
)

// Global flags.
var (
	verbose    bool
	configPath string
	overrides  []string
)

var rootCmd = &cobra.Command{
	Use:   "clever",
	Short: "Ingest documents and search them by meaning",
	Long: `clever uploads documents, splits them into overlapping token windows,
embeds every window and indexes the vectors with tags for semantic search.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug logs")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.clever/config.toml)")
	rootCmd.PersistentFlags().StringArrayVar(&overrides, "set", nil, "override a config key for this run (key=value)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetServiceFactory sets how commands obtain services.
func SetServiceFactory(f ServiceFactory) {
	serviceFactory = f
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// setup loads configuration for every command.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetVerbose(verbose)

	if configStore == nil {
		store, err := openConfigStore()
		if err != nil {
			return fmt.Errorf("opening config: %w", err)
		}
		configStore = store
	}

	loader := &config.Loader{Store: configStore, EnvFiles: []string{".env"}}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	for _, kv := range overrides {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("--set expects key=value, got %q", kv)
		}
		if err := cfg.Set(strings.TrimSpace(key), value); err != nil {
			return err
		}
	}
	appConfig = cfg
	logger.SetFormat(cfg.Log.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err = telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Trace.Enabled,
		Endpoint:    cfg.Trace.Endpoint,
		ServiceName: "clever",
		Version:     version,
	})
	return err
}

func teardown(_ *cobra.Command, _ []string) error {
	var errs []error
	if closeServices != nil {
		errs = append(errs, closeServices())
		closeServices = nil
		ingestService, searchService, documentService = nil, nil, nil
	}
	if shutdown != nil {
		errs = append(errs, shutdown(context.Background()))
		shutdown = nil
	}
	return errors.Join(errs...)
}

func openConfigStore() (driven.ConfigStore, error) {
	if configPath != "" {
		return file.NewConfigStoreAt(configPath)
	}
	return file.NewConfigStore("")
}

// requireServices builds services on first use. Commands that only touch
// configuration never open storage.
func requireServices(cmd *cobra.Command) error {
	if searchService != nil {
		return nil
	}
	if serviceFactory == nil {
		return errors.New("services not configured")
	}
	if appConfig == nil {
		return errors.New("configuration not loaded")
	}

	svc, err := serviceFactory(cmd.Context(), appConfig)
	if err != nil {
		return err
	}
	ingestService = svc.Ingest
	searchService = svc.Search
	documentService = svc.Document
	closeServices = svc.Close
	return nil
}
