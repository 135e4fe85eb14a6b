package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// providerKeyEnv are conventional API key variables read when
// CLEVER_EMBEDDING_API_KEY is not set.
var providerKeyEnv = map[string][]string{
	ProviderOpenAI: {"OPENAI_API_KEY"},
	ProviderAzure:  {"AZURE_OPENAI_API_KEY", "OPENAI_API_KEY"},
	ProviderGemini: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Loader builds a Config from its layers.
type Loader struct {
	// Store is the config file. Optional.
	Store driven.ConfigStore

	// EnvFiles are dotenv files loaded before reading the environment.
	// Missing files are skipped. Variables already set are not overridden.
	EnvFiles []string

	// Getenv reads the environment. Defaults to os.LookupEnv.
	Getenv func(key string) (string, bool)
}

// Load applies defaults, the config file and the environment.
// Flags are applied by the caller with Config.Set.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.Store != nil {
		for _, key := range l.Store.Keys() {
			v, _ := l.Store.Get(key)
			if err := cfg.Set(key, v); err != nil {
				return nil, fmt.Errorf("%s: %w", l.Store.Path(), err)
			}
		}
	}

	for _, file := range l.EnvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	getenv := l.Getenv
	if getenv == nil {
		getenv = os.LookupEnv
	}
	for _, f := range fields {
		if v, ok := getenv(f.env); ok {
			if err := cfg.Set(f.key, v); err != nil {
				return nil, fmt.Errorf("%s: %w", f.env, err)
			}
		}
	}

	if cfg.Embedding.APIKey == "" {
		for _, name := range providerKeyEnv[cfg.Embedding.Provider] {
			if v, ok := getenv(name); ok && v != "" {
				cfg.Embedding.APIKey = v
				break
			}
		}
	}

	return &cfg, nil
}
