package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// field binds a dotted key to a Config member.
type field struct {
	key string
	env string
	get func(c *Config) any
	set func(c *Config, v any) error
}

var fields = []field{
	intField("chunking.max_tokens", func(c *Config) *int { return &c.Chunking.MaxTokens }),
	intField("chunking.overlap", func(c *Config) *int { return &c.Chunking.Overlap }),
	stringField("chunking.scheme", func(c *Config) *string { return &c.Chunking.Scheme }),

	stringField("embedding.provider", func(c *Config) *string { return &c.Embedding.Provider }),
	stringField("embedding.model", func(c *Config) *string { return &c.Embedding.Model }),
	stringField("embedding.api_key", func(c *Config) *string { return &c.Embedding.APIKey }),
	stringField("embedding.base_url", func(c *Config) *string { return &c.Embedding.BaseURL }),
	stringField("embedding.api_version", func(c *Config) *string { return &c.Embedding.APIVersion }),
	intField("embedding.dimensions", func(c *Config) *int { return &c.Embedding.Dimensions }),
	intField("embedding.batch_size", func(c *Config) *int { return &c.Embedding.BatchSize }),
	intField("embedding.concurrency", func(c *Config) *int { return &c.Embedding.Concurrency }),
	floatField("embedding.requests_per_second", func(c *Config) *float64 { return &c.Embedding.RequestsPerSecond }),
	durationField("embedding.timeout", func(c *Config) *time.Duration { return &c.Embedding.Timeout }),

	intField("retry.max_attempts", func(c *Config) *int { return &c.Retry.MaxAttempts }),
	durationField("retry.base_delay", func(c *Config) *time.Duration { return &c.Retry.BaseDelay }),
	floatField("retry.multiplier", func(c *Config) *float64 { return &c.Retry.Multiplier }),
	durationField("retry.max_delay", func(c *Config) *time.Duration { return &c.Retry.MaxDelay }),

	stringField("storage.data_dir", func(c *Config) *string { return &c.Storage.DataDir }),

	stringField("blob.backend", func(c *Config) *string { return &c.Blob.Backend }),
	stringField("blob.bucket", func(c *Config) *string { return &c.Blob.Bucket }),
	stringField("blob.prefix", func(c *Config) *string { return &c.Blob.Prefix }),
	stringField("blob.region", func(c *Config) *string { return &c.Blob.Region }),
	stringField("blob.endpoint", func(c *Config) *string { return &c.Blob.Endpoint }),
	stringField("blob.access_key_id", func(c *Config) *string { return &c.Blob.AccessKeyID }),
	stringField("blob.secret_access_key", func(c *Config) *string { return &c.Blob.SecretAccessKey }),

	stringField("metadata.backend", func(c *Config) *string { return &c.Metadata.Backend }),
	stringField("metadata.uri", func(c *Config) *string { return &c.Metadata.URI }),
	stringField("metadata.database", func(c *Config) *string { return &c.Metadata.Database }),

	stringField("vector.backend", func(c *Config) *string { return &c.Vector.Backend }),
	stringField("vector.address", func(c *Config) *string { return &c.Vector.Address }),
	stringField("vector.collection", func(c *Config) *string { return &c.Vector.Collection }),

	boolField("keyword.enabled", func(c *Config) *bool { return &c.Keyword.Enabled }),

	listField("ingest.default_tags", func(c *Config) *[]string { return &c.Ingest.DefaultTags }),
	intField("ingest.parallel", func(c *Config) *int { return &c.Ingest.Parallel }),

	stringField("log.format", func(c *Config) *string { return &c.Log.Format }),

	withEnv(boolField("trace.enabled", func(c *Config) *bool { return &c.Trace.Enabled }), "CLEVER_TRACE"),
	stringField("trace.endpoint", func(c *Config) *string { return &c.Trace.Endpoint }),
}

// secretKeys are masked when printed.
var secretKeys = map[string]bool{
	"embedding.api_key":      true,
	"blob.secret_access_key": true,
}

// Keys returns every configuration key in sorted order.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	sort.Strings(keys)
	return keys
}

// IsSecret reports whether key holds a credential.
func IsSecret(key string) bool {
	return secretKeys[key]
}

// EnvName returns the environment variable that sets key.
func EnvName(key string) string {
	if f, ok := lookup(key); ok {
		return f.env
	}
	return envName(key)
}

// Get returns the value of key in c.
func (c *Config) Get(key string) (any, error) {
	f, ok := lookup(key)
	if !ok {
		return nil, unknownKey(key)
	}
	return f.get(c), nil
}

// Set parses v into the member bound to key.
// Strings are parsed for non-string members.
func (c *Config) Set(key string, v any) error {
	f, ok := lookup(key)
	if !ok {
		return unknownKey(key)
	}
	if err := f.set(c, v); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	return nil
}

// Normalize parses raw for key and returns the typed value to store.
func Normalize(key, raw string) (any, error) {
	c := Default()
	if err := c.Set(key, raw); err != nil {
		return nil, err
	}
	v, _ := c.Get(key)
	if d, ok := v.(time.Duration); ok {
		// TOML has no duration type.
		return d.String(), nil
	}
	return v, nil
}

// Format renders v for display.
func Format(v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, ",")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func lookup(key string) (field, bool) {
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

func unknownKey(key string) error {
	return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
}

func envName(key string) string {
	return "CLEVER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func withEnv(f field, env string) field {
	f.env = env
	return f
}

func stringField(key string, ptr func(c *Config) *string) field {
	return field{
		key: key,
		env: envName(key),
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected a string, got %T", v)
			}
			*ptr(c) = strings.TrimSpace(s)
			return nil
		},
	}
}

func intField(key string, ptr func(c *Config) *int) field {
	return field{
		key: key,
		env: envName(key),
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v any) error {
			switch t := v.(type) {
			case int:
				*ptr(c) = t
			case int64:
				*ptr(c) = int(t)
			case string:
				n, err := strconv.Atoi(strings.TrimSpace(t))
				if err != nil {
					return fmt.Errorf("expected an integer, got %q", t)
				}
				*ptr(c) = n
			default:
				return fmt.Errorf("expected an integer, got %T", v)
			}
			return nil
		},
	}
}

func floatField(key string, ptr func(c *Config) *float64) field {
	return field{
		key: key,
		env: envName(key),
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v any) error {
			switch t := v.(type) {
			case float64:
				*ptr(c) = t
			case int:
				*ptr(c) = float64(t)
			case int64:
				*ptr(c) = float64(t)
			case string:
				f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
				if err != nil {
					return fmt.Errorf("expected a number, got %q", t)
				}
				*ptr(c) = f
			default:
				return fmt.Errorf("expected a number, got %T", v)
			}
			return nil
		},
	}
}

func boolField(key string, ptr func(c *Config) *bool) field {
	return field{
		key: key,
		env: envName(key),
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v any) error {
			switch t := v.(type) {
			case bool:
				*ptr(c) = t
			case string:
				b, err := strconv.ParseBool(strings.TrimSpace(t))
				if err != nil {
					return fmt.Errorf("expected true or false, got %q", t)
				}
				*ptr(c) = b
			default:
				return fmt.Errorf("expected true or false, got %T", v)
			}
			return nil
		},
	}
}

// durationField accepts Go duration strings ("500ms") or integer milliseconds.
func durationField(key string, ptr func(c *Config) *time.Duration) field {
	return field{
		key: key,
		env: envName(key),
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v any) error {
			switch t := v.(type) {
			case time.Duration:
				*ptr(c) = t
			case int:
				*ptr(c) = time.Duration(t) * time.Millisecond
			case int64:
				*ptr(c) = time.Duration(t) * time.Millisecond
			case string:
				s := strings.TrimSpace(t)
				if n, err := strconv.Atoi(s); err == nil {
					*ptr(c) = time.Duration(n) * time.Millisecond
					return nil
				}
				d, err := time.ParseDuration(s)
				if err != nil {
					return fmt.Errorf("expected a duration, got %q", t)
				}
				*ptr(c) = d
			default:
				return fmt.Errorf("expected a duration, got %T", v)
			}
			return nil
		},
	}
}

// listField accepts arrays or comma separated strings.
func listField(key string, ptr func(c *Config) *[]string) field {
	return field{
		key: key,
		env: envName(key),
		get: func(c *Config) any { return domain.CloneTags(*ptr(c)) },
		set: func(c *Config, v any) error {
			switch t := v.(type) {
			case []string:
				*ptr(c) = SplitList(strings.Join(t, ","))
			case []any:
				out := make([]string, 0, len(t))
				for _, item := range t {
					s, ok := item.(string)
					if !ok {
						return fmt.Errorf("expected a list of strings, got %T", item)
					}
					out = append(out, s)
				}
				*ptr(c) = SplitList(strings.Join(out, ","))
			case string:
				*ptr(c) = SplitList(t)
			default:
				return fmt.Errorf("expected a list, got %T", v)
			}
			return nil
		},
	}
}

// SplitList splits a comma separated list, trimming blanks and dropping empties.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
