// Package config provides configuration loading and validation for the CLI
// and the HTTP server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/cv-builder/internal/storage"
	"gopkg.in/yaml.v3"
)

// Config represents the settings that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults, CLI flags or the
// environment.
type Config struct {
	// Server
	Port        int      `json:"port,omitempty" yaml:"port,omitempty"`
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`

	// Storage
	StorageBackend string `json:"storage_backend,omitempty" yaml:"storage_backend,omitempty"` // memory, file, redis or postgres
	DataDir        string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`               // Directory for the file backend
	RedisURL       string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	RedisTTLHours  int    `json:"redis_ttl_hours,omitempty" yaml:"redis_ttl_hours,omitempty"` // 0 keeps keys forever
	DatabaseURL    string `json:"database_url,omitempty" yaml:"database_url,omitempty"`       // PostgreSQL connection URL

	// Text generation
	LLMProvider string `json:"llm_provider,omitempty" yaml:"llm_provider,omitempty"` // groq or gemini
	APIKey      string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Export
	ChromePath   string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	TemplatePath string `json:"template_path,omitempty" yaml:"template_path,omitempty"` // Overrides the embedded page template

	// Rate limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute,omitempty" yaml:"rate_limit_per_minute,omitempty"`
	RateLimitBurst     int `json:"rate_limit_burst,omitempty" yaml:"rate_limit_burst,omitempty"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:               8080,
		CORSOrigins:        []string{"*"},
		StorageBackend:     storage.BackendFile,
		DataDir:            "data",
		LLMProvider:        "groq",
		RateLimitPerMinute: 60,
		RateLimitBurst:     10,
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by the
// file extension (.yaml/.yml, anything else is JSON).
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv overlays environment variables that are set onto a copy of c.
// The API key is read from GROQ_API_KEY or GEMINI_API_KEY depending on the
// selected provider.
func (c Config) ApplyEnv(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	result := c

	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString(&result.StorageBackend, "STORAGE_BACKEND")
	setString(&result.DataDir, "DATA_DIR")
	setString(&result.RedisURL, "REDIS_URL")
	setString(&result.DatabaseURL, "DATABASE_URL")
	setString(&result.LLMProvider, "LLM_PROVIDER")
	setString(&result.ChromePath, "CHROME_PATH")

	if strings.EqualFold(result.LLMProvider, "gemini") {
		setString(&result.APIKey, "GEMINI_API_KEY")
	} else {
		setString(&result.APIKey, "GROQ_API_KEY")
	}

	if v := strings.TrimSpace(getenv("CORS_ORIGINS")); v != "" {
		result.CORSOrigins = splitList(v)
	}

	for key, dst := range map[string]*int{
		"PORT":                  &result.Port,
		"REDIS_TTL_HOURS":       &result.RedisTTLHours,
		"RATE_LIMIT_PER_MINUTE": &result.RateLimitPerMinute,
		"RATE_LIMIT_BURST":      &result.RateLimitBurst,
	} {
		if err := setInt(dst, key); err != nil {
			return c, err
		}
	}

	return result, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.RedisTTLHours < 0 {
		return fmt.Errorf("config error: 'redis_ttl_hours' must be non-negative")
	}
	if c.RateLimitPerMinute < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("config error: rate limits must be non-negative")
	}

	switch strings.ToLower(c.StorageBackend) {
	case "", storage.BackendMemory, storage.BackendFile:
	case storage.BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config error: 'redis_url' is required for the redis backend")
		}
	case storage.BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'database_url' is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config error: unknown storage backend %q", c.StorageBackend)
	}

	switch strings.ToLower(c.LLMProvider) {
	case "", "groq", "gemini":
	default:
		return fmt.Errorf("config error: unknown llm provider %q", c.LLMProvider)
	}

	if c.TemplatePath != "" {
		if _, err := os.Stat(c.TemplatePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: template file not found: %s", c.TemplatePath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	for _, f := range []struct {
		dst *string
		def string
	}{
		{&result.StorageBackend, defaults.StorageBackend},
		{&result.DataDir, defaults.DataDir},
		{&result.RedisURL, defaults.RedisURL},
		{&result.DatabaseURL, defaults.DatabaseURL},
		{&result.LLMProvider, defaults.LLMProvider},
		{&result.APIKey, defaults.APIKey},
		{&result.ChromePath, defaults.ChromePath},
		{&result.TemplatePath, defaults.TemplatePath},
	} {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RedisTTLHours == 0 {
		result.RedisTTLHours = defaults.RedisTTLHours
	}
	if result.RateLimitPerMinute == 0 {
		result.RateLimitPerMinute = defaults.RateLimitPerMinute
	}
	if result.RateLimitBurst == 0 {
		result.RateLimitBurst = defaults.RateLimitBurst
	}

	if len(result.CORSOrigins) == 0 {
		result.CORSOrigins = append([]string(nil), defaults.CORSOrigins...)
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// StorageOptions converts the storage settings for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:     strings.ToLower(c.StorageBackend),
		DataDir:     c.DataDir,
		RedisURL:    c.RedisURL,
		RedisTTL:    time.Duration(c.RedisTTLHours) * time.Hour,
		DatabaseURL: c.DatabaseURL,
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
