// Package config loads runtime settings from .env, built-in defaults and the
// environment, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces variables: LINGO_AUTH_JWT_SECRET -> auth.jwt_secret.
const EnvPrefix = "LINGO_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	Generator GeneratorConfig `koanf:"generator"`
	Storage   StorageConfig   `koanf:"storage"`
	Logging   LoggingConfig   `koanf:"logging"`
	Workers   WorkersConfig   `koanf:"workers"`
}

type ServerConfig struct {
	Port           int    `koanf:"port" validate:"min=1,max=65535"`
	AllowedOrigins string `koanf:"allowed_origins"`
	BodyLimitMB    int    `koanf:"body_limit_mb" validate:"min=1"`
}

type DatabaseConfig struct {
	// Driver is postgres or memory.
	Driver string `koanf:"driver" validate:"oneof=postgres memory"`
	URL    string `koanf:"url" validate:"required_if=Driver postgres"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret" validate:"required"`
	TokenTTL  time.Duration `koanf:"token_ttl" validate:"gt=0"`
	// AdminKey unlocks operator routes (curriculum import). Empty disables them.
	AdminKey string `koanf:"admin_key"`
}

// GeneratorConfig points at an OpenAI-compatible chat completions endpoint.
type GeneratorConfig struct {
	APIKey        string        `koanf:"api_key"`
	BaseURL       string        `koanf:"base_url" validate:"required,url"`
	Model         string        `koanf:"model" validate:"required"`
	Timeout       time.Duration `koanf:"timeout" validate:"gt=0"`
	RatePerMinute int           `koanf:"rate_per_minute" validate:"min=1"`
	TargetLang    string        `koanf:"target_language"`
	SourceLang    string        `koanf:"source_language"`
}

// StorageConfig configures the optional R2 archive for generated content.
type StorageConfig struct {
	R2AccountID string `koanf:"r2_account_id"`
	R2AccessKey string `koanf:"r2_access_key"`
	R2SecretKey string `koanf:"r2_secret_key"`
	R2Bucket    string `koanf:"r2_bucket"`
}

// ArchiveEnabled reports whether every R2 setting is present.
func (s StorageConfig) ArchiveEnabled() bool {
	return s.R2AccountID != "" && s.R2AccessKey != "" && s.R2SecretKey != "" && s.R2Bucket != ""
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type WorkersConfig struct {
	InventorySweepInterval time.Duration `koanf:"inventory_sweep_interval" validate:"gt=0"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           8001,
			AllowedOrigins: "http://localhost:3000",
			BodyLimitMB:    10,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		Auth: AuthConfig{
			TokenTTL: 30 * 24 * time.Hour,
		},
		Generator: GeneratorConfig{
			BaseURL:       "https://api.openai.com/v1",
			Model:         "gpt-4o-mini",
			Timeout:       60 * time.Second,
			RatePerMinute: 30,
			TargetLang:    "Romanian",
			SourceLang:    "Turkish",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Workers: WorkersConfig{
			InventorySweepInterval: time.Minute,
		},
	}
}

// legacyEnv maps the unprefixed variable names of earlier deployments.
var legacyEnv = map[string]string{
	"port":             "server.port",
	"allowed_origins":  "server.allowed_origins",
	"database_url":     "database.url",
	"storage_driver":   "database.driver",
	"jwt_secret":       "auth.jwt_secret",
	"admin_api_key":    "auth.admin_key",
	"openai_api_key":   "generator.api_key",
	"llm_api_key":      "generator.api_key",
	"llm_base_url":     "generator.base_url",
	"llm_model":        "generator.model",
	"r2_account_id":    "storage.r2_account_id",
	"r2_access_key_id": "storage.r2_access_key",
	"r2_secret_key":    "storage.r2_secret_key",
	"r2_bucket_name":   "storage.r2_bucket",
	"log_level":        "logging.level",
	"log_format":       "logging.format",
}

// envTransform turns an environment variable name into a koanf path, or ""
// to ignore it.
func envTransform(key string) string {
	lower := strings.ToLower(key)
	if path, ok := legacyEnv[lower]; ok {
		return path
	}
	prefix := strings.ToLower(EnvPrefix)
	if !strings.HasPrefix(lower, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(lower, prefix)
	section, field, ok := strings.Cut(rest, "_")
	if !ok || field == "" {
		return ""
	}
	return section + "." + field
}

// Load reads .env when present, then layers defaults and environment
// variables, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Origins splits AllowedOrigins on commas and trims each entry.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
