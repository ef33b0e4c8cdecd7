// Package config loads wayfarer settings from defaults, an optional YAML
// file and WAYFARER_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. WAYFARER_DB_PATH.
const EnvPrefix = "WAYFARER_"

// DefaultLocalQuotaBytes matches the storage quota browsers give a site.
const DefaultLocalQuotaBytes int64 = 5 << 20

type Config struct {
	SupabaseURL     string `yaml:"supabase_url" validate:"omitempty,url"`
	SupabaseAnonKey string `yaml:"supabase_anon_key"`
	// DatabaseURL is a direct Postgres connection used only for change
	// notifications.
	DatabaseURL string `yaml:"database_url"`
	AuthEmail   string `yaml:"auth_email" validate:"omitempty,email"`
	// FallbackPassword gates writes when no remote auth is configured.
	FallbackPassword string `yaml:"fallback_password"`

	CloudinaryCloudName    string `yaml:"cloudinary_cloud_name"`
	CloudinaryUploadPreset string `yaml:"cloudinary_upload_preset"`

	DBPath          string `yaml:"db_path"`
	LocalQuotaBytes int64  `yaml:"local_quota_bytes" validate:"gte=0"`
	NominatimServer string `yaml:"nominatim_server" validate:"omitempty,url"`

	LogLevel    string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Environment string `yaml:"environment" validate:"omitempty,oneof=development production"`
}

// Default returns the built-in settings: local storage only.
func Default() Config {
	return Config{
		LocalQuotaBytes: DefaultLocalQuotaBytes,
		LogLevel:        "info",
		Environment:     "development",
	}
}

// RemoteConfigured reports whether the hosted store should be used.
func (c Config) RemoteConfigured() bool {
	return strings.TrimSpace(c.SupabaseURL) != "" && strings.TrimSpace(c.SupabaseAnonKey) != ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field formats and cross-field requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.RemoteConfigured() && c.AuthEmail == "" {
		return errors.New("auth_email is required when supabase_url is set")
	}
	return nil
}

// Load reads path over the defaults and applies environment overrides from
// lookup (os.LookupEnv when nil). A missing file is an error only when
// mustExist is set.
func Load(path string, mustExist bool, lookup func(string) (string, bool)) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !mustExist:
		default:
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SUPABASE_URL":             &cfg.SupabaseURL,
		"SUPABASE_ANON_KEY":        &cfg.SupabaseAnonKey,
		"DATABASE_URL":             &cfg.DatabaseURL,
		"AUTH_EMAIL":               &cfg.AuthEmail,
		"FALLBACK_PASSWORD":        &cfg.FallbackPassword,
		"CLOUDINARY_CLOUD_NAME":    &cfg.CloudinaryCloudName,
		"CLOUDINARY_UPLOAD_PRESET": &cfg.CloudinaryUploadPreset,
		"DB_PATH":                  &cfg.DBPath,
		"NOMINATIM_SERVER":         &cfg.NominatimServer,
		"LOG_LEVEL":                &cfg.LogLevel,
		"ENVIRONMENT":              &cfg.Environment,
	}
	for name, field := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*field = v
		}
	}

	if v, ok := lookup(EnvPrefix + "LOCAL_QUOTA_BYTES"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sLOCAL_QUOTA_BYTES %q: %w", EnvPrefix, v, err)
		}
		cfg.LocalQuotaBytes = n
	}
	return nil
}
