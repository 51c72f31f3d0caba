// Package config loads dcli settings from defaults, an optional config file,
// an optional .env file in the data directory and the environment. The
// environment wins over the files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/habedi/dcli/pkg/dclierr"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Keys double as environment variable names.
const (
	KeyAPIKey         = dclierr.APIKeyEnv
	KeyBaseURL        = "DCLI_BASE_URL"
	KeyDataDir        = "DCLI_DATA_DIR"
	KeyLanguage       = "DCLI_LANGUAGE"
	KeyMaxAttempts    = "DCLI_MAX_ATTEMPTS"
	KeyInitialBackoff = "DCLI_INITIAL_BACKOFF"
	KeyTimeout        = "DCLI_TIMEOUT"
	KeyRateLimit      = "DCLI_RATE_LIMIT"
)

const DefaultBaseURL = "https://www.bungie.net/Platform"

// Config holds everything the API client and the manifest cache need.
type Config struct {
	APIKey         string        `mapstructure:"DESTINY_API_KEY"`
	BaseURL        string        `mapstructure:"DCLI_BASE_URL"`
	DataDir        string        `mapstructure:"DCLI_DATA_DIR"`
	Language       string        `mapstructure:"DCLI_LANGUAGE"`
	MaxAttempts    int           `mapstructure:"DCLI_MAX_ATTEMPTS"`
	InitialBackoff time.Duration `mapstructure:"DCLI_INITIAL_BACKOFF"`
	Timeout        time.Duration `mapstructure:"DCLI_TIMEOUT"`
	RateLimit      int64         `mapstructure:"DCLI_RATE_LIMIT"` // bytes per second, 0 disables; accepts sizes like "2MiB"
}

// DefaultDataDir is where the manifest and local database live unless overridden.
func DefaultDataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".dcli")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyDataDir, DefaultDataDir())
	v.SetDefault(KeyLanguage, "en")
	v.SetDefault(KeyMaxAttempts, 3)
	v.SetDefault(KeyInitialBackoff, time.Second)
	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyRateLimit, 0)
	v.AutomaticEnv()
	return v
}

// Load reads configuration. An empty path falls back to config.yaml inside
// the data directory, which may be absent.
func Load(path string) (Config, error) {
	v := newViper()

	envFile := filepath.Join(v.GetString(KeyDataDir), ".env")
	if _, err := os.Stat(envFile); err == nil {
		// Variables already in the environment are left alone.
		if err := godotenv.Load(envFile); err != nil {
			log.Error().Err(err).Str("path", envFile).Msg("Failed to read env file")
			return Config{}, classify(envFile, err)
		}
		log.Debug().Str("path", envFile).Msg("Loaded env file")
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(v.GetString(KeyDataDir), "config.yaml")
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to read config file")
			return Config{}, classify(path, err)
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
	} else if explicit {
		log.Error().Err(err).Str("path", path).Msg("Config file not accessible")
		return Config{}, dclierr.FromFilesystem(err)
	}

	if raw := v.GetString(KeyRateLimit); raw != "" {
		n, err := humanize.ParseBytes(raw)
		if err != nil {
			log.Error().Err(err).Str("value", raw).Msg("Invalid rate limit")
			return Config{}, dclierr.ParameterParse()
		}
		v.Set(KeyRateLimit, int64(n))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Values that do not decode into their field type are malformed input.
		log.Error().Err(err).Str("path", path).Msg("Invalid configuration value")
		return Config{}, dclierr.ParameterParse()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot work with. A missing API key
// is not checked here; commands that need the API report it themselves.
func (c Config) Validate() error {
	if c.BaseURL == "" || c.DataDir == "" || c.Language == "" {
		return dclierr.InvalidParameters()
	}
	if c.MaxAttempts < 1 || c.Timeout <= 0 || c.InitialBackoff < 0 || c.RateLimit < 0 {
		return dclierr.InvalidParameters()
	}
	return nil
}

// DatabasePath is the local state database inside the data directory.
func (c Config) DatabasePath() string { return filepath.Join(c.DataDir, "dcli.db") }

// ManifestDir holds the extracted manifest content databases.
func (c Config) ManifestDir() string { return filepath.Join(c.DataDir, "manifest") }

func classify(path string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return dclierr.FromFilesystem(err)
	}
	return dclierr.Unknown(fmt.Sprintf("config %s : %v", path, err))
}
