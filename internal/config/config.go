// Package config loads grimoire settings from an optional TOML file and
// GRIMOIRE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/roach88/grimoire/internal/dbc"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GRIMOIRE_"

// Config is the full configuration.
type Config struct {
	Source SourceConfig `toml:"source" envPrefix:"SOURCE_"`
	Store  StoreConfig  `toml:"store" envPrefix:"STORE_"`
	Engine EngineConfig `toml:"engine" envPrefix:"ENGINE_"`
	Log    LogConfig    `toml:"log" envPrefix:"LOG_"`
}

// SourceConfig selects where reference tables come from. Dir wins over
// BaseURL when both are set.
type SourceConfig struct {
	BaseURL           string        `toml:"base_url" env:"BASE_URL" validate:"omitempty,url"`
	Dir               string        `toml:"dir" env:"DIR"`
	Build             string        `toml:"build" env:"BUILD"`
	RequestsPerSecond float64       `toml:"requests_per_second" env:"REQUESTS_PER_SECOND" validate:"gte=0"`
	Burst             int           `toml:"burst" env:"BURST" validate:"gte=1"`
	Timeout           time.Duration `toml:"timeout" env:"TIMEOUT" validate:"gt=0"`
}

// StoreConfig configures the SQLite database. An empty Path disables the
// table cache and run history.
type StoreConfig struct {
	Path string `toml:"path" env:"PATH"`
}

// EngineConfig tunes the enrichment engine.
type EngineConfig struct {
	// PreloadLimit caps concurrent table loads. 0 means unlimited.
	PreloadLimit int `toml:"preload_limit" env:"PRELOAD_LIMIT" validate:"gte=0"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `toml:"format" env:"FORMAT" validate:"oneof=text json"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL:           dbc.DefaultBaseURL,
			RequestsPerSecond: dbc.DefaultRequestsPerSec,
			Burst:             dbc.DefaultBurst,
			Timeout:           dbc.DefaultTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load applies, in order: defaults, the TOML file at path (skipped when
// path is empty), GRIMOIRE_* environment variables, then validation.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// load takes an explicit environment for tests; nil means os.Environ.
func load(path string, environ map[string]string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("parse config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		src := sl.Current().Interface().(SourceConfig)
		if src.BaseURL == "" && src.Dir == "" {
			sl.ReportError(src.BaseURL, "BaseURL", "BaseURL", "required_without_dir", "")
		}
	}, SourceConfig{})
	return v
}

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
