// Package config holds the settings of a retrieval service and the
// tooling around it.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults match the serving values of the deployed model.
const (
	DefaultDim         = 768
	DefaultTopK        = 5
	DefaultTemperature = 0.05
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NERD_"

var (
	// ErrInvalid is returned by Validate.
	ErrInvalid = errors.New("config: invalid")
)

// Config configures a retrieval service.
type Config struct {
	// Dim is the embedding width.
	Dim int `yaml:"dim"`
	// TopK is the number of candidates returned when a caller passes k <= 0.
	TopK int `yaml:"top_k"`
	// Temperature divides scores before the softmax.
	Temperature float64 `yaml:"temperature"`

	// EmbeddingsPath and CatalogPath load a (store, catalog) pair from local
	// files. Both are ignored when a blob store supplies the generation.
	EmbeddingsPath string `yaml:"embeddings_path"`
	CatalogPath    string `yaml:"catalog_path"`

	// StoreLayout is the layout of newly written matrices: "raw" or "header".
	StoreLayout string `yaml:"store_layout"`

	// Parallelism is the number of scan workers. 0 means GOMAXPROCS.
	Parallelism int `yaml:"parallelism"`

	// MaxConcurrentPredicts bounds in-flight predictions. 0 means unbounded.
	MaxConcurrentPredicts int `yaml:"max_concurrent_predicts"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Dim:         DefaultDim,
		TopK:        DefaultTopK,
		Temperature: DefaultTemperature,
		StoreLayout: "raw",
		LogLevel:    "info",
	}
}

// Load reads a YAML file on top of the defaults and applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from NERD_* variables that are set.
func (c *Config) ApplyEnv() error {
	ints := map[string]*int{
		"DIM":                     &c.Dim,
		"TOP_K":                   &c.TopK,
		"PARALLELISM":             &c.Parallelism,
		"MAX_CONCURRENT_PREDICTS": &c.MaxConcurrentPredicts,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv(EnvPrefix + "TEMPERATURE"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("config: %sTEMPERATURE: %w", EnvPrefix, err)
		}
		c.Temperature = f
	}

	strs := map[string]*string{
		"EMBEDDINGS_PATH": &c.EmbeddingsPath,
		"CATALOG_PATH":    &c.CatalogPath,
		"STORE_LAYOUT":    &c.StoreLayout,
		"LOG_LEVEL":       &c.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Dim <= 0:
		return fmt.Errorf("%w: dim must be positive, got %d", ErrInvalid, c.Dim)
	case c.TopK <= 0:
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalid, c.TopK)
	case !(c.Temperature > 0) || math.IsInf(c.Temperature, 0):
		return fmt.Errorf("%w: temperature must be positive and finite, got %v", ErrInvalid, c.Temperature)
	case c.Parallelism < 0:
		return fmt.Errorf("%w: parallelism must not be negative", ErrInvalid)
	case c.MaxConcurrentPredicts < 0:
		return fmt.Errorf("%w: max_concurrent_predicts must not be negative", ErrInvalid)
	}
	switch strings.ToLower(c.StoreLayout) {
	case "", "raw", "header":
	default:
		return fmt.Errorf("%w: unknown store_layout %q", ErrInvalid, c.StoreLayout)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}
