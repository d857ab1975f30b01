// internal/config/config.go

// Package config loads and validates the YAML configuration file. Values may
// reference environment variables as ${VAR}; unset variables expand to the
// empty string.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

// Duration decodes YAML strings like "30s" or "24h" via time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Recipes RecipeConfig  `yaml:"recipes"`
	Dedup   DedupConfig   `yaml:"dedup"`
	Browser BrowserConfig `yaml:"browser"`
	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`

	// DefaultCurrency fills records whose recipe has no CURRENCY selector.
	// Must be a valid ISO 4217 code.
	DefaultCurrency string `yaml:"default_currency"`
	LogLevel        string `yaml:"log_level"`
}

type APIConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

type RecipeConfig struct {
	StorePath       string   `yaml:"store_path"`
	RefreshInterval Duration `yaml:"refresh_interval"`
}

type DedupConfig struct {
	TTL      Duration `yaml:"ttl"`
	Capacity int      `yaml:"capacity"`

	// StatePath is the file the submission gate persists its entries to
	// between runs. Defaults to dedup.json beside the recipe store.
	StatePath string `yaml:"state_path"`
}

type BrowserConfig struct {
	// Headful disables headless mode for recipe debugging.
	Headful bool     `yaml:"headful"`
	Timeout Duration `yaml:"timeout"`
}

type OutputConfig struct {
	Format   string         `yaml:"format"`
	File     string         `yaml:"file"`
	Database DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	DSN        string `yaml:"dsn"`
	Table      string `yaml:"table"`
	Collection string `yaml:"collection"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, expands, and validates the configuration at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://api.pricescout.dev"
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = Duration(30 * time.Second)
	}
	if c.Recipes.StorePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Recipes.StorePath = home + "/.pricescout/recipes.db"
	}
	if c.Recipes.RefreshInterval <= 0 {
		c.Recipes.RefreshInterval = Duration(24 * time.Hour)
	}
	if c.Dedup.TTL <= 0 {
		c.Dedup.TTL = Duration(time.Hour)
	}
	if c.Dedup.Capacity <= 0 {
		c.Dedup.Capacity = 100
	}
	if c.Dedup.StatePath == "" {
		c.Dedup.StatePath = filepath.Join(filepath.Dir(c.Recipes.StorePath), "dedup.json")
	}
	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = Duration(45 * time.Second)
	}
	if c.Output.Format == "" {
		c.Output.Format = "json"
	}
	if c.Output.Database.Table == "" {
		c.Output.Database.Table = "extracted_records"
	}
	if c.Output.Database.Collection == "" {
		c.Output.Database.Collection = "extracted_records"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8750
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = "USD"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks cross-field constraints the defaults cannot fix.
func (c *Config) Validate() error {
	if _, err := currency.ParseISO(c.DefaultCurrency); err != nil {
		return fmt.Errorf("default_currency %q is not a valid ISO 4217 code: %w", c.DefaultCurrency, err)
	}
	switch c.Output.Format {
	case "json", "csv", "excel", "sqlite", "postgres", "mysql", "mongodb":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	return nil
}

// ListenAddr returns the server bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
