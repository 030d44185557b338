// Package config handles loading and resolving departures configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flag --api-key
//  2. Environment variables AERODATABOX_API_KEY, DEPARTURES_DB_PATH,
//     DEPARTURES_REDIS_ADDR
//  3. config.json in the current working directory
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultConfigFile  = "config.json"
	DefaultFormat      = "table"
	DefaultTimeout     = 30 * time.Second
	DefaultRate        = 1.0
	DefaultBaseURL     = "https://aerodatabox.p.rapidapi.com/"
	DefaultAPIHost     = "aerodatabox.p.rapidapi.com"
	DefaultCacheTTL    = 5 * time.Minute
	DefaultListenAddr  = ":8080"
	DefaultDetailTimes = DetailTimesScheduled
	EnvAPIKey          = "AERODATABOX_API_KEY"
	EnvDBPath          = "DEPARTURES_DB_PATH"
	EnvRedisAddr       = "DEPARTURES_REDIS_ADDR"
)

// Detail time modes. Scheduled uses the record's own scheduled local time
// and falls back to a placeholder; placeholder always draws a random time.
const (
	DetailTimesScheduled   = "scheduled"
	DetailTimesPlaceholder = "placeholder"
)

// File is the on-disk representation of config.json.
type File struct {
	APIKey        string  `json:"api_key"`
	APIHost       string  `json:"api_host"`
	DefaultFormat string  `json:"default_format"`
	Timeout       string  `json:"timeout"`
	Rate          float64 `json:"rate"`
	BaseURL       string  `json:"base_url"`
	DBPath        string  `json:"db_path"`
	RedisAddr     string  `json:"redis_addr"`
	CacheTTL      string  `json:"cache_ttl"`
	DetailTimes   string  `json:"detail_times"`
	ListenAddr    string  `json:"listen_addr"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	APIKey      string
	APIHost     string
	Format      string
	Timeout     time.Duration
	Rate        float64
	BaseURL     string
	DBPath      string
	RedisAddr   string
	CacheTTL    time.Duration
	DetailTimes string
	ListenAddr  string
	ConfigPath  string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	NoCache bool
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Load resolves configuration from all sources.
// flagAPIKey is the value of --api-key (empty string if not set).
func Load(flagAPIKey string) (*Config, error) {
	cfg := &Config{
		APIHost:     DefaultAPIHost,
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout,
		Rate:        DefaultRate,
		BaseURL:     DefaultBaseURL,
		CacheTTL:    DefaultCacheTTL,
		DetailTimes: DefaultDetailTimes,
		ListenAddr:  DefaultListenAddr,
	}

	// Layer 1: config.json (lowest priority)
	if f, path, err := loadFile(); err == nil {
		applyFile(cfg, f, path)
	}

	// Layer 2: environment variables
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.RedisAddr = v
	}

	// Layer 3: CLI flag (highest priority)
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".departures", "history.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if required fields are missing or malformed.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New(
			"API key not found.\n\n" +
				"Set it one of these ways:\n" +
				"  1. CLI flag:        departures --api-key YOUR_KEY ...\n" +
				"  2. Environment:     export AERODATABOX_API_KEY=YOUR_KEY\n" +
				"  3. config.json:     {\"api_key\": \"YOUR_KEY\"}\n\n" +
				"Get a key at https://rapidapi.com/aedbx-aedbx/api/aerodatabox",
		)
	}
	return ValidateDetailTimes(c.DetailTimes)
}

// ValidateDetailTimes rejects unknown detail time modes.
func ValidateDetailTimes(mode string) error {
	switch mode {
	case DetailTimesScheduled, DetailTimesPlaceholder:
		return nil
	default:
		return fmt.Errorf("invalid detail_times %q: choose %s|%s",
			mode, DetailTimesScheduled, DetailTimesPlaceholder)
	}
}

// RedactedAPIKey returns the API key with most characters replaced by asterisks.
// Safe for logging and display.
func (c *Config) RedactedAPIKey() string {
	if len(c.APIKey) <= 4 {
		return "****"
	}
	return c.APIKey[:2] + "****" + c.APIKey[len(c.APIKey)-2:]
}

// loadFile attempts to read config.json from the current working directory.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("config.json not found at %s", path)
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.APIKey != "" {
		cfg.APIKey = f.APIKey
	}
	if f.APIHost != "" {
		cfg.APIHost = f.APIHost
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.RedisAddr != "" {
		cfg.RedisAddr = f.RedisAddr
	}
	if f.CacheTTL != "" {
		if d, err := time.ParseDuration(f.CacheTTL); err == nil {
			cfg.CacheTTL = d
		}
	}
	if f.DetailTimes != "" {
		cfg.DetailTimes = f.DetailTimes
	}
	if f.ListenAddr != "" {
		cfg.ListenAddr = f.ListenAddr
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `departures config init`.
func Template() File {
	return File{
		APIKey:        "",
		APIHost:       DefaultAPIHost,
		DefaultFormat: DefaultFormat,
		Timeout:       "30s",
		Rate:          DefaultRate,
		BaseURL:       DefaultBaseURL,
		CacheTTL:      "5m",
		DetailTimes:   DefaultDetailTimes,
		ListenAddr:    DefaultListenAddr,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
