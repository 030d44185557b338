package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/derickschaefer/departures/internal/config"
	"github.com/derickschaefer/departures/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage departures configuration",
	Long:  `Read and write departures configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		tmpl := config.Template()
		if err := config.WriteFile(path, tmpl); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created %s\n", path)
		fmt.Fprintln(out, "  Edit it and set your api_key to get started.")
		fmt.Fprintln(out, "  Get a key at: https://rapidapi.com/aedbx-aedbx/api/aerodatabox")
		return nil
	},
}

var configGetShowSecrets bool

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		apiKey := cfg.RedactedAPIKey()
		if configGetShowSecrets {
			apiKey = cfg.APIKey
		}
		if cfg.APIKey == "" {
			apiKey = "(not set)"
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		redis := cfg.RedisAddr
		if redis == "" {
			redis = "(disabled)"
		}

		switch resolveFormat(cfg.Format) {
		case render.FormatJSON:
			type configOut struct {
				APIKey      string  `json:"api_key"`
				APIHost     string  `json:"api_host"`
				Format      string  `json:"default_format"`
				Timeout     string  `json:"timeout"`
				Rate        float64 `json:"rate"`
				BaseURL     string  `json:"base_url"`
				DBPath      string  `json:"db_path"`
				RedisAddr   string  `json:"redis_addr"`
				CacheTTL    string  `json:"cache_ttl"`
				DetailTimes string  `json:"detail_times"`
				ListenAddr  string  `json:"listen_addr"`
				ConfigFile  string  `json:"config_file"`
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(configOut{
				APIKey:      apiKey,
				APIHost:     cfg.APIHost,
				Format:      cfg.Format,
				Timeout:     cfg.Timeout.String(),
				Rate:        cfg.Rate,
				BaseURL:     cfg.BaseURL,
				DBPath:      cfg.DBPath,
				RedisAddr:   cfg.RedisAddr,
				CacheTTL:    cfg.CacheTTL.String(),
				DetailTimes: cfg.DetailTimes,
				ListenAddr:  cfg.ListenAddr,
				ConfigFile:  src,
			})
		default:
			rows := [][]string{
				{"api_key", apiKey},
				{"api_host", cfg.APIHost},
				{"default_format", cfg.Format},
				{"timeout", cfg.Timeout.String()},
				{"rate", fmt.Sprintf("%.1f req/s", cfg.Rate)},
				{"base_url", cfg.BaseURL},
				{"db_path", cfg.DBPath},
				{"redis_addr", redis},
				{"cache_ttl", cfg.CacheTTL.String()},
				{"detail_times", cfg.DetailTimes},
				{"listen_addr", cfg.ListenAddr},
				{"config_file", src},
			}
			printKVTable(cmd.OutOrStdout(), rows)
			return nil
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])

		// Load existing file or start from template
		var f config.File
		existing, path, err := loadConfigFile()
		if err != nil {
			path = config.DefaultConfigFile
			f = config.Template()
		} else {
			f = *existing
		}

		if err := setConfigKey(&f, key, args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configGetCmd.Flags().BoolVar(&configGetShowSecrets, "show-secrets", false, "show API key in plain text")
}

const validConfigKeys = "api_key, api_host, default_format, timeout, rate, base_url, db_path, redis_addr, cache_ttl, detail_times, listen_addr"

// setConfigKey validates val and stores it under key in f.
func setConfigKey(f *config.File, key, val string) error {
	switch key {
	case "api_key":
		f.APIKey = val
	case "api_host":
		f.APIHost = val
	case "default_format", "format":
		switch val {
		case render.FormatTable, render.FormatJSON, render.FormatJSONL,
			render.FormatCSV, render.FormatTSV, render.FormatMD:
		default:
			return fmt.Errorf("unknown format %q: choose table|json|jsonl|csv|tsv|md", val)
		}
		f.DefaultFormat = val
	case "timeout", "cache_ttl":
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("%s must be a duration such as 30s or 5m", key)
		}
		if key == "timeout" {
			f.Timeout = val
		} else {
			f.CacheTTL = val
		}
	case "rate":
		var r float64
		if _, err := fmt.Sscanf(val, "%f", &r); err != nil || r <= 0 {
			return fmt.Errorf("rate must be a positive number")
		}
		f.Rate = r
	case "base_url":
		f.BaseURL = val
	case "db_path":
		f.DBPath = val
	case "redis_addr":
		f.RedisAddr = val
	case "detail_times":
		if err := config.ValidateDetailTimes(val); err != nil {
			return err
		}
		f.DetailTimes = val
	case "listen_addr":
		f.ListenAddr = val
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", key, validConfigKeys)
	}
	return nil
}

// loadConfigFile reads config.json from cwd; used by configSetCmd.
func loadConfigFile() (*config.File, string, error) {
	path := config.DefaultConfigFile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var f config.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", err
	}
	return &f, path, nil
}

// printKVTable renders a two-column key/value table using aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}
