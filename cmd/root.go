// Package cmd implements the departures CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/derickschaefer/departures/internal/app"
	"github.com/derickschaefer/departures/internal/config"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	APIKey      string
	Format      string
	Out         string
	DBPath      string
	NoCache     bool
	Timeout     string
	Rate        float64
	DetailTimes string
	Quiet       bool
	Verbose     bool
	Debug       bool
}

// rootCmd is the base command. Running `departures` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "departures",
	Short: "departures — today's departures from any airport",
	Long: `departures looks up today's scheduled departures from an airport,
optionally narrowed to one destination, and shows the details of a flight.

Flight data is provided by the AeroDataBox API on RapidAPI;
https://rapidapi.com/aedbx-aedbx/api/aerodatabox

Airport codes you search are remembered locally and offered as
suggestions the next time you type them.

Quick start:
  departures config init          # create a config.json with your API key
  departures search JFK           # today's departures from JFK
  departures search JFK LAX       # only the ones going to LAX
  departures screen               # interactive search screen`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(globalFlags.Debug)
	},
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogging installs the process-wide slog handler. Only warnings and
// errors are shown unless --debug is set.
func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig resolves config and applies CLI flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.APIKey)
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.NoCache = globalFlags.NoCache
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.DBPath != "" {
		cfg.DBPath = globalFlags.DBPath
	}
	if globalFlags.Timeout != "" {
		if d, err2 := time.ParseDuration(globalFlags.Timeout); err2 == nil {
			cfg.Timeout = d
		}
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	if globalFlags.DetailTimes != "" {
		cfg.DetailTimes = globalFlags.DetailTimes
	}
	return cfg, nil
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg), nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.APIKey, "api-key", "",
		"AeroDataBox API key (overrides env AERODATABOX_API_KEY and config.json)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.DBPath, "db", "",
		"history database path (overrides env DEPARTURES_DB_PATH and config.json)")
	pf.BoolVar(&globalFlags.NoCache, "no-cache", false,
		"do not use the Redis departures cache")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max API requests per second (default: 1.0)")
	pf.StringVar(&globalFlags.DetailTimes, "detail-times", "",
		"flight detail times: scheduled|placeholder (default: scheduled)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show cache/timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and responses (API key redacted)")
}
