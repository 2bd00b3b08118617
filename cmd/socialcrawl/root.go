package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"socialcrawl/pkg/config"
	"socialcrawl/pkg/logger"
	"socialcrawl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile      string
	logLevel        string
	logFile         string
	outputDir       string
	outputFormat    string
	metricsTextfile string
	maxAttempts     int
	rateLimit       int
	quiet           bool
	verbose         bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "socialcrawl",
	Short: "Collect research datasets from the TikTok Research API and Reddit",
	Long: `socialcrawl collects posts and comments from social platforms into CSV or
JSON Lines datasets.

Features:
  - TikTok Research API video and comment sweeps over fixed date windows
  - Reddit subreddit comment collection with media links
  - Secure credential storage using the system keychain
  - Bounded retries with exponential backoff and token refresh
  - Optional request pacing and Prometheus textfile metrics`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuietMode(true)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.socialcrawl.yaml or ~/.config/socialcrawl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory for datasets")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "", "dataset format (csv, jsonl)")
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file when the run ends")
	rootCmd.PersistentFlags().IntVar(&maxAttempts, "max-attempts", 0, "maximum attempts per request")
	rootCmd.PersistentFlags().IntVar(&rateLimit, "rate-limit", -1, "requests per minute per platform (0 disables pacing)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show logs alongside the progress line")

	rootCmd.SetVersionTemplate(`socialcrawl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags collects the persistent flags that override configuration
func globalFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if outputFormat != "" {
		flags["format"] = outputFormat
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}
	if metricsTextfile != "" {
		flags["metrics-textfile"] = metricsTextfile
	}
	if maxAttempts > 0 {
		flags["max-attempts"] = maxAttempts
	}
	if rateLimit >= 0 {
		flags["requests-per-minute"] = rateLimit
	}
	return flags
}

// loadConfig merges extra command flags over the global ones and loads
// the configuration
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := globalFlags()
	for k, v := range extra {
		flags[k] = v
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogging sets up the global logger for one run. Unless verbose, the
// console only shows errors so the progress line stays readable.
func initLogging(cfg *config.Config, fullScreen bool) (string, error) {
	runID := uuid.NewString()
	if !verbose && logLevel == "" {
		cfg.Logging.Level = "error"
		if cfg.Logging.File != "" {
			cfg.Logging.Level = "info"
			cfg.Logging.NoConsole = true
		}
	}
	if fullScreen {
		cfg.Logging.NoConsole = true
	}
	if err := logger.Initialize(&cfg.Logging, runID); err != nil {
		return "", fmt.Errorf("initialize logging: %w", err)
	}
	return runID, nil
}
