package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"socialcrawl/pkg/auth"
	"socialcrawl/pkg/config"
	"socialcrawl/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage socialcrawl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (SOCIALCRAWL_*, plus TIKTOK_* and REDDIT_* credentials)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the defaults",
	Long: `Create a configuration file holding every option at its default value.

The file is created as '.socialcrawl.yaml' in the current directory unless a
different path is given with the --config flag. Credentials are left empty;
store them with 'socialcrawl auth login' instead.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

Client secrets are masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the effective configuration.

This command checks:
  - YAML syntax
  - Date ranges and window sizes
  - Retry and throttle values
  - Output and log paths
  - Which platforms have credentials available`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".socialcrawl.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the hashtags, date ranges and subreddits")
	fmt.Println("2. Store credentials with 'socialcrawl auth login tiktok' and 'socialcrawl auth login reddit'")
	fmt.Println("3. Run 'socialcrawl config validate' to check the configuration")
	fmt.Println("4. Start crawling with 'socialcrawl tiktok' or 'socialcrawl reddit'")
}

// maskSecrets returns a copy of cfg with client secrets masked
func maskSecrets(cfg *config.Config) config.Config {
	display := *cfg
	if display.TikTok.ClientSecret != "" {
		display.TikTok.ClientSecret = auth.Sanitize(&auth.ClientCredentials{ClientSecret: display.TikTok.ClientSecret}).ClientSecret
	}
	if display.Reddit.ClientSecret != "" {
		display.Reddit.ClientSecret = auth.Sanitize(&auth.ClientCredentials{ClientSecret: display.Reddit.ClientSecret}).ClientSecret
	}
	return display
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	display := maskSecrets(cfg)
	data, err := yaml.Marshal(&display)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (SOCIALCRAWL_*)")
	fmt.Println("3. .env and ~/.socialcrawl.env")
	if configFile != "" {
		fmt.Printf("4. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("4. Configuration file: (searched in default locations)")
	}
	fmt.Println("5. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	var warnings, problems []string

	if err := cfg.ValidateTikTokCredentials(); err != nil && storedCredentials(auth.PlatformTikTok) == nil {
		warnings = append(warnings, "TikTok credentials not configured")
	}
	if err := cfg.ValidateRedditCredentials(); err != nil && storedCredentials(auth.PlatformReddit) == nil {
		warnings = append(warnings, "Reddit credentials not configured")
	}

	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}
	if cfg.Metrics.Textfile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Metrics.Textfile), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create metrics directory: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  TikTok range: %s .. %s in %d-day windows\n", cfg.TikTok.StartDate, orToday(cfg.TikTok.EndDate), cfg.TikTok.WindowDays)
	fmt.Printf("  Subreddits: %d\n", len(cfg.Reddit.Subreddits))
	fmt.Printf("  Output: %s (%s)\n", cfg.Output.Directory, cfg.Output.Format)
	fmt.Printf("  Max attempts: %d, backoff cap %s\n", cfg.Retry.MaxAttempts, cfg.Retry.BackoffCap)
	if cfg.Throttle.RequestsPerMinute > 0 {
		fmt.Printf("  Rate limit: %d requests/minute\n", cfg.Throttle.RequestsPerMinute)
	}
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}

func orToday(date string) string {
	if date == "" {
		return "today"
	}
	return date
}
