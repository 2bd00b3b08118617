package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DateLayout is the calendar-date format used in config files and flags
const DateLayout = "2006-01-02"

// Config holds all configuration options for the crawlers
type Config struct {
	TikTok   TikTokConfig   `yaml:"tiktok" json:"tiktok"`
	Reddit   RedditConfig   `yaml:"reddit" json:"reddit"`
	Retry    RetryConfig    `yaml:"retry" json:"retry"`
	Throttle ThrottleConfig `yaml:"throttle" json:"throttle"`
	Output   OutputConfig   `yaml:"output" json:"output"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// TikTokConfig holds Research API settings
type TikTokConfig struct {
	ClientKey           string   `yaml:"client_key" json:"client_key"`
	ClientSecret        string   `yaml:"client_secret" json:"client_secret"`
	BaseURL             string   `yaml:"base_url" json:"base_url"`
	Hashtags            []string `yaml:"hashtags" json:"hashtags"`
	StartDate           string   `yaml:"start_date" json:"start_date"`
	EndDate             string   `yaml:"end_date" json:"end_date"` // empty means today (UTC)
	WindowDays          int      `yaml:"window_days" json:"window_days"`
	PageSize            int      `yaml:"page_size" json:"page_size"`
	CommentPageSize     int      `yaml:"comment_page_size" json:"comment_page_size"`
	MaxCommentsPerVideo int      `yaml:"max_comments_per_video" json:"max_comments_per_video"`
	VideosFile          string   `yaml:"videos_file" json:"videos_file"`
	CommentsFile        string   `yaml:"comments_file" json:"comments_file"`
}

// SubredditRange selects posts of one subreddit created inside [Start, End]
type SubredditRange struct {
	Name  string `yaml:"name" json:"name"`
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// RedditConfig holds Reddit API settings
type RedditConfig struct {
	ClientID     string           `yaml:"client_id" json:"client_id"`
	ClientSecret string           `yaml:"client_secret" json:"client_secret"`
	UserAgent    string           `yaml:"user_agent" json:"user_agent"`
	BaseURL      string           `yaml:"base_url" json:"base_url"`
	AuthURL      string           `yaml:"auth_url" json:"auth_url"`
	Subreddits   []SubredditRange `yaml:"subreddits" json:"subreddits"`
	PostLimit    int              `yaml:"post_limit" json:"post_limit"` // 0 means no limit
	OutputFile   string           `yaml:"output_file" json:"output_file"`
}

// RetryConfig holds the bounded retry policy settings
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	BackoffBase    time.Duration `yaml:"backoff_base" json:"backoff_base"`
	BackoffCap     time.Duration `yaml:"backoff_cap" json:"backoff_cap"`
	RefreshGrace   time.Duration `yaml:"refresh_grace" json:"refresh_grace"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	TokenTimeout   time.Duration `yaml:"token_timeout" json:"token_timeout"`
}

// ThrottleConfig holds the cooperative pacing settings
type ThrottleConfig struct {
	PageDelay         time.Duration `yaml:"page_delay" json:"page_delay"`
	PostDelay         time.Duration `yaml:"post_delay" json:"post_delay"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"` // 0 disables the limiter
}

// OutputConfig holds output file configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	Format    string `yaml:"format" json:"format"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	// NoConsole drops the stderr writer, e.g. while a full-screen UI runs
	NoConsole bool `yaml:"-" json:"-"`
}

// DefaultConfig returns a Config instance with the defaults of the research crawl
func DefaultConfig() *Config {
	return &Config{
		TikTok: TikTokConfig{
			BaseURL:             "https://open.tiktokapis.com",
			Hashtags:            []string{"aphantasia", "hyperphantasia"},
			StartDate:           "2025-02-13",
			WindowDays:          30,
			PageSize:            100,
			CommentPageSize:     100,
			MaxCommentsPerVideo: 1000,
			VideosFile:          "tiktok_videos",
			CommentsFile:        "tiktok_comments",
		},
		Reddit: RedditConfig{
			BaseURL: "https://oauth.reddit.com",
			AuthURL: "https://www.reddit.com/api/v1/access_token",
			Subreddits: []SubredditRange{
				{Name: "Aphantasia", Start: "2025-03-10", End: "2025-07-01"},
				{Name: "Hyperphantasia", Start: "2021-06-18", End: "2025-07-01"},
				{Name: "Anauralia", Start: "2021-06-18", End: "2025-07-01"},
				{Name: "silentminds", Start: "2021-06-18", End: "2025-07-01"},
			},
			OutputFile: "reddit_comments_with_media",
		},
		Retry: RetryConfig{
			MaxAttempts:    6,
			BackoffBase:    time.Second,
			BackoffCap:     60 * time.Second,
			RefreshGrace:   time.Second,
			RequestTimeout: 60 * time.Second,
			TokenTimeout:   30 * time.Second,
		},
		Throttle: ThrottleConfig{
			PageDelay: 150 * time.Millisecond,
			PostDelay: 300 * time.Millisecond,
		},
		Output: OutputConfig{
			Directory: ".",
			Format:    "csv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// TIKTOK_CLIENT_KEY/SECRET are the names the research scripts used
	setString(&c.TikTok.ClientKey, "TIKTOK_CLIENT_KEY", "SOCIALCRAWL_TIKTOK_CLIENT_KEY")
	setString(&c.TikTok.ClientSecret, "TIKTOK_CLIENT_SECRET", "SOCIALCRAWL_TIKTOK_CLIENT_SECRET")
	setString(&c.TikTok.StartDate, "SOCIALCRAWL_TIKTOK_START_DATE")
	setString(&c.TikTok.EndDate, "SOCIALCRAWL_TIKTOK_END_DATE")
	if tags := os.Getenv("SOCIALCRAWL_TIKTOK_HASHTAGS"); tags != "" {
		c.TikTok.Hashtags = SplitList(tags)
	}

	setString(&c.Reddit.ClientID, "REDDIT_CLIENT_ID", "SOCIALCRAWL_REDDIT_CLIENT_ID")
	setString(&c.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET", "SOCIALCRAWL_REDDIT_CLIENT_SECRET")
	setString(&c.Reddit.UserAgent, "REDDIT_USER_AGENT", "SOCIALCRAWL_REDDIT_USER_AGENT")

	setString(&c.Output.Directory, "SOCIALCRAWL_OUTPUT_DIR")
	setString(&c.Output.Format, "SOCIALCRAWL_OUTPUT_FORMAT")
	setString(&c.Metrics.Textfile, "SOCIALCRAWL_METRICS_TEXTFILE")
	setString(&c.Logging.Level, "SOCIALCRAWL_LOG_LEVEL")
	setString(&c.Logging.File, "SOCIALCRAWL_LOG_FILE")

	if err := setInt(&c.Retry.MaxAttempts, "SOCIALCRAWL_MAX_ATTEMPTS"); err != nil {
		return err
	}
	if err := setInt(&c.Throttle.RequestsPerMinute, "SOCIALCRAWL_REQUESTS_PER_MINUTE"); err != nil {
		return err
	}
	return setInt(&c.TikTok.WindowDays, "SOCIALCRAWL_TIKTOK_WINDOW_DAYS")
}

// setString copies the non-empty variables among keys into dst; later keys win
func setString(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".socialcrawl.yaml",
		".socialcrawl.yml",
		filepath.Join(home, ".config", "socialcrawl", "config.yaml"),
		filepath.Join(home, ".config", "socialcrawl", "config.yml"),
		filepath.Join(home, ".socialcrawl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the non-credential configuration is valid.
// Credentials are checked per platform once the credential stores have
// been consulted, see ValidateTikTokCredentials and ValidateRedditCredentials.
func (c *Config) Validate() error {
	var errs []error

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}
	if c.Retry.BackoffBase <= 0 {
		errs = append(errs, errors.New("retry backoff base must be positive"))
	}
	if c.Retry.BackoffCap < c.Retry.BackoffBase {
		errs = append(errs, errors.New("retry backoff cap must not be below the base"))
	}
	if c.Retry.RefreshGrace < 0 {
		errs = append(errs, errors.New("refresh grace cannot be negative"))
	}
	if c.Retry.RequestTimeout <= 0 || c.Retry.TokenTimeout <= 0 {
		errs = append(errs, errors.New("request and token timeouts must be positive"))
	}

	if c.Throttle.PageDelay < 0 || c.Throttle.PostDelay < 0 {
		errs = append(errs, errors.New("throttle delays cannot be negative"))
	}
	if c.Throttle.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.TikTok.WindowDays <= 0 {
		errs = append(errs, errors.New("tiktok window days must be positive"))
	}
	if c.TikTok.PageSize <= 0 || c.TikTok.PageSize > 100 {
		errs = append(errs, errors.New("tiktok page size must be between 1 and 100"))
	}
	if c.TikTok.CommentPageSize <= 0 || c.TikTok.CommentPageSize > 100 {
		errs = append(errs, errors.New("tiktok comment page size must be between 1 and 100"))
	}
	if c.TikTok.MaxCommentsPerVideo < 0 {
		errs = append(errs, errors.New("tiktok max comments per video cannot be negative"))
	}
	if len(c.TikTok.Hashtags) == 0 {
		errs = append(errs, errors.New("at least one tiktok hashtag is required"))
	}
	if _, _, err := c.TikTok.Range(time.Now()); err != nil {
		errs = append(errs, err)
	}

	if c.Reddit.PostLimit < 0 {
		errs = append(errs, errors.New("reddit post limit cannot be negative"))
	}
	for _, sub := range c.Reddit.Subreddits {
		if _, _, err := sub.Range(); err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(c.Output.Format) {
	case "csv", "jsonl":
	default:
		errs = append(errs, fmt.Errorf("invalid output format %q (csv or jsonl)", c.Output.Format))
	}
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// ValidateTikTokCredentials checks the client key and secret are set
func (c *Config) ValidateTikTokCredentials() error {
	var errs []error
	if c.TikTok.ClientKey == "" {
		errs = append(errs, errors.New("tiktok client key is required"))
	}
	if c.TikTok.ClientSecret == "" {
		errs = append(errs, errors.New("tiktok client secret is required"))
	}
	return errors.Join(errs...)
}

// ValidateRedditCredentials checks the client id, secret and user agent are set
func (c *Config) ValidateRedditCredentials() error {
	var errs []error
	if c.Reddit.ClientID == "" {
		errs = append(errs, errors.New("reddit client id is required"))
	}
	if c.Reddit.ClientSecret == "" {
		errs = append(errs, errors.New("reddit client secret is required"))
	}
	if c.Reddit.UserAgent == "" {
		errs = append(errs, errors.New("reddit user agent is required"))
	}
	return errors.Join(errs...)
}

// Range resolves the crawl horizon. An empty end date means the UTC
// calendar day of now.
func (t TikTokConfig) Range(now time.Time) (time.Time, time.Time, error) {
	start, err := ParseDate(t.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid tiktok start date: %w", err)
	}

	end := now.UTC().Truncate(24 * time.Hour)
	if t.EndDate != "" {
		end, err = ParseDate(t.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid tiktok end date: %w", err)
		}
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("tiktok end date %s is before start date %s",
			end.Format(DateLayout), start.Format(DateLayout))
	}
	return start, end, nil
}

// Range returns the inclusive creation-time bounds for the subreddit.
// The end bound covers the whole end day.
func (s SubredditRange) Range() (time.Time, time.Time, error) {
	if s.Name == "" {
		return time.Time{}, time.Time{}, errors.New("subreddit name is required")
	}
	start, err := ParseDate(s.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date for r/%s: %w", s.Name, err)
	}
	end, err := ParseDate(s.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date for r/%s: %w", s.Name, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date before start date for r/%s", s.Name)
	}
	return start, end.Add(24*time.Hour - time.Nanosecond), nil
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// SplitList splits a comma separated list and drops empty entries
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["format"].(string); ok && v != "" {
		c.Output.Format = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
	if v, ok := flags["metrics-textfile"].(string); ok && v != "" {
		c.Metrics.Textfile = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v >= 0 {
		c.Throttle.RequestsPerMinute = v
	}
	if v, ok := flags["start"].(string); ok && v != "" {
		c.TikTok.StartDate = v
	}
	if v, ok := flags["end"].(string); ok && v != "" {
		c.TikTok.EndDate = v
	}
	if v, ok := flags["window-days"].(int); ok && v > 0 {
		c.TikTok.WindowDays = v
	}
	if v, ok := flags["hashtags"].([]string); ok && len(v) > 0 {
		c.TikTok.Hashtags = v
	}
	if v, ok := flags["post-limit"].(int); ok && v >= 0 {
		c.Reddit.PostLimit = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".socialcrawl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
