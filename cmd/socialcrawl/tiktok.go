package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"socialcrawl/pkg/auth"
	"socialcrawl/pkg/tiktok"
	"socialcrawl/pkg/ui"
)

var (
	tiktokStart      string
	tiktokEnd        string
	tiktokWindowDays int
	tiktokHashtags   []string
	tiktokFlags      crawlFlags
)

// tiktokCmd sweeps the TikTok Research API
var tiktokCmd = &cobra.Command{
	Use:   "tiktok",
	Short: "Collect videos and comments from the TikTok Research API",
	Long: `Sweep the TikTok Research API over fixed date windows and write every
video matching the configured hashtags, plus up to the configured number of
comments per video.

Credentials are read from the configuration, the environment
(TIKTOK_CLIENT_KEY, TIKTOK_CLIENT_SECRET) or the credential store
("socialcrawl auth login tiktok").`,
	Example: `  # Crawl from the configured start date until today
  socialcrawl tiktok

  # Crawl one month in weekly windows
  socialcrawl tiktok --start 2025-02-01 --end 2025-02-28 --window-days 7

  # Use the dashboard and get a desktop notification at the end
  socialcrawl tiktok --tui --notify`,
	Args: cobra.NoArgs,
	Run:  runTikTok,
}

func init() {
	rootCmd.AddCommand(tiktokCmd)

	tiktokCmd.Flags().StringVar(&tiktokStart, "start", "", "first day to crawl (YYYY-MM-DD)")
	tiktokCmd.Flags().StringVar(&tiktokEnd, "end", "", "last day to crawl (YYYY-MM-DD, default today)")
	tiktokCmd.Flags().IntVar(&tiktokWindowDays, "window-days", 0, "days per query window")
	tiktokCmd.Flags().StringSliceVar(&tiktokHashtags, "hashtags", nil, "hashtags to match (comma-separated)")
	tiktokCmd.Flags().BoolVar(&tiktokFlags.useTUI, "tui", false, "show the full-screen dashboard")
	tiktokCmd.Flags().BoolVar(&tiktokFlags.notify, "notify", false, "send a desktop notification when done")
}

func runTikTok(cmd *cobra.Command, args []string) {
	env, err := newCrawlEnv(map[string]interface{}{
		"start":       tiktokStart,
		"end":         tiktokEnd,
		"window-days": tiktokWindowDays,
		"hashtags":    tiktokHashtags,
	}, tiktokFlags)
	if err != nil {
		ui.PrintError("Configuration error", err.Error())
		os.Exit(1)
	}
	cfg := env.cfg

	if cfg.TikTok.ClientKey == "" || cfg.TikTok.ClientSecret == "" {
		if creds := storedCredentials(auth.PlatformTikTok); creds != nil {
			cfg.TikTok.ClientKey = creds.ClientID
			cfg.TikTok.ClientSecret = creds.ClientSecret
		}
	}
	if err := cfg.ValidateTikTokCredentials(); err != nil {
		ui.PrintError("Missing TikTok credentials", err.Error())
		fmt.Println("\nRun 'socialcrawl auth login tiktok' or set TIKTOK_CLIENT_KEY and TIKTOK_CLIENT_SECRET.")
		os.Exit(1)
	}

	start, end, err := cfg.TikTok.Range(time.Now())
	if err != nil {
		ui.PrintError("Invalid date range", err.Error())
		os.Exit(1)
	}

	if !tiktokFlags.useTUI {
		ui.PrintBanner()
		ui.PrintInfo("Hashtags", strings.Join(cfg.TikTok.Hashtags, ", "))
		ui.PrintInfo("Range", fmt.Sprintf("%s .. %s (%d-day windows)", start.Format(time.DateOnly), end.Format(time.DateOnly), cfg.TikTok.WindowDays))
		ui.PrintInfo("Output", cfg.Output.Directory)
		ui.PrintInfo("Run", env.runID)
	}

	ctx, stop := signalContext()
	defer stop()

	summary, err := runCrawl(ctx, "tiktok", "TikTok crawl", tiktokFlags, func(ctx context.Context, progress ui.Progress) (string, error) {
		return crawlTikTok(ctx, env, start, end, progress)
	})
	env.writeMetrics()
	if err != nil {
		ui.PrintError("TikTok crawl failed", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(summary)
	for _, f := range env.outputs.Files() {
		ui.PrintInfo("Wrote", f)
	}
}

// crawlTikTok wires the Research API client and runs the sweep over
// [start, end]
func crawlTikTok(ctx context.Context, env *crawlEnv, start, end time.Time, progress ui.Progress) (string, error) {
	cfg := env.cfg

	tokenExec := env.executor(auth.PlatformTikTok, cfg.Retry.TokenTimeout)
	exchanger := tiktok.NewTokenExchanger(tokenExec, cfg.TikTok.BaseURL, cfg.TikTok.ClientKey, cfg.TikTok.ClientSecret)
	tokens := auth.NewTokenManager(auth.PlatformTikTok, exchanger, env.log)

	// The first token is exchanged up front so bad credentials fail fast
	if _, err := tokens.Refresh(ctx); err != nil {
		return "", err
	}

	client := tiktok.NewClient(
		env.executor(auth.PlatformTikTok, cfg.Retry.RequestTimeout),
		env.retrier(auth.PlatformTikTok, tokens),
		tokens,
		tiktok.Options{
			BaseURL:         cfg.TikTok.BaseURL,
			PageSize:        cfg.TikTok.PageSize,
			CommentPageSize: cfg.TikTok.CommentPageSize,
			MaxComments:     cfg.TikTok.MaxCommentsPerVideo,
			PageDelay:       cfg.Throttle.PageDelay,
		},
		env.log,
	)
	client.SetSkipCounter(env.metrics)

	videos, err := env.outputs.Open(cfg.TikTok.VideosFile, tiktok.VideoColumns)
	if err != nil {
		return "", fmt.Errorf("open videos dataset: %w", err)
	}
	defer videos.Close()

	comments, err := env.outputs.Open(cfg.TikTok.CommentsFile, tiktok.CommentColumns)
	if err != nil {
		return "", fmt.Errorf("open comments dataset: %w", err)
	}
	defer comments.Close()

	crawler := tiktok.NewCrawler(client, tiktok.HashtagQuery(cfg.TikTok.Hashtags), cfg.TikTok.WindowDays, videos, comments, env.metrics, env.log)
	crawler.SetProgress(progress)

	stats, err := crawler.Run(ctx, start, end)
	summary := fmt.Sprintf("%d windows, %d videos, %d comments, %d videos without comments",
		stats.Windows, stats.Videos, stats.Comments, stats.SkippedComments)
	return summary, err
}
