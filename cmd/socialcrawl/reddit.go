package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"socialcrawl/pkg/auth"
	"socialcrawl/pkg/reddit"
	"socialcrawl/pkg/ui"
)

var (
	redditPostLimit int
	redditOnly      []string
	redditFlags     crawlFlags
)

// redditCmd collects subreddit comments
var redditCmd = &cobra.Command{
	Use:   "reddit",
	Short: "Collect comments and media links from subreddits",
	Long: `Walk the newest posts of each configured subreddit and write one row per
comment of every post created inside that subreddit's date range, together
with the post's media links.

Credentials are read from the configuration, the environment
(REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET, REDDIT_USER_AGENT) or the
credential store ("socialcrawl auth login reddit").`,
	Example: `  # Crawl every configured subreddit
  socialcrawl reddit

  # Crawl a single configured subreddit, looking at 200 posts at most
  socialcrawl reddit --subreddit Aphantasia --post-limit 200`,
	Args: cobra.NoArgs,
	Run:  runReddit,
}

func init() {
	rootCmd.AddCommand(redditCmd)

	redditCmd.Flags().IntVar(&redditPostLimit, "post-limit", -1, "maximum posts listed per subreddit (0 means no limit)")
	redditCmd.Flags().StringSliceVar(&redditOnly, "subreddit", nil, "only crawl these configured subreddits")
	redditCmd.Flags().BoolVar(&redditFlags.useTUI, "tui", false, "show the full-screen dashboard")
	redditCmd.Flags().BoolVar(&redditFlags.notify, "notify", false, "send a desktop notification when done")
}

func runReddit(cmd *cobra.Command, args []string) {
	env, err := newCrawlEnv(map[string]interface{}{
		"post-limit": redditPostLimit,
	}, redditFlags)
	if err != nil {
		ui.PrintError("Configuration error", err.Error())
		os.Exit(1)
	}
	cfg := env.cfg

	if cfg.Reddit.ClientID == "" || cfg.Reddit.ClientSecret == "" {
		if creds := storedCredentials(auth.PlatformReddit); creds != nil {
			cfg.Reddit.ClientID = creds.ClientID
			cfg.Reddit.ClientSecret = creds.ClientSecret
			if cfg.Reddit.UserAgent == "" {
				cfg.Reddit.UserAgent = creds.UserAgent
			}
		}
	}
	if err := cfg.ValidateRedditCredentials(); err != nil {
		ui.PrintError("Missing Reddit credentials", err.Error())
		fmt.Println("\nRun 'socialcrawl auth login reddit' or set REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET and REDDIT_USER_AGENT.")
		os.Exit(1)
	}

	subs, err := subredditsToCrawl(env, redditOnly)
	if err != nil {
		ui.PrintError("Invalid subreddit selection", err.Error())
		os.Exit(1)
	}

	if !redditFlags.useTUI {
		ui.PrintBanner()
		for _, s := range subs {
			ui.PrintInfo("r/"+s.Name, fmt.Sprintf("%s .. %s", s.Start.Format("2006-01-02"), s.End.Format("2006-01-02")))
		}
		ui.PrintInfo("Output", env.outputs.Path(cfg.Reddit.OutputFile))
		ui.PrintInfo("Run", env.runID)
	}

	ctx, stop := signalContext()
	defer stop()

	summary, err := runCrawl(ctx, "reddit", "Reddit crawl", redditFlags, func(ctx context.Context, progress ui.Progress) (string, error) {
		return crawlReddit(ctx, env, subs, progress)
	})
	env.writeMetrics()
	if err != nil {
		ui.PrintError("Reddit crawl failed", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(summary)
	for _, f := range env.outputs.Files() {
		ui.PrintInfo("Wrote", f)
	}
}

// subredditsToCrawl resolves the configured ranges, optionally narrowed to
// the names in only (case-insensitive)
func subredditsToCrawl(env *crawlEnv, only []string) ([]reddit.Subreddit, error) {
	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[strings.ToLower(strings.TrimPrefix(name, "r/"))] = true
	}

	var subs []reddit.Subreddit
	for _, r := range env.cfg.Reddit.Subreddits {
		if len(wanted) > 0 && !wanted[strings.ToLower(r.Name)] {
			continue
		}
		start, end, err := r.Range()
		if err != nil {
			return nil, err
		}
		subs = append(subs, reddit.Subreddit{Name: r.Name, Start: start, End: end})
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("no configured subreddit matches %s", strings.Join(only, ", "))
	}
	return subs, nil
}

// crawlReddit wires the Reddit client and crawls subs in order
func crawlReddit(ctx context.Context, env *crawlEnv, subs []reddit.Subreddit, progress ui.Progress) (string, error) {
	cfg := env.cfg

	tokenExec := env.executor(auth.PlatformReddit, cfg.Retry.TokenTimeout)
	exchanger := reddit.NewTokenExchanger(tokenExec, cfg.Reddit.AuthURL, cfg.Reddit.ClientID, cfg.Reddit.ClientSecret, cfg.Reddit.UserAgent)
	tokens := auth.NewTokenManager(auth.PlatformReddit, exchanger, env.log)

	if _, err := tokens.Refresh(ctx); err != nil {
		return "", err
	}

	client := reddit.NewClient(
		env.executor(auth.PlatformReddit, cfg.Retry.RequestTimeout),
		env.retrier(auth.PlatformReddit, tokens),
		tokens,
		reddit.Options{
			BaseURL:   cfg.Reddit.BaseURL,
			UserAgent: cfg.Reddit.UserAgent,
			PageDelay: cfg.Throttle.PageDelay,
		},
		env.log,
	)
	client.SetSkipCounter(env.metrics)

	out, err := env.outputs.Open(cfg.Reddit.OutputFile, reddit.Columns)
	if err != nil {
		return "", fmt.Errorf("open reddit dataset: %w", err)
	}
	defer out.Close()

	crawler := reddit.NewCrawler(client, subs, reddit.CrawlerOptions{
		PostLimit: cfg.Reddit.PostLimit,
		PostDelay: cfg.Throttle.PostDelay,
	}, out, env.metrics, env.log)
	crawler.SetProgress(progress)

	stats, err := crawler.Run(ctx)
	summary := fmt.Sprintf("%d subreddits, %d posts in range of %d listed, %d comments, %d posts skipped",
		stats.Subreddits, stats.PostsInRange, stats.PostsSeen, stats.Comments, stats.SkippedPosts)
	return summary, err
}
