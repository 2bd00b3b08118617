package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialcrawl/pkg/auth"
	"socialcrawl/pkg/config"
	"socialcrawl/pkg/httpx"
	"socialcrawl/pkg/logger"
	"socialcrawl/pkg/metrics"
	"socialcrawl/pkg/output"
	"socialcrawl/pkg/ratelimit"
	"socialcrawl/pkg/retry"
	"socialcrawl/pkg/ui"
	"socialcrawl/pkg/ui/tui"
)

// crawlFlags are shared by the crawl commands
type crawlFlags struct {
	useTUI bool
	notify bool
}

// crawlEnv holds everything one crawl run shares across its components
type crawlEnv struct {
	cfg     *config.Config
	runID   string
	log     logger.Logger
	metrics *metrics.Metrics
	outputs *output.Manager
}

// newCrawlEnv loads the configuration and sets up logging, metrics and the
// dataset directory
func newCrawlEnv(extra map[string]interface{}, flags crawlFlags) (*crawlEnv, error) {
	cfg, err := loadConfig(extra)
	if err != nil {
		return nil, err
	}

	runID, err := initLogging(cfg, flags.useTUI)
	if err != nil {
		return nil, err
	}

	outputs, err := output.NewManager(cfg.Output.Directory, cfg.Output.Format)
	if err != nil {
		return nil, fmt.Errorf("prepare output directory: %w", err)
	}

	return &crawlEnv{
		cfg:     cfg,
		runID:   runID,
		log:     logger.GetLogger(),
		metrics: metrics.New(runID),
		outputs: outputs,
	}, nil
}

// executor builds the HTTP executor for a platform with the configured
// pacing and metrics
func (e *crawlEnv) executor(platform string, timeout time.Duration) *httpx.Executor {
	exec := httpx.NewExecutor(platform, timeout, e.log)
	if rpm := e.cfg.Throttle.RequestsPerMinute; rpm > 0 {
		exec.SetLimiter(ratelimit.NewPerMinute(rpm))
	}
	exec.SetRecorder(e.metrics)
	return exec
}

// retrier builds the retry loop for a platform around its token manager
func (e *crawlEnv) retrier(platform string, tokens *auth.TokenManager) *retry.Retrier {
	r := retry.NewRetrier(platform, e.cfg.Retry, tokens, e.log)
	r.Counter = e.metrics
	return r
}

// writeMetrics dumps the run's metrics when a textfile is configured
func (e *crawlEnv) writeMetrics() {
	if e.cfg.Metrics.Textfile == "" {
		return
	}
	if err := e.metrics.WriteTextfile(e.cfg.Metrics.Textfile); err != nil {
		e.log.WithError(err).Warn("Failed to write metrics textfile")
		return
	}
	e.log.InfoWithFields("Metrics written", map[string]interface{}{
		"path": e.cfg.Metrics.Textfile,
	})
}

// storedCredentials looks up credentials saved with "socialcrawl auth login".
// A missing entry is not an error; the caller validates what it ends up with.
func storedCredentials(platform string) *auth.ClientCredentials {
	manager, err := auth.NewManager()
	if err != nil {
		logger.GetLogger().WithError(err).Debug("Credential manager unavailable")
		return nil
	}
	creds, err := manager.Retrieve(platform)
	if err != nil {
		return nil
	}
	return creds
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// crawlFunc performs a crawl, reporting milestones to progress, and returns
// a one-line summary
type crawlFunc func(ctx context.Context, progress ui.Progress) (string, error)

// runCrawl runs crawl under either the full-screen dashboard or the single
// progress line and sends the desktop notification at the end
func runCrawl(ctx context.Context, platform, title string, flags crawlFlags, crawl crawlFunc) (string, error) {
	var (
		summary string
		err     error
	)

	if flags.useTUI {
		summary, err = runWithTUI(ctx, title, crawl)
	} else {
		display := ui.NewProgressDisplay(verbose)
		summary, err = crawl(ctx, display)
		if err == nil {
			display.Complete(platform)
		} else {
			fmt.Fprintln(os.Stderr)
		}
	}

	notifier := ui.NewNotifier(flags.notify)
	if err != nil {
		if nerr := notifier.SendError(title, err.Error()); nerr != nil {
			logger.GetLogger().WithError(nerr).Debug("Notification failed")
		}
		return summary, err
	}
	if nerr := notifier.SendSuccess(title, summary); nerr != nil {
		logger.GetLogger().WithError(nerr).Debug("Notification failed")
	}
	return summary, nil
}

// runWithTUI runs crawl in the background while the dashboard owns the
// terminal. Quitting the dashboard cancels the crawl.
func runWithTUI(ctx context.Context, title string, crawl crawlFunc) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dashboard := tui.NewTUI(title)

	type result struct {
		summary string
		err     error
	}
	done := make(chan result, 1)

	go func() {
		dashboard.Logf(tui.LevelInfo, "%s started", title)
		summary, err := crawl(ctx, dashboard)
		if err != nil {
			dashboard.Logf(tui.LevelError, "%v", err)
		} else {
			dashboard.Logf(tui.LevelSuccess, "%s", summary)
		}
		dashboard.Finish(err)
		done <- result{summary: summary, err: err}
	}()

	go func() {
		<-ctx.Done()
		dashboard.Stop()
	}()

	if err := dashboard.Start(); err != nil {
		cancel()
		<-done
		return "", fmt.Errorf("dashboard: %w", err)
	}

	cancel()
	res := <-done
	return res.summary, res.err
}
