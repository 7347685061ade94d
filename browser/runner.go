// Package browser supplies the host-environment capabilities the core
// pipeline depends on but does not implement: a live Threads session to
// observe, and disposable background contexts for bulk refresh. Both are
// driven through headless-Chrome automation.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"threadsaver/config"
	"threadsaver/extract"
)

// userDataDir returns a persistent directory for Chrome user data, so
// the user's Threads login survives between runs.
func userDataDir() string {
	dir, _ := os.UserCacheDir()
	return filepath.Join(dir, "threadsaver-chrome-profile")
}

// allocOptions builds the Chrome allocator options shared by the live
// session and background runners.
func allocOptions(cfg config.Browser, headless bool) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-service-autorun", true),
		chromedp.WindowSize(1280, 900),
		chromedp.UserDataDir(userDataDir()),
	}
	if headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}

// Runner opens background browsing contexts and runs the page-meta
// extraction inside them. It satisfies refresh.PageRunner.
type Runner struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	loadTimeout time.Duration
	settle      time.Duration
	logger      *slog.Logger
}

// NewRunner creates a background-context runner sharing one browser
// process across visits. Close releases the browser.
func NewRunner(cfg config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(),
		allocOptions(cfg.Browser, cfg.Browser.Headless)...)
	return &Runner{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		loadTimeout: time.Duration(cfg.Timing.LoadTimeoutSec) * time.Second,
		settle:      time.Duration(cfg.Timing.SettleMs) * time.Millisecond,
		logger:      logger,
	}
}

// Close shuts the shared browser down.
func (r *Runner) Close() {
	r.allocCancel()
}

// RunInPage opens a new non-focused context at url, waits for it to load
// (bounded; a timeout degrades to proceed-anyway rather than hanging),
// waits a fixed settle delay for client-side rendering, extracts the
// page metadata and closes the context. The close runs in all outcomes,
// including errors.
func (r *Runner) RunInPage(ctx context.Context, url string) (*extract.PageMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(r.allocCtx)
	defer cancel() // guarantees the context is closed

	loadCtx, loadCancel := context.WithTimeout(tabCtx, r.loadTimeout)
	err := chromedp.Run(loadCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	loadCancel()
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("loading %s: %w", url, err)
		}
		// Load-wait timeout is not fatal: proceed with whatever rendered.
		r.logger.Warn("load wait timed out, proceeding", "url", url)
	}

	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.Sleep(r.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("capturing %s: %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}
	return extract.FromPage(doc, url, extract.Defaults{}), nil
}
