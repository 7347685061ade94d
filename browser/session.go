package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/errgroup"

	"threadsaver/apperr"
	"threadsaver/config"
	"threadsaver/resolver"
	"threadsaver/store"
)

// clickEvent is one drained pre-click snapshot from the page hook.
type clickEvent struct {
	Content   string `json:"content"`
	Author    string `json:"author"`
	AuthorURL string `json:"authorUrl"`
}

// Session drives a visible Threads tab, watches it for "get embed code"
// clicks and saves the resolved articles.
type Session struct {
	cfg      config.Config
	store    *store.Store
	resolver *resolver.Resolver
	logger   *slog.Logger

	// StorePath, when set, enables the external-change watcher on the
	// file backing the collection.
	StorePath string
}

// NewSession creates a live session. logger may be nil.
func NewSession(cfg config.Config, st *store.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:      cfg,
		store:    st,
		resolver: resolver.New(logger),
		logger:   logger,
	}
}

// Run opens the feed in a visible browser window and processes click
// events until ctx is cancelled. The page-side MutationObserver and the
// Go-side interval poll are two independent triggers of the same
// idempotent attach routine.
func (s *Session) Run(ctx context.Context) error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		allocOptions(s.cfg.Browser, false)...)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hookScript).Do(ctx)
			return err
		}),
		chromedp.Navigate(s.cfg.Browser.FeedURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(hookScript, nil),
	)
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}
	s.logger.Info("session started", "url", s.cfg.Browser.FeedURL)

	g, gctx := errgroup.WithContext(tabCtx)

	g.Go(func() error {
		return s.pollLoop(gctx, tabCtx)
	})

	if s.StorePath != "" {
		g.Go(func() error {
			return s.store.Watch(gctx, s.StorePath, s.logger, nil)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pollLoop periodically re-attaches handlers and drains queued clicks.
func (s *Session) pollLoop(ctx context.Context, tabCtx context.Context) error {
	interval := time.Duration(s.cfg.Timing.PollIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		var attached int
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(attachCall, &attached)); err != nil {
			s.logger.Warn("attach poll failed", "error", err)
			continue
		}
		if attached > 0 {
			s.logger.Info("attached to embed buttons", "count", attached)
		}

		var events []clickEvent
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(drainCall, &events)); err != nil {
			s.logger.Warn("click drain failed", "error", err)
			continue
		}
		for _, ev := range events {
			s.handleClick(ctx, tabCtx, ev)
		}
	}
}

// handleClick waits out the dialog delay, snapshots the document and
// runs the resolver against it.
func (s *Session) handleClick(ctx context.Context, tabCtx context.Context, ev clickEvent) {
	s.logger.Info("embed click detected", "snapshotContent", len(ev.Content) > 0)

	// Fixed wait for the dialog to render; its appearance has no
	// reliable load event.
	dialogWait := time.Duration(s.cfg.Timing.DialogWaitMs) * time.Millisecond

	var html, pageURL string
	err := chromedp.Run(tabCtx,
		chromedp.Sleep(dialogWait),
		chromedp.Location(&pageURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		s.logger.Warn("dialog snapshot failed", "error", err)
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.logger.Warn("dialog parse failed", "error", err)
		return
	}

	snap := resolver.Snapshot{
		Content:   ev.Content,
		Author:    ev.Author,
		AuthorURL: ev.AuthorURL,
	}
	a, err := s.resolver.Resolve(doc, snap, pageURL)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNoDialog):
			s.toast(tabCtx, "Embed dialog not found")
		case errors.Is(err, apperr.ErrNoPermalink):
			s.toast(tabCtx, "Could not determine the post link")
		default:
			s.toast(tabCtx, "Save failed: "+err.Error())
		}
		s.logger.Warn("resolve failed", "error", err)
		return
	}

	outcome, err := s.store.SaveArticle(ctx, *a)
	if err != nil {
		if errors.Is(err, apperr.ErrQuotaExceeded) {
			s.toast(tabCtx, "Storage is full; clear old articles to continue")
		} else {
			s.toast(tabCtx, "Save failed: "+err.Error())
		}
		s.logger.Error("save failed", "error", err, "postLink", a.PostLink)
		return
	}

	if msg := saveToast(outcome); msg != "" {
		s.toast(tabCtx, msg)
	}
}

// saveToast maps a save outcome to its user-facing notification. Every
// outcome gets one; a skipped save must not look like a silent success.
func saveToast(outcome store.Outcome) string {
	switch outcome {
	case store.OutcomeUpdated:
		return "Embed code updated"
	case store.OutcomeCreated:
		return "Embed code saved"
	case store.OutcomeSkipped:
		return "Storage unavailable, nothing saved"
	}
	return ""
}

// toast shows a transient notification inside the live page.
func (s *Session) toast(tabCtx context.Context, msg string) {
	quoted, err := json.Marshal(msg)
	if err != nil {
		return
	}
	script := fmt.Sprintf(toastCall, quoted)
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(script, nil)); err != nil {
		s.logger.Warn("toast failed", "error", err)
	}
}
