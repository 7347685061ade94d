// Package refresh re-fetches missing article fields by visiting each
// saved post in a background browsing context.
package refresh

import (
	"context"
	"log/slog"
	"time"

	"threadsaver/embed"
	"threadsaver/extract"
	"threadsaver/store"
)

// PageRunner is the entire capability the orchestrator needs from its
// host environment: open a non-focused browsing context at a URL, wait
// for it to load (bounded; proceeding anyway on timeout), run the
// extraction inside it, and close it in all outcomes.
type PageRunner interface {
	RunInPage(ctx context.Context, url string) (*extract.PageMeta, error)
}

// Result aggregates a bulk operation's per-item outcomes.
type Result struct {
	Success int
	Fail    int
}

// Orchestrator drives bulk operations over the saved collection.
type Orchestrator struct {
	store  *store.Store
	runner PageRunner
	logger *slog.Logger

	// Progress (if non-nil) is called after each processed item.
	Progress func(done, total int)
}

// New creates an orchestrator. runner may be nil if only embed-code
// regeneration is used; logger may be nil.
func New(st *store.Store, runner PageRunner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: st, runner: runner, logger: logger}
}

// RefreshAll revisits every article with a permalink and refreshes its
// timestamp and content from the live page.
//
// Items are processed strictly sequentially to bound resource usage and
// avoid hammering the host site. A single item's failure is counted and
// logged, never aborts the batch. The updated collection is persisted in
// one write at the end, trading per-item durability for fewer writes.
func (o *Orchestrator) RefreshAll(ctx context.Context) (Result, error) {
	articles, err := o.store.All(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	now := time.Now().UTC().Format(time.RFC3339)

	for i := range articles {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		a := &articles[i]
		if a.PostLink == "" {
			res.Fail++
			o.report(i+1, len(articles))
			continue
		}

		meta, err := o.runner.RunInPage(ctx, a.PostLink)
		if err != nil || meta == nil {
			res.Fail++
			o.logger.Warn("refresh failed", "postLink", a.PostLink, "error", err)
			o.report(i+1, len(articles))
			continue
		}

		changed := false
		if meta.Timestamp != "" {
			a.Timestamp = meta.Timestamp
			a.TimestampTitle = meta.TimestampTitle
			changed = true
		}
		if meta.Content != "" && a.Content == "" {
			a.Content = meta.Content
			changed = true
		}
		if changed {
			// SavedAt stays: it records the original capture, not this
			// enrichment.
			a.TimestampUpdatedAt = now
			res.Success++
		} else {
			res.Fail++
			o.logger.Warn("refresh extracted nothing", "postLink", a.PostLink)
		}
		o.report(i+1, len(articles))
	}

	if err := o.store.Replace(ctx, articles); err != nil {
		return res, err
	}
	o.logger.Info("bulk refresh finished", "success", res.Success, "fail", res.Fail)
	return res, nil
}

// RegenerateAll rebuilds the embed code of every article from its
// permalink, stamping LastUpdated, and persists once.
func (o *Orchestrator) RegenerateAll(ctx context.Context) (Result, error) {
	articles, err := o.store.All(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	now := time.Now().UTC().Format(time.RFC3339)
	for i := range articles {
		a := &articles[i]
		code := embed.BuildCode(a.PostLink)
		if code == "" {
			res.Fail++
			continue
		}
		a.EmbedCode = code
		a.LastUpdated = now
		res.Success++
	}

	if err := o.store.Replace(ctx, articles); err != nil {
		return res, err
	}
	o.logger.Info("embed codes regenerated", "success", res.Success, "fail", res.Fail)
	return res, nil
}

// Regenerate rebuilds one article's embed code by id.
func (o *Orchestrator) Regenerate(ctx context.Context, id string) error {
	a, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	code := embed.BuildCode(a.PostLink)
	if code == "" {
		return errEmptyLink
	}
	a.EmbedCode = code
	a.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	_, err = o.store.SaveArticle(ctx, a)
	return err
}

func (o *Orchestrator) report(done, total int) {
	if o.Progress != nil {
		o.Progress(done, total)
	}
}
