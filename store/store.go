package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"syscall"

	"threadsaver/apperr"
	"threadsaver/article"
)

// Outcome reports what a save did to the collection.
type Outcome string

const (
	// OutcomeCreated: new permalink, article prepended at the head.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated: existing permalink, article replaced in place.
	OutcomeUpdated Outcome = "updated"
	// OutcomeSkipped: storage unavailable, nothing written.
	OutcomeSkipped Outcome = "skipped"
)

// Store reconciles article saves against the persisted collection.
// It keeps an in-memory mirror of the collection for reads; all
// mutations re-read the backend first (read-modify-write, single write).
type Store struct {
	mu     sync.RWMutex
	kv     KV
	logger *slog.Logger

	mirror []article.Article
	loaded bool
}

// New creates a store over a KV backend. logger may be nil.
func New(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// load reads the whole collection from the backend. An unavailable
// backend degrades to an empty read with a warning, never an error: the
// host may already be tearing down and must not see a crash.
func (s *Store) load(ctx context.Context) ([]article.Article, error) {
	if !s.kv.Available() {
		s.logger.Warn("storage unavailable, treating collection as empty")
		return nil, nil
	}
	data, ok, err := s.kv.Get(ctx, ArticlesKey)
	if err != nil {
		s.logger.Warn("storage read failed, treating collection as empty", "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	var articles []article.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("decoding saved collection: %w", err)
	}
	return articles, nil
}

// write persists the whole collection in a single backend write and
// refreshes the mirror.
func (s *Store) write(ctx context.Context, articles []article.Article) error {
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}
	if err := s.kv.Set(ctx, ArticlesKey, data); err != nil {
		return classifyWriteErr(err)
	}
	s.mirror = articles
	s.loaded = true
	return nil
}

// classifyWriteErr separates quota exhaustion, which gets its own
// user-visible category, from generic write failures.
func classifyWriteErr(err error) error {
	msg := strings.ToLower(err.Error())
	if errors.Is(err, syscall.ENOSPC) ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "database or disk is full") {
		return fmt.Errorf("%w: %v", apperr.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("writing collection: %w", err)
}

// SaveArticle reconciles one article into the collection.
//
// An existing article with the same permalink is replaced at its current
// position; otherwise the new article is prepended so the collection
// stays newest-first. When storage is unavailable the save degrades to a
// logged no-op and reports OutcomeSkipped.
func (s *Store) SaveArticle(ctx context.Context, a article.Article) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.kv.Available() {
		s.logger.Warn("storage unavailable, save skipped", "postLink", a.PostLink)
		return OutcomeSkipped, nil
	}

	articles, err := s.load(ctx)
	if err != nil {
		return "", err
	}

	outcome := OutcomeCreated
	replaced := false
	for i := range articles {
		if articles[i].PostLink == a.PostLink {
			articles[i] = a
			outcome = OutcomeUpdated
			replaced = true
			break
		}
	}
	if !replaced {
		articles = append([]article.Article{a}, articles...)
	}

	if err := s.write(ctx, articles); err != nil {
		return "", err
	}
	s.logger.Info("article saved", "postLink", a.PostLink, "outcome", string(outcome), "total", len(articles))
	return outcome, nil
}

// All returns the collection, newest first.
func (s *Store) All(ctx context.Context) ([]article.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return append([]article.Article(nil), s.mirror...), nil
	}
	articles, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mirror = articles
	s.loaded = true
	return append([]article.Article(nil), articles...), nil
}

// Get returns one article by id.
func (s *Store) Get(ctx context.Context, id string) (article.Article, error) {
	articles, err := s.All(ctx)
	if err != nil {
		return article.Article{}, err
	}
	for _, a := range articles {
		if a.ID == id {
			return a, nil
		}
	}
	return article.Article{}, apperr.ErrNotFound
}

// Search returns the articles matching a term, preserving order.
func (s *Store) Search(ctx context.Context, term string) ([]article.Article, error) {
	articles, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	var matched []article.Article
	for _, a := range articles {
		if a.Matches(term) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

// Delete removes one article by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	articles, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := articles[:0]
	found := false
	for _, a := range articles {
		if a.ID == id {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return apperr.ErrNotFound
	}
	return s.write(ctx, kept)
}

// Clear discards the whole collection.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.kv.Available() {
		s.logger.Warn("storage unavailable, clear skipped")
		return nil
	}
	return s.write(ctx, []article.Article{})
}

// Replace persists a full collection as-is, in the given order. Used by
// import and by bulk operations that rewrite every article at once.
func (s *Store) Replace(ctx context.Context, articles []article.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.kv.Available() {
		s.logger.Warn("storage unavailable, replace skipped")
		return nil
	}
	return s.write(ctx, articles)
}

// Invalidate drops the in-memory mirror so the next read hits the
// backend. The file watcher calls this when another process rewrites the
// store.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = nil
	s.loaded = false
}
