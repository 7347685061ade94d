package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"threadsaver/article"
	"threadsaver/embed"
	"threadsaver/store"
)

// ErrUnrecognized means the input matched none of the supported formats.
var ErrUnrecognized = errors.New("unrecognized import format")

var (
	arrayLiteralPattern = regexp.MustCompile(`(?s)\[.*\]`)
	quotedPattern       = regexp.MustCompile(`'((?:[^'\\]|\\.)*)'`)
)

// Import reads articles from a previously exported file. The format is
// chosen by extension: .json holds either a raw article array or an
// object with a savedArticles array; .js is probed for a JSON-parseable
// array literal first (full format), then falls back to extracting
// quoted embed-code strings (simple format).
func Import(r io.Reader, filename string) ([]article.Article, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return importJSON(data)
	case ".js":
		return importJS(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognized, filename)
	}
}

func importJSON(data []byte) ([]article.Article, error) {
	var articles []article.Article
	if err := json.Unmarshal(data, &articles); err == nil {
		return withIDs(articles), nil
	}

	var wrapped struct {
		SavedArticles []article.Article `json:"savedArticles"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.SavedArticles != nil {
		return withIDs(wrapped.SavedArticles), nil
	}
	return nil, ErrUnrecognized
}

func importJS(data []byte) ([]article.Article, error) {
	literal := arrayLiteralPattern.Find(data)
	if literal == nil {
		return nil, ErrUnrecognized
	}

	// Full format: the assigned literal is plain JSON.
	var records []fullRecord
	if err := json.Unmarshal(literal, &records); err == nil {
		articles := make([]article.Article, 0, len(records))
		for _, rec := range records {
			a := article.Article{
				ID:             article.NewID(),
				PostLink:       rec.PostLink,
				EmbedCode:      rec.EmbedCode,
				Author:         rec.Author,
				Content:        rec.Content,
				Timestamp:      rec.Timestamp,
				TimestampTitle: rec.TimestampTitle,
				SavedAt:        rec.SavedAt,
				Tags:           rec.Tags,
			}
			if a.AuthorURL == "" {
				_, a.AuthorURL = embed.HandleFromLink(a.PostLink)
			}
			articles = append(articles, a)
		}
		return articles, nil
	}

	// Simple format: single-quoted embed-code strings. The permalink is
	// recovered from each embed code's permalink attribute.
	matches := quotedPattern.FindAllSubmatch(literal, -1)
	if len(matches) == 0 {
		return nil, ErrUnrecognized
	}
	var articles []article.Article
	for _, m := range matches {
		code := strings.ReplaceAll(string(m[1]), `\'`, `'`)
		if !strings.Contains(code, "blockquote") {
			continue
		}
		link := embed.Permalink(code)
		author, authorURL := embed.HandleFromLink(link)
		articles = append(articles, article.Article{
			ID:        article.NewID(),
			PostLink:  link,
			EmbedCode: code,
			Author:    author,
			AuthorURL: authorURL,
			SavedAt:   time.Now().UTC().Format(time.RFC3339),
		})
	}
	if len(articles) == 0 {
		return nil, ErrUnrecognized
	}
	return articles, nil
}

func withIDs(articles []article.Article) []article.Article {
	for i := range articles {
		if articles[i].ID == "" {
			articles[i].ID = article.NewID()
		}
	}
	return articles
}

// MergeResult counts what an import did.
type MergeResult struct {
	Added   int
	Skipped int
}

// Merge adds imported articles to the store, skipping any whose permalink
// already exists and any that fail validation (notably records without a
// permalink, which would otherwise all collide as duplicates of one
// another). The surviving batch is prepended in one write.
func Merge(ctx context.Context, st *store.Store, articles []article.Article) (MergeResult, error) {
	existing, err := st.All(ctx)
	if err != nil {
		return MergeResult{}, err
	}
	known := make(map[string]bool, len(existing))
	for _, a := range existing {
		known[a.PostLink] = true
	}

	var res MergeResult
	var added []article.Article
	for _, a := range articles {
		if a.Validate() != nil || known[a.PostLink] {
			res.Skipped++
			continue
		}
		known[a.PostLink] = true
		added = append(added, a)
		res.Added++
	}

	if len(added) == 0 {
		return res, nil
	}
	if err := st.Replace(ctx, append(added, existing...)); err != nil {
		return res, err
	}
	return res, nil
}

// ReplaceAll discards the current collection and installs the imported
// articles in their given order, dropping records that fail validation.
func ReplaceAll(ctx context.Context, st *store.Store, articles []article.Article) (MergeResult, error) {
	var res MergeResult
	kept := make([]article.Article, 0, len(articles))
	for _, a := range articles {
		if a.Validate() != nil {
			res.Skipped++
			continue
		}
		kept = append(kept, a)
		res.Added++
	}
	if err := st.Replace(ctx, kept); err != nil {
		return res, err
	}
	return res, nil
}
