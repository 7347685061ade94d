// Package resolver correlates a user's "get embed code" action with the
// authoritative post permalink and assembles the saved record.
//
// The permalink and official embed markup only become available
// asynchronously, in a dialog rendered after the click, and by then the
// clicked element's ancestry may be detached or re-rendered. The resolver
// therefore works from two inputs captured at different moments: a
// best-effort snapshot taken synchronously before the host reacts to the
// click, and a full document snapshot taken after the dialog settles.
package resolver

import (
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"threadsaver/apperr"
	"threadsaver/article"
	"threadsaver/codeblock"
	"threadsaver/embed"
	"threadsaver/extract"
	"threadsaver/lang"
)

// Snapshot holds the fields captured from the clicked control's post
// container before any UI change. Empty fields mean the container was
// already unreachable at click time.
type Snapshot struct {
	Content   string
	Author    string
	AuthorURL string
}

// maxAncestorHops bounds the upward walk when hunting for a post
// container around a permalink anchor.
const maxAncestorHops = 12

// Resolver assembles articles from dialog snapshots.
type Resolver struct {
	logger *slog.Logger
}

// New creates a resolver. logger may be nil.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve produces a fully populated article from the post-dialog
// document state plus the pre-click snapshot.
//
// The permalink is extracted exclusively from the embed code inside the
// dialog; a missing permalink aborts the whole operation
// (apperr.ErrNoPermalink). Every other missing field degrades to a
// fallback or stays empty.
func (r *Resolver) Resolve(doc *goquery.Document, snap Snapshot, pageURL string) (*article.Article, error) {
	dialog := lastDialog(doc)
	if dialog == nil {
		return nil, apperr.ErrNoDialog
	}

	embedCode := embedInputValue(dialog)
	if embedCode == "" {
		r.logger.Warn("no embed input in dialog")
	}

	permalink := embed.Permalink(embedCode)
	if permalink == "" {
		return nil, apperr.ErrNoPermalink
	}
	r.logger.Info("permalink resolved from embed code", "postLink", permalink)

	// The input value sometimes carries the permalink attribute without
	// the full blockquote markup; rebuild the official template then.
	if !strings.Contains(embedCode, "blockquote") {
		embedCode = embed.BuildCode(permalink)
	}

	content := snap.Content
	author := snap.Author
	authorURL := snap.AuthorURL

	if author == "" {
		author, authorURL = embed.HandleFromLink(permalink)
		if author != "" {
			r.logger.Info("author derived from permalink", "author", author)
		}
	}

	// The pre-click snapshot carries no container, so code blocks and the
	// timestamp can only come from a secondary search.
	var container *goquery.Selection
	var timestamp, timestampTitle string

	if content == "" {
		r.logger.Info("pre-click snapshot empty, searching by post id")
		container = findPostContainer(doc, embed.PostID(permalink))
		if container != nil {
			content = extract.DOMContent(container)
			// A handle derived from the permalink is only a fallback;
			// prefer the display name from an actual post container.
			if snap.Author == "" {
				if name, url := extract.Author(container); name != "" {
					author, authorURL = name, url
				}
			}
			timestamp, timestampTitle = extract.Timestamp(container)
		}
	}

	a := &article.Article{
		ID:             article.NewID(),
		PostLink:       permalink,
		EmbedCode:      embedCode,
		Content:        strings.TrimSpace(content),
		Author:         strings.TrimSpace(author),
		AuthorURL:      authorURL,
		Timestamp:      timestamp,
		TimestampTitle: timestampTitle,
		Tags:           lang.ExtractTags(content),
		CodeBlocks:     codeblock.Extract(container, content),
		SavedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	return a, nil
}

// lastDialog returns the most recently added dialog-role element.
// Dialogs can stack; the last one is authoritative.
func lastDialog(doc *goquery.Document) *goquery.Selection {
	dialogs := doc.Find(`[role="dialog"]`)
	if dialogs.Length() == 0 {
		return nil
	}
	return dialogs.Last()
}

// embedInputValue finds the read-only input carrying the official embed
// markup inside a dialog and returns its value. An input holding only
// the permalink attribute, without surrounding markup, is accepted as a
// fallback when no full snippet is present.
func embedInputValue(dialog *goquery.Selection) string {
	var markup, bare string
	dialog.Find("input[readonly]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("value")
		switch {
		case strings.Contains(v, "blockquote"):
			markup = v
			return false
		case bare == "" && embed.Permalink(v) != "":
			bare = v
		}
		return true
	})
	if markup != "" {
		return markup
	}
	return bare
}

// findPostContainer locates a plausible post container for a post id by
// walking up from anchors elsewhere in the document that reference the
// same post. The first container yielding non-empty content wins.
func findPostContainer(doc *goquery.Document, postID string) *goquery.Selection {
	if postID == "" {
		return nil
	}
	var found *goquery.Selection
	doc.Find(`a[href*="/post/` + postID + `"]`).EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		if c := containerAround(anchor); c != nil && extract.DOMContent(c) != "" {
			found = c
			return false
		}
		return true
	})
	return found
}

// containerAround climbs a bounded number of ancestor hops looking for an
// element that looks like a post container: an article tag, an
// article-role div, a known class fingerprint, or any ancestor holding a
// time element with a datetime attribute.
func containerAround(anchor *goquery.Selection) *goquery.Selection {
	current := anchor.Parent()
	for hops := 0; hops < maxAncestorHops && current.Length() > 0; hops++ {
		if isPostContainer(current) {
			return current
		}
		current = current.Parent()
	}
	return nil
}

func isPostContainer(s *goquery.Selection) bool {
	if goquery.NodeName(s) == "article" {
		return true
	}
	if role, _ := s.Attr("role"); role == "article" {
		return true
	}
	if class, _ := s.Attr("class"); strings.Contains(class, "x1lliihq") {
		return true
	}
	return s.Find("time[datetime]").Length() > 0
}
