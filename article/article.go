// Package article defines the saved post record and its invariants.
package article

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"threadsaver/codeblock"
)

// Article is one saved post. PostLink is the deduplication key: the store
// holds at most one article per distinct permalink.
//
// Timestamp and TimestampTitle stay empty when extraction found nothing;
// absence is distinct from "unknown" and is never silently defaulted.
// SavedAt is set once at capture; LastUpdated marks a later embed-code
// regeneration and TimestampUpdatedAt a later timestamp/content refresh,
// so the original capture time stays distinguishable from enrichment.
type Article struct {
	ID                 string            `json:"id"`
	PostLink           string            `json:"postLink"`
	EmbedCode          string            `json:"embedCode"`
	Content            string            `json:"content"`
	Author             string            `json:"author"`
	AuthorURL          string            `json:"authorUrl"`
	Timestamp          string            `json:"timestamp,omitempty"`
	TimestampTitle     string            `json:"timestampTitle,omitempty"`
	Tags               []string          `json:"tags"`
	CodeBlocks         []codeblock.Block `json:"codeBlocks"`
	SavedAt            string            `json:"savedAt"`
	LastUpdated        string            `json:"lastUpdated,omitempty"`
	TimestampUpdatedAt string            `json:"timestampUpdatedAt,omitempty"`
}

// NewID generates an opaque article token. IDs are never reused.
func NewID() string {
	return fmt.Sprintf("embed_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Validate checks the fields an imported record must carry. A record
// without a permalink cannot participate in deduplication (every such
// record would collide with every other one), so PostLink is required.
func (a Article) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.PostLink, validation.Required, is.URL),
		validation.Field(&a.ID, validation.Required),
	)
}

// Matches reports whether the article matches a search term against
// content, author, tags, code blocks or embed markup, case-insensitively.
func (a Article) Matches(term string) bool {
	term = strings.ToLower(term)
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(a.Content), term) ||
		strings.Contains(strings.ToLower(a.Author), term) ||
		strings.Contains(strings.ToLower(a.EmbedCode), term) {
		return true
	}
	for _, tag := range a.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	for _, b := range a.CodeBlocks {
		if strings.Contains(strings.ToLower(b.Code), term) ||
			strings.Contains(strings.ToLower(b.Language), term) {
			return true
		}
	}
	return false
}
