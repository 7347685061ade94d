package extract

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PageMeta is the restricted extraction run against a freshly loaded post
// page during bulk refresh: timestamp plus body text only.
type PageMeta struct {
	Timestamp      string `json:"timestamp"`
	TimestampTitle string `json:"timestampTitle"`
	Content        string `json:"content"`
}

// FromPage extracts refreshable fields from a full post page document.
//
// The timestamp has its own fallback chain: a time element, then the
// article:published_time meta property, then JSON-LD structured data.
func FromPage(doc *goquery.Document, pageURL string, d Defaults) *PageMeta {
	if doc == nil {
		return nil
	}

	meta := &PageMeta{}
	meta.Timestamp, meta.TimestampTitle = Timestamp(doc.Selection)
	if meta.Timestamp == "" {
		meta.Timestamp = publishedTimeMeta(doc)
	}
	if meta.Timestamp == "" {
		meta.Timestamp = jsonLDPublished(doc)
	}
	if meta.Timestamp == "" && d.NowOnMissingTimestamp {
		meta.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	meta.Content = Content(doc, doc.Selection, pageURL)
	return meta
}

func publishedTimeMeta(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[property="article:published_time"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

// jsonLDPublished scans ld+json script blocks for a datePublished field,
// looking inside @graph arrays as well as top-level objects.
func jsonLDPublished(doc *goquery.Document) string {
	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true
		}
		if date := datePublished(raw); date != "" {
			found = date
			return false
		}
		return true
	})
	return found
}

func datePublished(raw any) string {
	switch v := raw.(type) {
	case map[string]any:
		if date, ok := v["datePublished"].(string); ok && date != "" {
			return date
		}
		if graph, ok := v["@graph"]; ok {
			return datePublished(graph)
		}
	case []any:
		for _, item := range v {
			if date := datePublished(item); date != "" {
				return date
			}
		}
	}
	return ""
}
