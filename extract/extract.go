// Package extract resolves post body text, author and timestamp from a
// post container using prioritized chains of selector strategies.
//
// The host page's class names are non-semantic and drift between post
// types (feed card, detail page, quoted post), so content extraction is
// an ordered list of structural fingerprints: the first strategy yielding
// non-empty output wins and later ones are not attempted.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// joinPlaceholder is the meta description the host serves for posts
// behind its login wall; it carries no post content and is rejected.
const joinPlaceholder = "Join Threads to see content from this account"

// Defaults makes extraction-failure fallbacks explicit. The zero value
// treats every missing field as meaningfully absent; NowOnMissingTimestamp
// reproduces the legacy capture path that stamped "now" instead.
type Defaults struct {
	NowOnMissingTimestamp bool
}

// contentStrategy extracts post text from a container, returning "" when
// its fingerprint matches nothing.
type contentStrategy func(container *goquery.Selection) string

// contentStrategies run in order; the ordering and the heading-exclusion
// rule are load-bearing against picking up surrounding chrome text.
var contentStrategies = []contentStrategy{
	spanStrategy(`[class*="x1lliihq"][class*="x1plvlek"]`),
	spanStrategy(`span[class*="x193iq5w"]`),
	spanStrategy(`div[dir="auto"] span`),
}

// spanStrategy builds a strategy that collects the text of every element
// matched by sel, excluding elements nested inside a heading.
func spanStrategy(sel string) contentStrategy {
	return func(container *goquery.Selection) string {
		var parts []string
		container.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if len(s.Nodes) > 0 && insideHeading(s.Nodes[0]) {
				return
			}
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		return strings.Join(parts, "\n")
	}
}

// insideHeading reports whether the node has an h1..h6 ancestor.
func insideHeading(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		switch p.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			return true
		}
	}
	return false
}

// IsPostPage reports whether the URL points at a single-post view rather
// than a feed or profile listing.
func IsPostPage(pageURL string) bool {
	return strings.Contains(pageURL, "/post/")
}

// Content extracts the post body text.
//
// On a single-post view the page-level meta description is authoritative
// and tried first, unless it is the login-wall placeholder. Feed contexts
// and rejected metas fall through to the DOM strategy chain against the
// container.
func Content(doc *goquery.Document, container *goquery.Selection, pageURL string) string {
	if doc != nil && IsPostPage(pageURL) {
		if meta := metaDescription(doc); meta != "" && meta != joinPlaceholder {
			return meta
		}
	}
	return DOMContent(container)
}

// DOMContent runs the selector strategy chain against a container and
// returns the first non-empty result.
func DOMContent(container *goquery.Selection) string {
	if container == nil {
		return ""
	}
	for _, strategy := range contentStrategies {
		if text := strategy(container); text != "" {
			return text
		}
	}
	return ""
}

func metaDescription(doc *goquery.Document) string {
	desc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return strings.TrimSpace(desc)
}

// Author returns the display name and profile URL of the first
// profile-link-shaped anchor under the container. Both are empty when no
// such anchor exists; absence is valid data, not failure.
func Author(container *goquery.Selection) (name, url string) {
	if container == nil {
		return "", ""
	}
	anchor := container.Find(`a[role="link"][href*="/@"]`).First()
	if anchor.Length() == 0 {
		anchor = container.Find(`a[href*="/@"]`).First()
	}
	if anchor.Length() == 0 {
		return "", ""
	}
	href, _ := anchor.Attr("href")
	return strings.TrimSpace(anchor.Text()), href
}

// Timestamp returns the datetime attribute of the first time element
// under the container, plus its title attribute. The title is kept
// separately because the datetime alone is sometimes imprecise or
// relative. Both are empty when absent, never defaulted to "now".
func Timestamp(container *goquery.Selection) (datetime, title string) {
	if container == nil {
		return "", ""
	}
	el := container.Find("time[datetime]").First()
	if el.Length() == 0 {
		return "", ""
	}
	datetime, _ = el.Attr("datetime")
	title, _ = el.Attr("title")
	return datetime, title
}
