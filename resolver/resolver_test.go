package resolver

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"threadsaver/apperr"
	"threadsaver/embed"
)

const postLink = "https://www.threads.net/@devname/post/ABC123"

func parse(t *testing.T, htmlStr string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

// dialogHTML wraps embed markup in a dialog with a read-only input, the
// way the host renders its embed dialog.
func dialogHTML(embedCode string) string {
	escaped := strings.ReplaceAll(embedCode, `"`, "&quot;")
	return `<div role="dialog"><input readonly value="` + escaped + `"></div>`
}

func TestResolveWithSnapshot(t *testing.T) {
	doc := parse(t, "<body>"+dialogHTML(embed.BuildCode(postLink))+"</body>")

	snap := Snapshot{
		Content:   "post body from the pre-click snapshot",
		Author:    "Dev Name",
		AuthorURL: "https://www.threads.net/@devname",
	}
	a, err := New(nil).Resolve(doc, snap, "https://www.threads.net/")
	if err != nil {
		t.Fatal(err)
	}

	if a.PostLink != postLink {
		t.Errorf("PostLink = %q, want permalink from embed code", a.PostLink)
	}
	if a.Content != snap.Content {
		t.Errorf("Content = %q", a.Content)
	}
	if a.Author != "Dev Name" {
		t.Errorf("Author = %q", a.Author)
	}
	if !strings.Contains(a.EmbedCode, "blockquote") {
		t.Error("expected embed markup from the dialog input")
	}
	if a.SavedAt == "" || a.ID == "" {
		t.Error("expected ID and SavedAt assigned")
	}
}

func TestResolveNoDialog(t *testing.T) {
	doc := parse(t, `<body><div>no dialog here</div></body>`)

	_, err := New(nil).Resolve(doc, Snapshot{}, "")
	if !errors.Is(err, apperr.ErrNoDialog) {
		t.Errorf("expected ErrNoDialog, got %v", err)
	}
}

func TestResolveNoEmbedInput(t *testing.T) {
	doc := parse(t, `<body><div role="dialog"><p>some other dialog</p></div></body>`)

	_, err := New(nil).Resolve(doc, Snapshot{}, "")
	if !errors.Is(err, apperr.ErrNoPermalink) {
		t.Errorf("expected ErrNoPermalink, got %v", err)
	}
}

func TestResolveUsesLastDialog(t *testing.T) {
	stale := `<div role="dialog"><p>older stacked dialog</p></div>`
	doc := parse(t, "<body>"+stale+dialogHTML(embed.BuildCode(postLink))+"</body>")

	a, err := New(nil).Resolve(doc, Snapshot{Content: "x"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if a.PostLink != postLink {
		t.Errorf("PostLink = %q, want the most recent dialog's permalink", a.PostLink)
	}
}

func TestResolveAuthorFallbackFromPermalink(t *testing.T) {
	doc := parse(t, "<body>"+dialogHTML(embed.BuildCode(postLink))+"</body>")

	a, err := New(nil).Resolve(doc, Snapshot{Content: "body"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if a.Author != "devname" {
		t.Errorf("Author = %q, want handle from permalink path", a.Author)
	}
	if a.AuthorURL != "https://www.threads.net/@devname" {
		t.Errorf("AuthorURL = %q", a.AuthorURL)
	}
}

func TestResolveSecondarySearch(t *testing.T) {
	// Empty snapshot: the resolver must find the post container elsewhere
	// in the document via an anchor referencing the same post id.
	page := `<body>
		<article>
			<a role="link" href="https://www.threads.net/@devname">Dev Name</a>
			<a href="/@devname/post/ABC123">permalink anchor</a>
			<time datetime="2025-05-05T12:00:00.000Z" title="May 5, 2025">3h</time>
			<span class="x193iq5w">recovered post body</span>
		</article>
		` + dialogHTML(embed.BuildCode(postLink)) + `
	</body>`

	doc := parse(t, page)
	a, err := New(nil).Resolve(doc, Snapshot{}, "")
	if err != nil {
		t.Fatal(err)
	}

	if a.Content != "recovered post body" {
		t.Errorf("Content = %q, want secondary-search recovery", a.Content)
	}
	if a.Author != "Dev Name" {
		t.Errorf("Author = %q, want author from recovered container", a.Author)
	}
	if a.Timestamp != "2025-05-05T12:00:00.000Z" {
		t.Errorf("Timestamp = %q", a.Timestamp)
	}
	if a.TimestampTitle != "May 5, 2025" {
		t.Errorf("TimestampTitle = %q", a.TimestampTitle)
	}
}

func TestResolveSecondarySearchMiss(t *testing.T) {
	// No matching anchor anywhere: content stays empty, save still works.
	doc := parse(t, "<body>"+dialogHTML(embed.BuildCode(postLink))+"</body>")

	a, err := New(nil).Resolve(doc, Snapshot{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if a.Content != "" {
		t.Errorf("Content = %q, want empty", a.Content)
	}
	if a.Timestamp != "" {
		t.Errorf("Timestamp = %q, absence must not default to now", a.Timestamp)
	}
}

func TestResolveExtractsTagsAndCode(t *testing.T) {
	doc := parse(t, "<body>"+dialogHTML(embed.BuildCode(postLink))+"</body>")

	snap := Snapshot{Content: "Python tip #coding\n```python\ndef f():\n  pass\n```"}
	a, err := New(nil).Resolve(doc, snap, "")
	if err != nil {
		t.Fatal(err)
	}

	hasTag := func(want string) bool {
		for _, tag := range a.Tags {
			if tag == want {
				return true
			}
		}
		return false
	}
	if !hasTag("coding") || !hasTag("Python") {
		t.Errorf("Tags = %v", a.Tags)
	}
	if len(a.CodeBlocks) != 1 || a.CodeBlocks[0].Language != "python" {
		t.Errorf("CodeBlocks = %+v", a.CodeBlocks)
	}
}

func TestResolveRebuildsMarkupFromBareInput(t *testing.T) {
	// The dialog input carries the permalink attribute but no blockquote
	// markup; the embed code is reconstructed from the template.
	bare := `data-text-post-permalink=&quot;` + postLink + `&quot;`
	doc := parse(t, `<body><div role="dialog"><input readonly value="`+bare+`"></div></body>`)

	a, err := New(nil).Resolve(doc, Snapshot{Content: "x"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if a.PostLink != postLink {
		t.Errorf("PostLink = %q", a.PostLink)
	}
	if a.EmbedCode != embed.BuildCode(postLink) {
		t.Errorf("EmbedCode = %q, want rebuilt template markup", a.EmbedCode)
	}
}
