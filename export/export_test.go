package export

import (
	"context"
	"strings"
	"testing"

	"threadsaver/article"
	"threadsaver/embed"
	"threadsaver/store"
)

func sample(link string) article.Article {
	a := article.Article{
		ID:        article.NewID(),
		PostLink:  link,
		EmbedCode: embed.BuildCode(link),
		Content:   "body for " + link,
		Author:    "devname",
		Timestamp: "2025-03-01T10:00:00Z",
		Tags:      []string{"golang"},
		SavedAt:   "2025-03-02T00:00:00Z",
	}
	return a
}

func TestSimpleFormat(t *testing.T) {
	articles := []article.Article{
		sample("https://www.threads.net/@a/post/ONE"),
		sample("https://www.threads.net/@a/post/TWO"),
	}

	var buf strings.Builder
	if err := Simple(&buf, articles); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "        const posts = [") {
		t.Errorf("unexpected header: %q", out[:40])
	}
	if strings.Contains(out, "<script") {
		t.Error("script tags must be stripped")
	}
	if strings.Count(out, "blockquote class") != 2 {
		t.Errorf("expected 2 embed strings:\n%s", out)
	}
}

func TestSimpleFormatEscapesQuotes(t *testing.T) {
	a := sample("https://www.threads.net/@a/post/Q")
	a.EmbedCode = `<blockquote data-text-post-permalink="x">it's quoted</blockquote>`

	var buf strings.Builder
	if err := Simple(&buf, []article.Article{a}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `it\'s quoted`) {
		t.Errorf("single quote not escaped:\n%s", buf.String())
	}
}

func TestSimpleFormatNothingToExport(t *testing.T) {
	a := sample("https://www.threads.net/@a/post/EMPTY")
	a.EmbedCode = ""

	var buf strings.Builder
	if err := Simple(&buf, []article.Article{a}); err == nil {
		t.Error("expected error when no article carries embed code")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestFullRoundTripMerge(t *testing.T) {
	ctx := context.Background()
	articles := []article.Article{
		sample("https://www.threads.net/@a/post/R1"),
		sample("https://www.threads.net/@a/post/R2"),
	}

	var buf strings.Builder
	if err := Full(&buf, articles); err != nil {
		t.Fatal(err)
	}

	imported, err := Import(strings.NewReader(buf.String()), "threads-export.js")
	if err != nil {
		t.Fatal(err)
	}
	if len(imported) != 2 {
		t.Fatalf("imported %d articles, want 2", len(imported))
	}

	// Merge into an empty store reproduces the same set of permalinks
	// with equal content, author and tags.
	st := store.New(store.NewFileKV(t.TempDir()), nil)
	res, err := Merge(ctx, st, imported)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 2 || res.Skipped != 0 {
		t.Errorf("merge = %+v", res)
	}

	all, _ := st.All(ctx)
	for i, want := range articles {
		got := all[i]
		if got.PostLink != want.PostLink || got.Content != want.Content || got.Author != want.Author {
			t.Errorf("article %d = %+v, want fields of %+v", i, got, want)
		}
		if len(got.Tags) != 1 || got.Tags[0] != "golang" {
			t.Errorf("article %d tags = %v", i, got.Tags)
		}
	}

	// Re-importing against the same collection adds nothing.
	res, err = Merge(ctx, st, imported)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 0 || res.Skipped != 2 {
		t.Errorf("second merge = %+v, want all skipped", res)
	}
	if all, _ := st.All(ctx); len(all) != 2 {
		t.Errorf("collection grew on duplicate merge: %d", len(all))
	}
}

func TestImportSimpleFormat(t *testing.T) {
	link := "https://www.threads.net/@devname/post/SIMPLE"
	var buf strings.Builder
	if err := Simple(&buf, []article.Article{sample(link)}); err != nil {
		t.Fatal(err)
	}

	imported, err := Import(strings.NewReader(buf.String()), "posts.js")
	if err != nil {
		t.Fatal(err)
	}
	if len(imported) != 1 {
		t.Fatalf("imported %d, want 1", len(imported))
	}
	if imported[0].PostLink != link {
		t.Errorf("PostLink = %q, want permalink recovered from embed code", imported[0].PostLink)
	}
	if imported[0].Author != "devname" {
		t.Errorf("Author = %q, want handle from permalink", imported[0].Author)
	}
}

func TestImportRawJSON(t *testing.T) {
	raw := `[{"id":"x1","postLink":"https://www.threads.net/@a/post/J1","embedCode":"","content":"c","author":"a","authorUrl":"","tags":null,"codeBlocks":null,"savedAt":"2025-01-01T00:00:00Z"}]`
	imported, err := Import(strings.NewReader(raw), "backup.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(imported) != 1 || imported[0].PostLink != "https://www.threads.net/@a/post/J1" {
		t.Errorf("imported = %+v", imported)
	}
}

func TestImportWrappedJSON(t *testing.T) {
	raw := `{"savedArticles":[{"id":"x1","postLink":"https://www.threads.net/@a/post/W1"}]}`
	imported, err := Import(strings.NewReader(raw), "backup.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(imported) != 1 || imported[0].PostLink != "https://www.threads.net/@a/post/W1" {
		t.Errorf("imported = %+v", imported)
	}
}

func TestImportUnrecognized(t *testing.T) {
	if _, err := Import(strings.NewReader("not anything"), "notes.txt"); err == nil {
		t.Error("expected error for unknown extension")
	}
	if _, err := Import(strings.NewReader("var x = 1;"), "weird.js"); err == nil {
		t.Error("expected error for js without an array literal")
	}
}

func TestMergeRejectsEmptyPostLink(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewFileKV(t.TempDir()), nil)

	res, err := Merge(ctx, st, []article.Article{{ID: article.NewID()}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 0 || res.Skipped != 1 {
		t.Errorf("merge = %+v, want the linkless record skipped", res)
	}
}

func TestReplaceAllKeepsImportedOrder(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewFileKV(t.TempDir()), nil)
	st.SaveArticle(ctx, sample("https://www.threads.net/@a/post/OLD"))

	incoming := []article.Article{
		sample("https://www.threads.net/@a/post/N1"),
		sample("https://www.threads.net/@a/post/N2"),
	}
	res, err := ReplaceAll(ctx, st, incoming)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 2 {
		t.Errorf("replace = %+v", res)
	}

	all, _ := st.All(ctx)
	if len(all) != 2 || all[0].PostLink != incoming[0].PostLink || all[1].PostLink != incoming[1].PostLink {
		t.Errorf("collection = %+v, want imported order, old discarded", all)
	}
}
