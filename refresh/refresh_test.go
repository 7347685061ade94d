package refresh

import (
	"context"
	"errors"
	"strings"
	"testing"

	"threadsaver/article"
	"threadsaver/extract"
	"threadsaver/store"
)

// fakeRunner records visit order and serves canned extractions.
type fakeRunner struct {
	visited []string
	metas   map[string]*extract.PageMeta
	fails   map[string]bool
}

func (f *fakeRunner) RunInPage(_ context.Context, url string) (*extract.PageMeta, error) {
	f.visited = append(f.visited, url)
	if f.fails[url] {
		return nil, errors.New("page load failed")
	}
	return f.metas[url], nil
}

func seed(t *testing.T, links ...string) *store.Store {
	t.Helper()
	st := store.New(store.NewFileKV(t.TempDir()), nil)
	// Save in reverse so links end up newest-first in the given order.
	for i := len(links) - 1; i >= 0; i-- {
		a := article.Article{
			ID:       article.NewID(),
			PostLink: links[i],
			SavedAt:  "2025-01-01T00:00:00Z",
		}
		if _, err := st.SaveArticle(context.Background(), a); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func TestRefreshAll(t *testing.T) {
	ctx := context.Background()
	linkA := "https://www.threads.net/@a/post/AAA"
	linkB := "https://www.threads.net/@a/post/BBB"
	st := seed(t, linkA, linkB)

	runner := &fakeRunner{
		metas: map[string]*extract.PageMeta{
			linkA: {Timestamp: "2025-06-01T00:00:00Z", TimestampTitle: "Jun 1", Content: "body A"},
			linkB: {Timestamp: "2025-06-02T00:00:00Z"},
		},
	}

	res, err := New(st, runner, nil).RefreshAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success != 2 || res.Fail != 0 {
		t.Errorf("result = %+v", res)
	}

	all, _ := st.All(ctx)
	if all[0].Timestamp != "2025-06-01T00:00:00Z" || all[0].TimestampTitle != "Jun 1" {
		t.Errorf("article A not refreshed: %+v", all[0])
	}
	if all[0].Content != "body A" {
		t.Errorf("empty content must be filled: %q", all[0].Content)
	}
	if all[0].TimestampUpdatedAt == "" {
		t.Error("expected TimestampUpdatedAt stamped")
	}
	if all[0].SavedAt != "2025-01-01T00:00:00Z" {
		t.Error("SavedAt must not change on refresh")
	}
}

func TestRefreshAllSequential(t *testing.T) {
	ctx := context.Background()
	links := []string{
		"https://www.threads.net/@a/post/1",
		"https://www.threads.net/@a/post/2",
		"https://www.threads.net/@a/post/3",
	}
	st := seed(t, links...)

	runner := &fakeRunner{metas: map[string]*extract.PageMeta{}}
	for _, l := range links {
		runner.metas[l] = &extract.PageMeta{Timestamp: "2025-06-01T00:00:00Z"}
	}

	o := New(st, runner, nil)
	var progress []int
	o.Progress = func(done, total int) { progress = append(progress, done) }

	if _, err := o.RefreshAll(ctx); err != nil {
		t.Fatal(err)
	}

	// visits follow collection order, one at a time
	if strings.Join(runner.visited, ",") != strings.Join(links, ",") {
		t.Errorf("visit order = %v", runner.visited)
	}
	if len(progress) != 3 || progress[0] != 1 || progress[2] != 3 {
		t.Errorf("progress = %v", progress)
	}
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	bad := "https://www.threads.net/@a/post/BAD"
	good := "https://www.threads.net/@a/post/GOOD"
	st := seed(t, bad, good)

	runner := &fakeRunner{
		metas: map[string]*extract.PageMeta{
			good: {Timestamp: "2025-06-01T00:00:00Z"},
		},
		fails: map[string]bool{bad: true},
	}

	res, err := New(st, runner, nil).RefreshAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success != 1 || res.Fail != 1 {
		t.Errorf("result = %+v", res)
	}

	all, _ := st.All(ctx)
	if all[1].Timestamp == "" {
		t.Error("failure of one item must not abort the rest of the batch")
	}
}

func TestRefreshAllEmptyLinkCountsAsFail(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewFileKV(t.TempDir()), nil)
	st.Replace(ctx, []article.Article{{ID: article.NewID()}})

	runner := &fakeRunner{}
	res, err := New(st, runner, nil).RefreshAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fail != 1 || len(runner.visited) != 0 {
		t.Errorf("result = %+v, visited = %v", res, runner.visited)
	}
}

func TestRegenerateAll(t *testing.T) {
	ctx := context.Background()
	link := "https://www.threads.net/@a/post/REGEN"
	st := seed(t, link)

	res, err := New(st, nil, nil).RegenerateAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success != 1 || res.Fail != 0 {
		t.Errorf("result = %+v", res)
	}

	all, _ := st.All(ctx)
	if !strings.Contains(all[0].EmbedCode, link) {
		t.Error("embed code must embed the permalink")
	}
	if all[0].LastUpdated == "" {
		t.Error("expected LastUpdated stamped")
	}
	if all[0].TimestampUpdatedAt != "" {
		t.Error("regeneration must not touch TimestampUpdatedAt")
	}
}

func TestRegenerateSingle(t *testing.T) {
	ctx := context.Background()
	link := "https://www.threads.net/@a/post/ONE"
	st := seed(t, link)
	all, _ := st.All(ctx)

	o := New(st, nil, nil)
	if err := o.Regenerate(ctx, all[0].ID); err != nil {
		t.Fatal(err)
	}

	refreshed, _ := st.Get(ctx, all[0].ID)
	if refreshed.LastUpdated == "" {
		t.Error("expected LastUpdated stamped")
	}
}
