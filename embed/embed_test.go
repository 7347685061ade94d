package embed

import (
	"strings"
	"testing"
)

const testLink = "https://www.threads.net/@devname/post/ABC123"

func TestBuildCodeDeterministic(t *testing.T) {
	first := BuildCode(testLink)
	second := BuildCode(testLink)
	if first != second {
		t.Error("BuildCode is not deterministic")
	}
	if first == "" {
		t.Fatal("BuildCode returned empty markup")
	}
}

func TestBuildCodeRoundTrip(t *testing.T) {
	code := BuildCode(testLink)
	if got := Permalink(code); got != testLink {
		t.Errorf("Permalink(BuildCode(link)) = %q, want %q", got, testLink)
	}
	if !strings.Contains(code, `id="ig-tp-ABC123"`) {
		t.Error("expected post ID in the blockquote id attribute")
	}
	if !strings.Contains(code, "threads.com/embed.js") {
		t.Error("expected loader script tag")
	}
}

func TestBuildCodeEmptyLink(t *testing.T) {
	if got := BuildCode(""); got != "" {
		t.Errorf("BuildCode(\"\") = %q, want empty", got)
	}
}

func TestPermalinkAbsent(t *testing.T) {
	if got := Permalink("<blockquote>no attribute</blockquote>"); got != "" {
		t.Errorf("Permalink = %q, want empty", got)
	}
}

func TestPostID(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{testLink, "ABC123"},
		{"https://www.threads.net/@devname/post/XYZ?igshid=1", "XYZ"},
		{"https://www.threads.net/@devname", ""},
	}
	for _, tt := range tests {
		if got := PostID(tt.link); got != tt.want {
			t.Errorf("PostID(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}

func TestHandleFromLink(t *testing.T) {
	author, url := HandleFromLink(testLink)
	if author != "devname" {
		t.Errorf("author = %q, want devname", author)
	}
	if url != "https://www.threads.net/@devname" {
		t.Errorf("url = %q", url)
	}

	author, url = HandleFromLink("https://www.threads.net/search")
	if author != "" || url != "" {
		t.Errorf("expected empty handle, got %q %q", author, url)
	}
}

func TestStripScript(t *testing.T) {
	code := BuildCode(testLink)
	stripped := StripScript(code)
	if strings.Contains(stripped, "<script") {
		t.Error("script tag survived StripScript")
	}
	if !strings.Contains(stripped, "<blockquote") {
		t.Error("blockquote must survive StripScript")
	}
	if got := Permalink(stripped); got != testLink {
		t.Errorf("permalink lost during StripScript: %q", got)
	}
}
