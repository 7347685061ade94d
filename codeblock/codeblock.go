// Package codeblock pulls candidate code fragments out of a post.
//
// Four independent passes run unconditionally over the DOM subtree and the
// raw post text, and their outputs are concatenated. The passes overlap on
// purpose (the same code may surface as both a pre tag and a monospace
// span): the extractor favours completeness over precision and leaves
// further de-duplication to the caller.
package codeblock

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"threadsaver/lang"
)

// Block types, in the order their passes run.
const (
	TypeHTMLTag       = "html_tag"
	TypeMarkdownBlock = "markdown_block"
	TypeInline        = "inline"
	TypeMonospace     = "monospace"
)

// Block is one extracted code fragment.
type Block struct {
	Type     string `json:"type"`
	Code     string `json:"code"`
	Language string `json:"language"`
	Count    int    `json:"count,omitempty"` // inline blocks: number of joined spans
	Index    int    `json:"index"`           // 1-based, contiguous across passes
}

// minCodeLen filters out trivially short fragments in the DOM passes.
const minCodeLen = 5

var (
	fencedPattern = regexp.MustCompile("```(\\w*)\\n([\\s\\S]*?)```")
	inlinePattern = regexp.MustCompile("`([^`\n]{2,})`")
)

// Extract runs all four passes against the post container and its raw
// text. container may be nil when no DOM subtree is available, in which
// case only the text passes run.
func Extract(container *goquery.Selection, fallbackText string) []Block {
	var blocks []Block

	// Pass 1: pre/code elements.
	if container != nil {
		container.Find("pre, code").Each(func(_ int, sel *goquery.Selection) {
			code := strings.TrimSpace(sel.Text())
			if len(code) > minCodeLen {
				blocks = append(blocks, Block{
					Type:     TypeHTMLTag,
					Code:     code,
					Language: lang.Detect(code),
					Index:    len(blocks) + 1,
				})
			}
		})
	}

	// Pass 2: fenced markdown blocks in the raw text, with an optional
	// language tag after the opening fence.
	for _, m := range fencedPattern.FindAllStringSubmatch(fallbackText, -1) {
		code := strings.TrimSpace(m[2])
		language := m[1]
		if language == "" {
			language = lang.Detect(code)
		}
		blocks = append(blocks, Block{
			Type:     TypeMarkdownBlock,
			Code:     code,
			Language: language,
			Index:    len(blocks) + 1,
		})
	}

	// Pass 3: all inline backtick spans joined into one block.
	var inline []string
	for _, m := range inlinePattern.FindAllStringSubmatch(fallbackText, -1) {
		inline = append(inline, m[1])
	}
	if len(inline) > 0 {
		blocks = append(blocks, Block{
			Type:     TypeInline,
			Code:     strings.Join(inline, "\n"),
			Language: "mixed",
			Count:    len(inline),
			Index:    len(blocks) + 1,
		})
	}

	// Pass 4: monospace-styled elements. The only pass that suppresses
	// exact-text duplicates of earlier blocks.
	if container != nil {
		container.Find(`[style*="monospace"]`).Each(func(_ int, sel *goquery.Selection) {
			code := strings.TrimSpace(sel.Text())
			if len(code) <= minCodeLen || hasCode(blocks, code) {
				return
			}
			blocks = append(blocks, Block{
				Type:     TypeMonospace,
				Code:     code,
				Language: lang.Detect(code),
				Index:    len(blocks) + 1,
			})
		})
	}

	return blocks
}

func hasCode(blocks []Block, code string) bool {
	for _, b := range blocks {
		if b.Code == code {
			return true
		}
	}
	return false
}
