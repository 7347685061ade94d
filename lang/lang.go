// Package lang classifies code snippets by language and extracts topic
// tags from post text.
package lang

import "regexp"

// classifier pairs a language name with the pattern that identifies it.
type classifier struct {
	name    string
	pattern *regexp.Regexp
}

// classifiers run in order and the first match wins. The ordering is a
// deliberate tie-break between overlapping patterns (a snippet matching
// both the generic brace pattern and a JS keyword is classified by
// whichever rule comes first), so it is part of the contract.
var classifiers = []classifier{
	{"javascript", regexp.MustCompile(`\b(const|let|var|function|=>|console\.log|async|await)\b`)},
	{"python", regexp.MustCompile(`\b(def|import|from|class|if __name__|print\(|lambda)\b`)},
	{"java", regexp.MustCompile(`\b(public|private|class|void|static|extends|implements)\b`)},
	{"cpp", regexp.MustCompile(`\b(#include|iostream|std::|cout|cin|namespace)\b`)},
	{"csharp", regexp.MustCompile(`\b(using|namespace|public|private|class|void|string)\b`)},
	{"html", regexp.MustCompile(`(?i)</?[a-z][\s\S]*>`)},
	{"css", regexp.MustCompile(`\{[^}]*:[^}]*\}`)},
	{"sql", regexp.MustCompile(`(?i)\b(SELECT|FROM|WHERE|INSERT|UPDATE|DELETE|CREATE|TABLE)\b`)},
	{"bash", regexp.MustCompile(`\b(echo|export|cd|ls|grep|awk|sed)\b`)},
	{"json", regexp.MustCompile(`^\s*[\{\[].*[\}\]]\s*$`)},
}

// Detect returns the language of a code snippet, or "unknown" if no
// classifier matches.
func Detect(code string) string {
	for _, c := range classifiers {
		if c.pattern.MatchString(code) {
			return c.name
		}
	}
	return "unknown"
}

// hashtagPattern matches #tags made of word characters plus the CJK range.
var hashtagPattern = regexp.MustCompile(`#([a-zA-Z0-9_\x{4e00}-\x{9fa5}]+)`)

// keyword is a language or framework name probed for in post text.
// pattern is pre-escaped where a word-boundary wrap would be broken
// ("C++" ends in non-word characters, so \bC\+\+\b never matches).
type keyword struct {
	display string
	pattern *regexp.Regexp
}

var keywords = []keyword{
	{"JavaScript", regexp.MustCompile(`(?i)\bJavaScript\b`)},
	{"Python", regexp.MustCompile(`(?i)\bPython\b`)},
	{"Java", regexp.MustCompile(`(?i)\bJava\b`)},
	{"C++", regexp.MustCompile(`(?i)C\+\+`)},
	{"C#", regexp.MustCompile(`(?i)\bC#\b`)},
	{"HTML", regexp.MustCompile(`(?i)\bHTML\b`)},
	{"CSS", regexp.MustCompile(`(?i)\bCSS\b`)},
	{"SQL", regexp.MustCompile(`(?i)\bSQL\b`)},
	{"TypeScript", regexp.MustCompile(`(?i)\bTypeScript\b`)},
	{"React", regexp.MustCompile(`(?i)\bReact\b`)},
	{"Vue", regexp.MustCompile(`(?i)\bVue\b`)},
	{"Angular", regexp.MustCompile(`(?i)\bAngular\b`)},
}

// ExtractTags collects hashtags and mentioned language/framework names
// from free text. Keyword tags keep the casing of the keyword list, not
// the input. The result is de-duplicated; order is first occurrence.
func ExtractTags(text string) []string {
	var tags []string
	seen := make(map[string]bool)

	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}

	for _, k := range keywords {
		if k.pattern.MatchString(text) {
			add(k.display)
		}
	}

	return tags
}
