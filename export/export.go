// Package export serializes the saved collection to the two interchange
// formats and reads both (plus raw JSON) back in.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"threadsaver/article"
	"threadsaver/embed"
)

// Simple writes the simple format: a JS constant holding an array of
// single-quoted, script-stripped embed markup strings, one per article.
// Articles without embed code are skipped.
func Simple(w io.Writer, articles []article.Article) error {
	var lines []string
	for _, a := range articles {
		if a.EmbedCode == "" {
			continue
		}
		code := embed.StripScript(a.EmbedCode)
		code = strings.ReplaceAll(code, `'`, `\'`)
		lines = append(lines, "            '"+code+"'")
	}
	if len(lines) == 0 {
		return errors.New("no articles with embed code to export")
	}

	_, err := fmt.Fprintf(w, "        const posts = [\n%s,\n        ];", strings.Join(lines, ",\n"))
	return err
}

// fullRecord is the shape of one entry in the full export format.
type fullRecord struct {
	EmbedCode      string   `json:"embedCode"`
	PostLink       string   `json:"postLink"`
	Author         string   `json:"author"`
	Content        string   `json:"content"`
	Timestamp      string   `json:"timestamp"`
	TimestampTitle string   `json:"timestampTitle"`
	SavedAt        string   `json:"savedAt"`
	Tags           []string `json:"tags"`
}

// Full writes the full format: a JS constant holding a JSON array of
// record objects with script-stripped embed code.
func Full(w io.Writer, articles []article.Article) error {
	records := make([]fullRecord, 0, len(articles))
	for _, a := range articles {
		records = append(records, fullRecord{
			EmbedCode:      embed.StripScript(a.EmbedCode),
			PostLink:       a.PostLink,
			Author:         a.Author,
			Content:        a.Content,
			Timestamp:      a.Timestamp,
			TimestampTitle: a.TimestampTitle,
			SavedAt:        a.SavedAt,
			Tags:           a.Tags,
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "const threadsPosts = %s;", data)
	return err
}
