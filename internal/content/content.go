// Package content derives slugs, reading times and rendered HTML from post text.
package content

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// WordsPerMinute is the reading speed used for reading time estimates.
const WordsPerMinute = 200

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases title and collapses every run of characters outside
// [a-z0-9] into a single hyphen, trimming hyphens at both ends.
func Slugify(title string) string {
	slug := nonSlugRun.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// SlugWithSuffix appends a numeric de-duplication suffix to slug.
func SlugWithSuffix(slug string, suffix int64) string {
	return fmt.Sprintf("%s-%d", slug, suffix)
}

// WordCount counts whitespace separated fields in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadingTime returns ceil(words/200). Any non-blank text reads in at least a minute.
func ReadingTime(text string) int {
	words := WordCount(text)
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / WordsPerMinute))
}

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(),
	),
)

// RenderMarkdown converts markdown source into HTML.
func RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
