package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		title    string
		expected string
	}{
		{"Hello, World! 2024", "hello-world-2024"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Go---Concurrency___Patterns", "go-concurrency-patterns"},
		{"UPPER case", "upper-case"},
		{"!!!", ""},
		{"Café au lait", "caf-au-lait"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.title))
		})
	}
}

func TestSlugifyIsDeterministic(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Slugify("Same Title"), Slugify("Same Title"))
}

func TestSlugWithSuffix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello-world-2024-1700000000000", SlugWithSuffix("hello-world-2024", 1700000000000))
}

func TestReadingTime(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		words    int
		expected int
	}{
		{"empty", 0, 0},
		{"one word", 1, 1},
		{"exactly 200", 200, 1},
		{"201 words", 201, 2},
		{"400 words", 400, 2},
		{"1001 words", 1001, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.TrimSpace(strings.Repeat("word ", tt.words))
			assert.Equal(t, tt.expected, ReadingTime(text))
		})
	}
}

func TestWordCount_CollapsesWhitespace(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 3, WordCount("  one\ttwo\n\nthree  "))
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()
	html, err := RenderMarkdown("# Title\n\nSome **bold** text and https://example.com")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, `<a href="https://example.com">`)
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "short", Truncate("short", 100))
}
