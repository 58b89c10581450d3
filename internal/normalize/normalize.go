package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// TruncateLimit caps stored article content; the storage column is
	// sized for it plus the ellipsis marker.
	TruncateLimit = 300

	// MinContentLength is the shortest merged text worth scoring.
	// Anything below carries too little signal for the sentiment model.
	MinContentLength = 30
)

// Merge joins a provider description and content into one cleaned text.
// Empty fields are treated as absent; residual markup is stripped first
// because the provider frequently leaves HTML fragments in both fields.
func Merge(description, content string) string {
	parts := make([]string, 0, 2)
	if d := strings.TrimSpace(stripMarkup(description)); d != "" {
		parts = append(parts, d)
	}
	if c := strings.TrimSpace(stripMarkup(content)); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, ". ")
}

// Valid reports whether merged text is long enough to score.
func Valid(text string) bool {
	return len([]rune(text)) >= MinContentLength
}

// Truncate cuts text to at most limit runes, backing off to the last
// whitespace boundary so no word is split, and appends an ellipsis
// marker. Text already within the limit is returned unchanged.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}

func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
