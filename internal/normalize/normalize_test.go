package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		description string
		content     string
		want        string
	}{
		{
			name:        "both present",
			description: "Acme raises funds",
			content:     "The round was led by Example Capital.",
			want:        "Acme raises funds. The round was led by Example Capital.",
		},
		{
			name:        "description only",
			description: "Acme raises funds",
			content:     "",
			want:        "Acme raises funds",
		},
		{
			name:        "content only",
			description: "  ",
			content:     "The round was led by Example Capital.",
			want:        "The round was led by Example Capital.",
		},
		{
			name:        "both empty",
			description: "",
			content:     "",
			want:        "",
		},
		{
			name:        "markup stripped",
			description: "<p>Acme <b>raises</b> funds</p>",
			content:     "Deal closed &amp; announced",
			want:        "Acme raises funds. Deal closed & announced",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.description, tt.content))
		})
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.False(t, Valid(""))
	assert.False(t, Valid("too short to score"))
	assert.True(t, Valid(strings.Repeat("a", MinContentLength)))
}

func TestTruncateIdentityWithinLimit(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 50)
	text = strings.TrimSpace(text) // 249 chars

	assert.Equal(t, text, Truncate(text, TruncateLimit))

	padded := "  " + text + "  "
	assert.Equal(t, padded, Truncate(padded, TruncateLimit), "within-limit input passes through untouched")
}

func TestTruncateCutsAtWordBoundary(t *testing.T) {
	t.Parallel()

	text := strings.TrimSpace(strings.Repeat("alpha beta gamma ", 40)) // well over 300

	got := Truncate(text, TruncateLimit)

	assert.LessOrEqual(t, len([]rune(got)), TruncateLimit+3)
	assert.True(t, strings.HasSuffix(got, "..."))

	prefix := strings.TrimSuffix(got, "...")
	assert.True(t, strings.HasPrefix(text, prefix))
	// the cut never splits a word: the next source character is a space
	assert.Equal(t, byte(' '), text[len(prefix)])
}

func TestTruncateWithoutSpaces(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 400)

	got := Truncate(text, TruncateLimit)

	assert.Equal(t, strings.Repeat("x", TruncateLimit)+"...", got)
}
