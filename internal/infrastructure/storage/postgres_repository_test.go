package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StartupPulse/internal/domain"
)

func TestBuildInsertBatches(t *testing.T) {
	t.Parallel()

	now := time.Now()
	records := []domain.ArticleRecord{
		{
			ID:             "id-1",
			Content:        "Acme raises a new round",
			PublishedAt:    now,
			Sentiment:      domain.SentimentPositive,
			SentimentScore: 0.73,
			StartupID:      "s-1",
			Title:          "Acme news",
			URL:            "https://n.example/1",
		},
		{
			ID:             "id-2",
			Content:        "Acme under investigation",
			PublishedAt:    now,
			Sentiment:      domain.SentimentNegative,
			SentimentScore: -0.41,
			StartupID:      "s-1",
			Title:          "untitled",
			URL:            "https://n.example/2",
		},
	}

	query, args, err := buildInsert(records)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, `INSERT INTO "Articles"`))
	assert.Contains(t, query, `"publishedAt"`)
	assert.Contains(t, query, `"sentimentScore"`)
	assert.Contains(t, query, `"startupId"`)
	assert.Contains(t, query, "$16", "two records bind sixteen placeholders")
	assert.NotContains(t, query, "$17")

	require.Len(t, args, 16)
	assert.Equal(t, "id-1", args[0])
	assert.Equal(t, "https://n.example/1", args[7])
	assert.Equal(t, "id-2", args[8])
	assert.Equal(t, -0.41, args[12])
}

func TestStartupQueriesShape(t *testing.T) {
	t.Parallel()

	query, args, err := startupSelect().ToSql()
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Contains(t, query, `FROM "Startups" s`)
	assert.Contains(t, query, `COALESCE(s."findingKeywords", '{}')`)

	missing, _, err := startupSelect().
		Where(`s.id NOT IN (SELECT "startupId" FROM ` + articlesTable + `)`).
		ToSql()
	require.NoError(t, err)
	assert.Contains(t, missing, `NOT IN (SELECT "startupId" FROM "Articles")`)
}
