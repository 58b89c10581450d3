package ports

import (
	"context"
	"time"

	"StartupPulse/internal/domain"
)

// ArticleSource pulls raw articles for one startup from the news provider.
// Implementations never surface provider failures as errors: they log and
// return whatever was gathered before the failure.
type ArticleSource interface {
	Fetch(ctx context.Context, name string, keywords []string, lookbackDays int) ([]domain.RawArticle, error)
}

// StartupStore reads the seeded startup set.
type StartupStore interface {
	FetchStartups(ctx context.Context) ([]domain.Startup, error)
	// FetchMissingStartups returns startups with zero persisted articles.
	FetchMissingStartups(ctx context.Context) ([]domain.Startup, error)
}

// ArticleStore persists scored articles and exposes the URL set for
// dedup-cache hydration.
type ArticleStore interface {
	FetchExistingURLs(ctx context.Context) ([]string, error)
	// InsertArticles commits all records for one startup in a single
	// transaction and reports how many rows went in.
	InsertArticles(ctx context.Context, startupID string, records []domain.ArticleRecord) (int, error)
}

// SentimentScorer batch-scores normalized texts. The response keeps the
// input's length and order.
type SentimentScorer interface {
	ScoreBatch(ctx context.Context, texts []string) ([]domain.SentimentResult, error)
}

// SummarySink stores the per-run summary artifact and returns its location.
type SummarySink interface {
	WriteSummary(ctx context.Context, summary domain.RunSummary) (string, error)
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
