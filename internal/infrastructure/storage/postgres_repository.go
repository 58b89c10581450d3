package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"StartupPulse/internal/domain"
	"StartupPulse/internal/ports"
)

// The Articles table carries a UNIQUE constraint on url; it is the
// authoritative guard against duplicate inserts across processes.
// Identifiers are quoted because the schema uses camelCase columns.
const (
	startupsTable = `"Startups"`
	articlesTable = `"Articles"`
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository reads seeded startups and writes scored articles.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.StartupStore = (*PostgresRepository)(nil)
var _ ports.ArticleStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FetchStartups returns every seeded startup with its search keywords.
func (r *PostgresRepository) FetchStartups(ctx context.Context) ([]domain.Startup, error) {
	query, args, err := startupSelect().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build startups query: %w", err)
	}
	return r.queryStartups(ctx, query, args)
}

// FetchMissingStartups returns startups without a single persisted article.
func (r *PostgresRepository) FetchMissingStartups(ctx context.Context) ([]domain.Startup, error) {
	query, args, err := startupSelect().
		Where(`s.id NOT IN (SELECT "startupId" FROM ` + articlesTable + `)`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build missing startups query: %w", err)
	}
	return r.queryStartups(ctx, query, args)
}

func startupSelect() sq.SelectBuilder {
	return psql.
		Select("s.id", "s.name", `COALESCE(s."findingKeywords", '{}')`).
		From(startupsTable + " s")
}

func (r *PostgresRepository) queryStartups(ctx context.Context, query string, args []any) ([]domain.Startup, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query startups: %w", err)
	}
	defer rows.Close()

	var startups []domain.Startup
	for rows.Next() {
		var s domain.Startup
		if err := rows.Scan(&s.ID, &s.Name, pq.Array(&s.Keywords)); err != nil {
			return nil, fmt.Errorf("scan startup: %w", err)
		}
		startups = append(startups, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return startups, nil
}

// FetchExistingURLs returns all persisted article URLs for dedup-cache
// hydration.
func (r *PostgresRepository) FetchExistingURLs(ctx context.Context) ([]string, error) {
	query, args, err := psql.
		Select("url").
		From(articlesTable).
		Where("url IS NOT NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build urls query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return urls, nil
}

// InsertArticles commits all records for one startup in a single
// transaction. Any insertion error rolls the whole batch back, so a
// startup's articles land all-or-nothing; other startups run under
// their own transactions and are unaffected.
func (r *PostgresRepository) InsertArticles(ctx context.Context, startupID string, records []domain.ArticleRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	query, args, err := buildInsert(records)
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx for startup %s: %w", startupID, err)
	}
	// Rollback after a successful commit is a no-op; this guarantees
	// the connection is released on every exit path.
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("insert articles for startup %s: %w", startupID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit articles for startup %s: %w", startupID, err)
	}

	return len(records), nil
}

func buildInsert(records []domain.ArticleRecord) (string, []any, error) {
	builder := psql.
		Insert(articlesTable).
		Columns("id", "content", `"publishedAt"`, "sentiment", `"sentimentScore"`, `"startupId"`, "title", "url")

	for _, rec := range records {
		builder = builder.Values(
			rec.ID,
			rec.Content,
			rec.PublishedAt,
			rec.Sentiment,
			rec.SentimentScore,
			rec.StartupID,
			rec.Title,
			rec.URL,
		)
	}

	return builder.ToSql()
}
