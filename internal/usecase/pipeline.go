package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"StartupPulse/internal/dedup"
	"StartupPulse/internal/domain"
	"StartupPulse/internal/normalize"
	"StartupPulse/internal/ports"
)

const (
	initialLookbackDays = 30
	dailyLookbackDays   = 1
)

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Startups ports.StartupStore
	Articles ports.ArticleStore
	Source   ports.ArticleSource
	Scorer   ports.SentimentScorer
	Summary  ports.SummarySink
	Dedup    *dedup.Cache
	Retry    *RetryExecutor
	// Workers bounds the per-phase pool; 0 derives it from CPU count.
	Workers int
	Logger  *slog.Logger
}

// Pipeline fans per-startup ingestion out over a bounded worker pool in
// two sequential phases and folds every outcome into one RunSummary.
type Pipeline struct {
	startups ports.StartupStore
	articles ports.ArticleStore
	source   ports.ArticleSource
	scorer   ports.SentimentScorer
	summary  ports.SummarySink
	dedup    *dedup.Cache
	retry    *RetryExecutor
	workers  int
	logger   *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workers := deps.Workers
	if workers <= 0 {
		workers = defaultWorkerCount()
		logger.Info("auto-set worker count", "workers", workers)
	}

	retry := deps.Retry
	if retry == nil {
		retry = NewRetryExecutor(defaultMaxRetries, defaultRetryDelay, logger)
	}

	return &Pipeline{
		startups: deps.Startups,
		articles: deps.Articles,
		source:   deps.Source,
		scorer:   deps.Scorer,
		summary:  deps.Summary,
		dedup:    deps.Dedup,
		retry:    retry,
		workers:  workers,
		logger:   logger,
	}
}

func defaultWorkerCount() int {
	n := runtime.NumCPU() / 2
	if n < 2 {
		n = 2
	}
	if n > 10 {
		n = 10
	}
	return n
}

// Run executes one full ingestion run: phase 1 processes startups with
// no persisted articles over a 30-day window, phase 2 the remainder
// over a 1-day window. Phase 2 waits for phase 1 to drain because its
// startup list is derived from phase 1's completion state. A single
// startup's failure never aborts the run; every outcome lands in the
// returned summary.
func (p *Pipeline) Run(ctx context.Context) (domain.RunSummary, error) {
	start := time.Now()
	p.logger.Info("pipeline started", "workers", p.workers)

	p.dedup.Reset()

	missing, err := p.startups.FetchMissingStartups(ctx)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("fetch missing startups: %w", err)
	}
	p.logger.Info("missing startups found", "count", len(missing))

	results := p.runPhase(ctx, domain.PhaseInitial, missing, initialLookbackDays)

	all, err := p.startups.FetchStartups(ctx)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("fetch startups: %w", err)
	}

	missingIDs := make(map[string]struct{}, len(missing))
	for _, s := range missing {
		missingIDs[s.ID] = struct{}{}
	}
	existing := make([]domain.Startup, 0, len(all))
	for _, s := range all {
		if _, ok := missingIDs[s.ID]; !ok {
			existing = append(existing, s)
		}
	}
	p.logger.Info("existing startups found", "count", len(existing))

	results = append(results, p.runPhase(ctx, domain.PhaseDaily, existing, dailyLookbackDays)...)

	summary := domain.RunSummary{
		RunAt:         start,
		TotalTimeSec:  roundSeconds(time.Since(start)),
		TotalStartups: len(results),
		Results:       results,
	}

	if p.summary != nil {
		if path, err := p.summary.WriteSummary(ctx, summary); err != nil {
			p.logger.Error("write run summary", "error", err)
		} else {
			p.logger.Info("run summary saved", "path", path)
		}
	}

	p.logger.Info("pipeline completed",
		"total_time_sec", summary.TotalTimeSec,
		"succeeded", summary.Succeeded(),
		"failed", summary.Failed())

	return summary, nil
}

// runPhase submits one task per startup to a fresh bounded pool and
// gathers results as tasks complete, order-independent.
func (p *Pipeline) runPhase(ctx context.Context, phase domain.Phase, startups []domain.Startup, lookbackDays int) []domain.TaskResult {
	if len(startups) == 0 {
		return nil
	}

	g := new(errgroup.Group)
	g.SetLimit(p.workers)

	var mu sync.Mutex
	results := make([]domain.TaskResult, 0, len(startups))

	for _, s := range startups {
		s := s
		g.Go(func() error {
			res := p.processStartup(ctx, phase, s, lookbackDays)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}

	// Tasks report outcomes through results, never through errors.
	_ = g.Wait()
	return results
}

// processStartup runs one startup's pipeline under the retry executor
// and converts whatever happens into a TaskResult. Nothing escapes the
// task boundary.
func (p *Pipeline) processStartup(ctx context.Context, phase domain.Phase, s domain.Startup, lookbackDays int) domain.TaskResult {
	start := time.Now()
	logger := p.logger.With("startup", s.Name, "phase", phase)

	err := p.retry.Do(ctx, func(ctx context.Context) error {
		return p.ingest(ctx, logger, s, lookbackDays)
	})

	elapsed := roundSeconds(time.Since(start))
	result := domain.TaskResult{Name: s.Name, Phase: phase, Seconds: elapsed}

	switch {
	case err == nil:
		result.Status = domain.StatusSuccess
		logger.Info("startup completed", "time_sec", elapsed)
	case IsTransient(err):
		result.Status = domain.StatusDBError
		logger.Error("startup failed after retries", "time_sec", elapsed, "error", err)
	default:
		result.Status = domain.StatusFailed
		logger.Error("startup failed", "time_sec", elapsed, "error", err)
	}

	return result
}

// ingest is the per-startup pipeline: fetch, dedupe, normalize, score,
// store. All-or-nothing per startup on the storage side.
func (p *Pipeline) ingest(ctx context.Context, logger *slog.Logger, s domain.Startup, lookbackDays int) error {
	articles, err := p.source.Fetch(ctx, s.Name, s.Keywords, lookbackDays)
	if err != nil {
		return fmt.Errorf("fetch articles: %w", err)
	}
	if len(articles) == 0 {
		logger.Info("no articles found")
		return nil
	}

	fresh, err := p.dedup.FilterNew(ctx, articles)
	if err != nil {
		return fmt.Errorf("filter duplicates: %w", err)
	}
	if len(fresh) == 0 {
		logger.Info("no new articles after deduplication")
		return nil
	}

	texts := make([]string, 0, len(fresh))
	valid := make([]domain.RawArticle, 0, len(fresh))
	for _, a := range fresh {
		text := normalize.Merge(a.Description, a.Content)
		if !normalize.Valid(text) {
			continue
		}
		texts = append(texts, text)
		valid = append(valid, a)
	}
	if len(texts) == 0 {
		logger.Info("no valid article content")
		return nil
	}

	scores, err := p.scorer.ScoreBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("score articles: %w", err)
	}
	if len(scores) != len(texts) {
		return fmt.Errorf("scorer returned %d results for %d texts", len(scores), len(texts))
	}

	records := make([]domain.ArticleRecord, 0, len(valid))
	for i, a := range valid {
		title := a.Title
		if title == "" {
			title = "untitled"
		}
		records = append(records, domain.ArticleRecord{
			ID:             uuid.NewString(),
			Content:        normalize.Truncate(texts[i], normalize.TruncateLimit),
			PublishedAt:    a.PublishedAt,
			Sentiment:      scores[i].Label,
			SentimentScore: scores[i].Score,
			StartupID:      s.ID,
			Title:          title,
			URL:            a.URL,
		})
	}

	inserted, err := p.articles.InsertArticles(ctx, s.ID, records)
	if err != nil {
		return fmt.Errorf("insert articles: %w", err)
	}

	logger.Info("articles inserted", "count", inserted)
	return nil
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
