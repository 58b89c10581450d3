package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"StartupPulse/internal/config"
	"StartupPulse/internal/dedup"
	"StartupPulse/internal/infrastructure/newsapi"
	"StartupPulse/internal/infrastructure/report"
	"StartupPulse/internal/infrastructure/scheduler"
	"StartupPulse/internal/infrastructure/sentiment"
	"StartupPulse/internal/infrastructure/storage"
	"StartupPulse/internal/logging"
	"StartupPulse/internal/usecase"
)

// Application wires configuration to the pipeline and its adapters.
type Application struct {
	cfg       config.Config
	db        *sql.DB
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	logger    *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := storage.NewPostgresRepository(db)

	source, err := newsapi.NewClient(cfg.NewsAPI, baseLogger.With("component", "newsapi"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Startups: repo,
		Articles: repo,
		Source:   source,
		Scorer:   sentiment.NewClient(cfg.Sentiment),
		Summary:  report.NewWriter(cfg.Report.Dir),
		Dedup:    dedup.NewCache(repo, baseLogger.With("component", "dedup")),
		Retry: usecase.NewRetryExecutor(
			cfg.Pipeline.MaxRetries,
			cfg.Pipeline.Delay(),
			baseLogger.With("component", "retry"),
		),
		Workers: cfg.Pipeline.Workers,
		Logger:  baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Every())

	return &Application{
		cfg:       cfg,
		db:        db,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler")),
		logger:    baseLogger,
	}, nil
}

// Run starts the recurring pipeline and blocks until the context ends.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}

// RunOnce executes a single pipeline run.
func (a *Application) RunOnce(ctx context.Context) error {
	_, err := a.pipeline.Run(ctx)
	return err
}

// Close releases the database pool.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
