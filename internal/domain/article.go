package domain

import "time"

// Startup is a tracked company whose news coverage the pipeline monitors.
// Rows are seeded externally; the pipeline only reads them.
type Startup struct {
	ID       string
	Name     string
	Keywords []string
}

// RawArticle is a single provider search hit before any cleaning.
// It lives only for the duration of one fetch cycle.
type RawArticle struct {
	URL         string
	Title       string
	Description string
	Content     string
	PublishedAt time.Time
}

// SentimentResult is one scored text: a class label plus the
// probability-weighted score in [-1, 1].
type SentimentResult struct {
	Label string
	Score float64
}

// Sentiment labels produced by the scorer.
const (
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentPositive = "positive"
)

// ArticleRecord is the persisted article row. URL is globally unique
// across all startups; the storage constraint is the authority, the
// dedup cache only keeps duplicates from reaching it within a run.
type ArticleRecord struct {
	ID             string
	Content        string
	PublishedAt    time.Time
	Sentiment      string
	SentimentScore float64
	StartupID      string
	Title          string
	URL            string
}

// Phase tells which fetch window an entity was processed under.
type Phase string

const (
	PhaseInitial Phase = "initial" // 30-day lookback for startups with no articles yet
	PhaseDaily   Phase = "daily"   // 1-day lookback for everyone else
)

// TaskStatus is the terminal outcome of one startup's pipeline task.
type TaskStatus string

const (
	StatusSuccess TaskStatus = "success"
	StatusDBError TaskStatus = "db_error" // transient failure that outlived the retry budget
	StatusFailed  TaskStatus = "failed"
)

// TaskResult records one startup's outcome within a run.
type TaskResult struct {
	Name    string     `json:"name"`
	Phase   Phase      `json:"phase"`
	Status  TaskStatus `json:"status"`
	Seconds float64    `json:"time"`
}

// RunSummary aggregates every TaskResult of a pipeline run. It is built
// once after both phases drain and never mutated afterwards.
type RunSummary struct {
	RunAt         time.Time    `json:"run_at"`
	TotalTimeSec  float64      `json:"total_time_sec"`
	TotalStartups int          `json:"total_startups"`
	Results       []TaskResult `json:"results"`
}

// Succeeded counts tasks that completed cleanly.
func (s RunSummary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == StatusSuccess {
			n++
		}
	}
	return n
}

// Failed counts tasks that ended in db_error or failed.
func (s RunSummary) Failed() int {
	return len(s.Results) - s.Succeeded()
}
