package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"StartupPulse/internal/domain"
	"StartupPulse/internal/ports"
)

// Writer persists each run's summary as a timestamped JSON file. Files
// are never overwritten; one run, one artifact.
type Writer struct {
	dir string
}

var _ ports.SummarySink = (*Writer)(nil)

// NewWriter targets the given directory, created on first write.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "logs"
	}
	return &Writer{dir: dir}
}

// WriteSummary marshals the summary and returns the written path.
func (w *Writer) WriteSummary(ctx context.Context, summary domain.RunSummary) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create summary dir: %w", err)
	}

	name := fmt.Sprintf("pipeline_summary_%s.json", summary.RunAt.Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	return path, nil
}
