package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"StartupPulse/internal/config"
	"StartupPulse/internal/domain"
	"StartupPulse/internal/ports"
)

const requestTimeout = 30 * time.Second

// Client scores article texts through a hosted FinBERT-style inference
// endpoint. It owns no retry logic: a scoring failure fails the whole
// startup task and is handled at the task boundary.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

var _ ports.SentimentScorer = (*Client)(nil)

// NewClient builds a reusable scorer client from configuration.
func NewClient(cfg config.SentimentConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// classProb is one class probability in the model response. The model
// returns, per input text, the full distribution over
// negative/neutral/positive.
type classProb struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ScoreBatch scores texts in one call. The result keeps input order:
// the label is the most probable class and the score is the
// probability-weighted sum with weights -1/0/+1, so it always lands in
// [-1, 1] for a valid distribution.
func (c *Client) ScoreBatch(ctx context.Context, texts []string) ([]domain.SentimentResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any{"inputs": texts})
	if err != nil {
		return nil, fmt.Errorf("marshal inputs: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("score batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("scorer returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var distributions [][]classProb
	if err := json.NewDecoder(resp.Body).Decode(&distributions); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(distributions) != len(texts) {
		return nil, fmt.Errorf("scorer returned %d results for %d texts", len(distributions), len(texts))
	}

	results := make([]domain.SentimentResult, len(distributions))
	for i, dist := range distributions {
		if len(dist) == 0 {
			return nil, fmt.Errorf("scorer returned an empty distribution for text %d", i)
		}
		results[i] = reduce(dist)
	}
	return results, nil
}

// reduce collapses a class distribution into (argmax label, weighted score).
func reduce(dist []classProb) domain.SentimentResult {
	var result domain.SentimentResult
	best := -1.0

	for _, p := range dist {
		label := strings.ToLower(p.Label)
		switch label {
		case domain.SentimentPositive:
			result.Score += p.Score
		case domain.SentimentNegative:
			result.Score -= p.Score
		}
		if p.Score > best {
			best = p.Score
			result.Label = label
		}
	}

	return result
}
