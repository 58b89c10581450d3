package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"StartupPulse/internal/config"
	"StartupPulse/internal/domain"
	"StartupPulse/internal/ports"
)

const (
	defaultBaseURL = "https://newsapi.org/v2/everything"
	pageSize       = 100
	requestTimeout = 15 * time.Second
	pageDelay      = 1200 * time.Millisecond
	userAgent      = "StartupPulse/1.0"
)

// Client pulls provider search results page by page, rotating the API
// key per request round-robin so a single rate-limited key does not
// stall the whole pool.
type Client struct {
	baseURL string
	keys    []string
	next    atomic.Uint64
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.ArticleSource = (*Client)(nil)

// NewClient wires the provider endpoint, key pool, and retrying transport.
func NewClient(cfg config.NewsAPIConfig, logger *slog.Logger) (*Client, error) {
	if len(cfg.Keys) == 0 {
		return nil, errors.New("newsapi: no API keys configured")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		keys:    cfg.Keys,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: newRetryTransport(nil, 3, time.Second),
		},
		limiter: rate.NewLimiter(rate.Every(pageDelay), 1),
		logger:  logger,
	}, nil
}

// Fetch pages through the provider until a page comes back empty, short,
// or irrecoverably broken. Request failures are logged and swallowed:
// whatever was gathered up to that point is returned without an error.
func (c *Client) Fetch(ctx context.Context, name string, keywords []string, lookbackDays int) ([]domain.RawArticle, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -lookbackDays)

	all := make([]domain.RawArticle, 0, pageSize)
	for page := 1; ; page++ {
		if page > 1 {
			if err := c.limiter.Wait(ctx); err != nil {
				return all, nil
			}
		}

		items, err := c.fetchPage(ctx, name, keywords, from, to, page)
		if err != nil {
			c.warn("request failed, returning partial results",
				"startup", name, "page", page, "error", err)
			return all, nil
		}
		if len(items) == 0 {
			break
		}

		all = append(all, items...)
		c.debug("fetched page", "startup", name, "page", page, "count", len(items))

		if len(items) < pageSize {
			break
		}
	}

	return all, nil
}

// BuildQuery assembles the disjunctive provider query: the exact name,
// qualified variants, and each keyword quoted, joined with OR.
func BuildQuery(name string, keywords []string) string {
	terms := []string{
		fmt.Sprintf("%q", name),
		fmt.Sprintf("%q startup", name),
		fmt.Sprintf("%q company", name),
		fmt.Sprintf("%q India", name),
	}
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			terms = append(terms, fmt.Sprintf("%q", kw))
		}
	}
	return strings.Join(terms, " OR ")
}

func (c *Client) nextKey() string {
	n := c.next.Add(1) - 1
	return c.keys[int(n%uint64(len(c.keys)))]
}

type wireArticle struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	PublishedAt string `json:"publishedAt"`
}

func (c *Client) fetchPage(ctx context.Context, name string, keywords []string, from, to time.Time, page int) ([]domain.RawArticle, error) {
	params := url.Values{}
	params.Set("q", BuildQuery(name, keywords))
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	params.Set("sortBy", "publishedAt")
	params.Set("apiKey", c.nextKey())
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned %s", resp.Status)
	}

	var body struct {
		Articles []wireArticle `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode page %d: %w", page, err)
	}

	items := make([]domain.RawArticle, 0, len(body.Articles))
	for _, a := range body.Articles {
		publishedAt, _ := time.Parse(time.RFC3339, a.PublishedAt)
		items = append(items, domain.RawArticle{
			URL:         a.URL,
			Title:       a.Title,
			Description: a.Description,
			Content:     a.Content,
			PublishedAt: publishedAt,
		})
	}
	return items, nil
}

// retryTransport retries GETs on 429/5xx responses and transport errors
// with exponential backoff, mirroring the provider's documented
// throttling behavior. Requests here carry no body, so replays are safe.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func newRetryTransport(base http.RoundTripper, retries int, backoff time.Duration) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{base: base, retries: retries, backoff: backoff}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; ; attempt++ {
		resp, err = t.base.RoundTrip(req)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt >= t.retries {
			return resp, err
		}

		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		wait := t.backoff << attempt
		select {
		case <-time.After(wait):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
