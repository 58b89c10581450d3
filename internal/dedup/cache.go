package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"StartupPulse/internal/domain"
)

// URLSource provides the persisted URL set used to hydrate the cache.
type URLSource interface {
	FetchExistingURLs(ctx context.Context) ([]string, error)
}

// Cache is the run-scoped set of known article URLs. It hydrates from
// storage once per run on first use, and afterwards only grows. One lock
// covers the whole check-then-add in FilterNew, so two startups racing
// within a run cannot both pass the same URL through to storage. The
// storage UNIQUE constraint on url stays the authority across processes.
type Cache struct {
	source URLSource
	logger *slog.Logger

	mu       sync.Mutex
	urls     map[string]struct{}
	hydrated bool
}

// NewCache builds an empty cache over the given URL source.
func NewCache(source URLSource, logger *slog.Logger) *Cache {
	return &Cache{
		source: source,
		logger: logger,
		urls:   map[string]struct{}{},
	}
}

// Reset drops all cached URLs; the next FilterNew hydrates from storage
// again. The orchestrator calls this at the start of every run.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls = map[string]struct{}{}
	c.hydrated = false
	c.debug("url cache reset")
}

// FilterNew returns the articles whose URL is unseen, then immediately
// folds those URLs back into the set. Applying it twice to the same
// input therefore yields nothing the second time. Articles without a
// URL are dropped outright.
func (c *Cache) FilterNew(ctx context.Context, articles []domain.RawArticle) ([]domain.RawArticle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.hydrateLocked(ctx); err != nil {
		return nil, err
	}

	fresh := make([]domain.RawArticle, 0, len(articles))
	for _, a := range articles {
		if a.URL == "" {
			continue
		}
		if _, seen := c.urls[a.URL]; seen {
			continue
		}
		c.urls[a.URL] = struct{}{}
		fresh = append(fresh, a)
	}

	c.debug("filtered duplicates", "in", len(articles), "new", len(fresh))
	return fresh, nil
}

// Add records URLs as seen without going through FilterNew.
func (c *Cache) Add(urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range urls {
		if u != "" {
			c.urls[u] = struct{}{}
		}
	}
}

// Len reports the current number of known URLs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.urls)
}

func (c *Cache) hydrateLocked(ctx context.Context) error {
	if c.hydrated {
		return nil
	}

	if c.source != nil {
		urls, err := c.source.FetchExistingURLs(ctx)
		if err != nil {
			return fmt.Errorf("hydrate url cache: %w", err)
		}
		for _, u := range urls {
			if u != "" {
				c.urls[u] = struct{}{}
			}
		}
		c.debug("url cache hydrated", "urls", len(c.urls))
	}

	c.hydrated = true
	return nil
}

func (c *Cache) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
