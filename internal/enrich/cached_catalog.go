package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"shelfsmart/internal/book"
	"shelfsmart/internal/metrics"
)

// ErrCacheMiss is returned by Cache.Get for absent keys.
var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type cacheEntry struct {
	Found bool        `json:"found"`
	Match *book.Match `json:"match,omitempty"`
}

// CachedCatalog is a read-through cache in front of a Catalog. Matches and
// empty searches are cached; errors are not. Cache failures fall through to
// the catalog.
type CachedCatalog struct {
	next   Catalog
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedCatalog(next Catalog, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCatalog{next: next, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(title, author string) string {
	norm := strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(author))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

func (c *CachedCatalog) FindBook(ctx context.Context, title, author string) (*book.Match, error) {
	key := cacheKey(title, author)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var entry cacheEntry
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
			metrics.CatalogCacheTotal.WithLabelValues("hit").Inc()
			if !entry.Found {
				return nil, nil
			}
			return entry.Match, nil
		}
		metrics.CatalogCacheTotal.WithLabelValues("error").Inc()
	case errors.Is(err, ErrCacheMiss):
		metrics.CatalogCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.CatalogCacheTotal.WithLabelValues("error").Inc()
		c.logger.Warn("catalog cache read failed", zap.Error(err))
	}

	m, err := c.next.FindBook(ctx, title, author)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(cacheEntry{Found: m != nil, Match: m}); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return m, nil
}
