package lookup

import (
	"context"
	"time"

	"reader-go/internal/model"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	// DefaultCacheSize bounds each of the two lookup caches.
	DefaultCacheSize = 4096
	// DefaultSeenContentTTL limits how old a seen-content result may be.
	// Seen content grows while the user reads, dictionary entries do not.
	DefaultSeenContentTTL = time.Minute
)

type dictionaryKey struct {
	query   string
	context string
}

// CachedClient keeps recent lookup results so that the same word in the
// same sentence is not sent twice, e.g. after a phrase is deleted and
// selected again. Only successful results are cached, and seen-content
// results expire after a TTL.
type CachedClient struct {
	next    Dictionary
	entries *lru.Cache[dictionaryKey, []model.DictionaryEntry]
	seen    *expirable.LRU[string, []model.SeenContentOccurrence]
	logger  *zap.Logger
}

func NewCachedClient(next Dictionary, size int, seenTTL time.Duration, logger *zap.Logger) (*CachedClient, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if seenTTL <= 0 {
		seenTTL = DefaultSeenContentTTL
	}
	entries, err := lru.New[dictionaryKey, []model.DictionaryEntry](size)
	if err != nil {
		return nil, err
	}
	seen := expirable.NewLRU[string, []model.SeenContentOccurrence](size, nil, seenTTL)
	return &CachedClient{next: next, entries: entries, seen: seen, logger: logger}, nil
}

// LookupDictionary returns a private copy of the cached entries because
// callers pin senses in place.
func (c *CachedClient) LookupDictionary(ctx context.Context, query, sentence string) ([]model.DictionaryEntry, error) {
	key := dictionaryKey{query: query, context: sentence}
	if cached, ok := c.entries.Get(key); ok {
		c.logger.Debug("Dictionary cache hit", zap.String("query", query))
		return cloneEntries(cached), nil
	}
	entries, err := c.next.LookupDictionary(ctx, query, sentence)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, cloneEntries(entries))
	return entries, nil
}

func (c *CachedClient) LookupSeenContent(ctx context.Context, query string) ([]model.SeenContentOccurrence, error) {
	if cached, ok := c.seen.Get(query); ok {
		c.logger.Debug("Seen content cache hit", zap.String("query", query))
		return cached, nil
	}
	occurrences, err := c.next.LookupSeenContent(ctx, query)
	if err != nil {
		return nil, err
	}
	c.seen.Add(query, occurrences)
	return occurrences, nil
}

func (c *CachedClient) Len() int {
	return c.entries.Len() + c.seen.Len()
}

func cloneEntries(entries []model.DictionaryEntry) []model.DictionaryEntry {
	if entries == nil {
		return nil
	}
	out := make([]model.DictionaryEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
