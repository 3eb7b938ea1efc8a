package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scholarhunt/scholarhunt/internal/store"
)

// recordCache is a time-boxed cache over Reader.ReadAll. Store read
// failures degrade to an empty result set rather than an error.
type recordCache struct {
	reader Reader
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	records []store.Record
	fetched time.Time
}

func newRecordCache(reader Reader, ttl time.Duration, logger *zap.Logger) *recordCache {
	return &recordCache{reader: reader, ttl: ttl, logger: logger}
}

// get returns a copy of the cached records, refreshing when stale.
func (c *recordCache) get(ctx context.Context) []store.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fetched.IsZero() || time.Since(c.fetched) > c.ttl {
		records, err := c.reader.ReadAll(ctx)
		if err != nil {
			c.logger.Warn("reading records failed, serving empty set", zap.Error(err))
			records = nil
		}
		c.records = records
		c.fetched = time.Now()
	}

	out := make([]store.Record, len(c.records))
	copy(out, c.records)
	return out
}

// invalidate forces the next get to hit the store. Called after a
// triggered run so freshly appended rows show up immediately.
func (c *recordCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched = time.Time{}
}
