package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stocks-simulator/cache"
)

// Cached is a read-through cache in front of another Quoter. Cache errors
// fall back to the wrapped Quoter.
type Cached struct {
	next   Quoter
	store  cache.Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(next Quoter, store cache.Store, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, store: store, ttl: ttl, logger: logger}
}

func priceKey(symbol string) string {
	return fmt.Sprintf("stock:%s:price", symbol)
}

func (c *Cached) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	symbol = normalize(symbol)
	if c.store == nil || c.ttl <= 0 {
		return c.next.Lookup(ctx, symbol)
	}

	key := priceKey(symbol)
	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var q Quote
		if err := json.Unmarshal([]byte(raw), &q); err == nil && q.Price.IsPositive() {
			return &q, nil
		}
		c.logger.Warn("Discarding unreadable cached quote", "key", key)
	case !errors.Is(err, cache.ErrMiss):
		c.logger.Warn("Quote cache read failed", "key", key, "error", err)
	}

	q, err := c.next.Lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(q); err == nil {
		if err := c.store.Set(ctx, key, string(b), c.ttl); err != nil {
			c.logger.Warn("Quote cache write failed", "key", key, "error", err)
		}
	}
	return q, nil
}
