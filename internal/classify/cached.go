package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ppiankov/hazardscore/internal/cache"
)

// CachedClassifier memoises predictions of an underlying classifier
type CachedClassifier struct {
	next  Classifier
	cache cache.Cache
	model string
	ttl   time.Duration
}

// NewCachedClassifier wraps next with c. A nil cache returns next unchanged.
func NewCachedClassifier(next Classifier, c cache.Cache, model string, ttl time.Duration) Classifier {
	if c == nil {
		return next
	}
	return &CachedClassifier{
		next:  next,
		cache: c,
		model: model,
		ttl:   ttl,
	}
}

// Name returns the underlying classifier name
func (c *CachedClassifier) Name() string {
	return c.next.Name()
}

// IsAvailable delegates to the underlying classifier
func (c *CachedClassifier) IsAvailable(ctx context.Context) bool {
	return c.next.IsAvailable(ctx)
}

// Classify returns a cached prediction when present, otherwise classifies and stores.
// Cache failures are logged and never fail the request.
func (c *CachedClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	key := cache.CacheKey(c.next.Name(), c.model, text)

	if raw, ok := c.cache.Get(key); ok {
		var pred Prediction
		if err := json.Unmarshal(raw, &pred); err == nil {
			return &pred, nil
		}
		_ = c.cache.Delete(key)
	}

	pred, err := c.next.Classify(ctx, text)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(pred)
	if err != nil {
		slog.Warn("encode prediction for cache", "error", err)
		return pred, nil
	}
	if err := c.cache.Set(key, raw, c.ttl); err != nil {
		slog.Warn("store prediction in cache", "error", err)
	}

	return pred, nil
}
