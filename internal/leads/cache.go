package leads

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jetriderentals/booking-api/pkg/logging"
)

const (
	// GenerationKey is bumped on every append. Listings are cached under a
	// key derived from it, so a listing read before an append can never be
	// served after it.
	GenerationKey = "leads:gen"

	listingKeyPrefix = "leads:all:"
)

// ListingKey is where the JSON listing for generation gen is cached.
func ListingKey(gen int64) string {
	return listingKeyPrefix + strconv.FormatInt(gen, 10)
}

// CachedStore fronts a Store with a short-lived Redis copy of ListAll.
// Appends always go to the underlying store and advance the generation.
// Redis errors are logged and fall through to the store.
type CachedStore struct {
	inner  Store
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedStore wraps inner. A nil client disables caching.
func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedStore {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedStore{inner: inner, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedStore) Append(ctx context.Context, sub Submission) (Ack, error) {
	ack, err := c.inner.Append(ctx, sub)
	if err != nil {
		return ack, err
	}
	if c.redis != nil {
		// the row is written; invalidate even if the caller has gone away
		c.invalidate(context.WithoutCancel(ctx))
	}
	return ack, nil
}

func (c *CachedStore) invalidate(ctx context.Context) {
	gen, err := c.redis.Incr(ctx, GenerationKey).Result()
	if err != nil {
		c.logger.Warn("leads: failed to invalidate cache", "error", err)
		return
	}
	if err := c.redis.Del(ctx, ListingKey(gen-1)).Err(); err != nil {
		c.logger.Warn("leads: failed to drop cached listing", "error", err)
	}
}

func (c *CachedStore) ListAll(ctx context.Context) ([]Record, error) {
	if c.redis == nil {
		return c.inner.ListAll(ctx)
	}

	gen, err := c.redis.Get(ctx, GenerationKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		gen = 0
	case err != nil:
		c.logger.Warn("leads: cache read failed", "error", err)
		return c.inner.ListAll(ctx)
	}
	key := ListingKey(gen)

	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var records []Record
		if jerr := json.Unmarshal(raw, &records); jerr == nil {
			return records, nil
		}
		c.logger.Warn("leads: discarding corrupt cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("leads: cache read failed", "error", err)
	}

	records, err := c.inner.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	// An append during the read has moved the generation on, so this write
	// lands on a key nobody reads.
	if payload, jerr := json.Marshal(records); jerr == nil {
		if serr := c.redis.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			c.logger.Warn("leads: cache write failed", "error", serr)
		}
	}
	return records, nil
}

var _ Store = (*CachedStore)(nil)
