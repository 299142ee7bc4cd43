// Package cache wraps a gtfsmodel.Reader with a Redis-backed cache-aside
// layer, so repeated runs against the same GTFS feed within a cache window
// skip re-parsing stop_times.txt / a GTFS zip entirely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/transitcore/schedulerefine/pkg/refine/gtfsmodel"
)

const defaultAddress = "localhost:6379"

const cacheKey = "schedulerefine:gtfs-schedule"

// Config controls how the cache connects to Redis and how long a parsed
// schedule is considered fresh.
type Config struct {
	Address  string
	Password string
	Database int
	TTL      time.Duration
}

// cachedSchedule is the value type stored in Redis. It implements
// MarshalBinary/UnmarshalBinary so the redis store can serialize it
// directly, the same way Travigo's own gocache-backed caches store their
// values.
type cachedSchedule struct {
	StopTimes   []gtfsmodel.StopTime  `json:"stopTimes"`
	Frequencies []gtfsmodel.Frequency `json:"frequencies"`
}

func (c *cachedSchedule) MarshalBinary() ([]byte, error) {
	return json.Marshal(c)
}

func (c *cachedSchedule) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, c)
}

// CachingReader decorates an inner gtfsmodel.Reader with a Redis cache-aside
// layer keyed on a fixed cache key, since a run always reads the whole
// configured feed rather than a subset of it.
type CachingReader struct {
	cache *cache.Cache[*cachedSchedule]
	read  gtfsmodel.Reader
	ttl   time.Duration
}

// NewCachingReader connects to Redis per cfg and wraps inner. A connection
// failure is returned rather than silently falling back to an uncached
// reader, since a misconfigured cache address usually means the operator
// meant to point it somewhere real.
func NewCachingReader(cfg Config, inner gtfsmodel.Reader) (*CachingReader, error) {
	address := cfg.Address
	if address == "" {
		address = defaultAddress
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("cache: connecting to redis at %s: %w", address, err)
	}

	redisStore := redisstore.NewRedis(client)
	cacheManager := cache.New[*cachedSchedule](redisStore)

	return &CachingReader{cache: cacheManager, read: inner, ttl: ttl}, nil
}

// Read returns the cached schedule if present and unexpired, otherwise reads
// through to the wrapped reader and populates the cache for next time.
func (c *CachingReader) Read() ([]gtfsmodel.StopTime, []gtfsmodel.Frequency, error) {
	ctx := context.Background()

	if cached, err := c.cache.Get(ctx, cacheKey); err == nil && cached != nil {
		log.Debug().Msg("gtfs schedule served from cache")
		return cached.StopTimes, cached.Frequencies, nil
	}

	stopTimes, frequencies, err := c.read.Read()
	if err != nil {
		return nil, nil, err
	}

	entry := &cachedSchedule{StopTimes: stopTimes, Frequencies: frequencies}
	if err := c.cache.Set(ctx, cacheKey, entry, store.WithExpiration(c.ttl)); err != nil {
		log.Warn().Err(err).Msg("gtfs schedule could not be written to cache")
	}

	return stopTimes, frequencies, nil
}
