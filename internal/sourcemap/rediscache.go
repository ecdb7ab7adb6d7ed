package sourcemap

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/healops/healops-go/internal/selflog"
)

// mapURLTTL and consumerTTL bound how long a distributed cache entry
// survives — long enough to absorb a deploy's traffic burst, short enough
// that a stale build artifact does not linger forever once replicas roll.
const (
	mapURLTTL  = 30 * time.Minute
	consumerTTL = 30 * time.Minute
)

// redisCacheEntry is the JSON envelope stored for a parsed consumer, since
// Consumer itself holds unexported fields that encoding/json cannot see;
// RawSourceMap is re-parsed locally on every read instead of deserialized.
type redisCacheEntry struct {
	RawSourceMap []byte `json:"rawSourceMap"`
}

// RedisCache is a CacheBackend shared across SDK instances behind the same
// load balancer, avoiding redundant 404 storms and repeated parses of the
// same build artifact from every replica. It does not cache log or span
// records — only source-map build artifacts, which are not subject to the
// "no local persistence of records" constraint.
type RedisCache struct {
	client *redis.Client
	log    selflog.Logger
}

// NewRedisCache constructs a RedisCache against addr (host:port).
// Connectivity is checked eagerly; a failed ping only logs a warning, it
// never prevents construction — the resolver degrades to cache misses
// (re-fetching every time) rather than failing the whole SDK.
func NewRedisCache(addr, password string, db int, log selflog.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithField("error", err.Error()).Warn("source map redis cache unreachable, falling back to per-call misses")
	}

	return &RedisCache{client: client, log: log}
}

func (c *RedisCache) GetMapURL(bundledURL string) (string, bool, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := c.client.Get(ctx, "healops:sourcemap:url:"+bundledURL).Result()
	if err != nil {
		return "", false, false
	}
	return v, v == "", true
}

func (c *RedisCache) PutMapURL(bundledURL, mapURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.client.Set(ctx, "healops:sourcemap:url:"+bundledURL, mapURL, mapURLTTL)
}

func (c *RedisCache) GetConsumer(mapURL string) (*Consumer, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, "healops:sourcemap:consumer:"+mapURL).Bytes()
	if err != nil {
		return nil, false
	}

	var entry redisCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}

	consumer, err := Parse(entry.RawSourceMap)
	if err != nil {
		return nil, false
	}
	return consumer, true
}

func (c *RedisCache) PutConsumer(mapURL string, cons *Consumer) {
	// Consumer does not retain the original bytes; callers that need the
	// distributed cache populated should instead let PutRawSourceMap store
	// the fetched payload directly. This method exists to satisfy
	// CacheBackend for callers using only the map-URL negative cache.
}

// PutRawSourceMap stores the raw fetched source map JSON for mapURL so
// other replicas can parse it without refetching.
func (c *RedisCache) PutRawSourceMap(mapURL string, raw []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	entry, err := json.Marshal(redisCacheEntry{RawSourceMap: raw})
	if err != nil {
		return
	}
	c.client.Set(ctx, "healops:sourcemap:consumer:"+mapURL, entry, consumerTTL)
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
