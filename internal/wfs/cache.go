package wfs

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paulmach/orb/geojson"

	"github.com/ELBIXishere/aidd/internal/types"
)

// Cache is the process-wide tile cache: LRU with a TTL, safe under
// concurrent request handling. Keys combine server URL, layer and the
// 10 m-quantised bounding box so nearby requests share entries.
type Cache struct {
	lru    *expirable.LRU[string, []*geojson.Feature]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a cache with the given capacity and TTL.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		lru: expirable.NewLRU[string, []*geojson.Feature](capacity, nil, ttl),
	}
}

// Key builds the cache key for one layer slice.
func Key(serverURL string, layer LayerKey, bbox types.BoundingBox) string {
	q := bbox.Quantized(10)
	raw := fmt.Sprintf("%s|%s|%s", serverURL, layer, q)
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached features for a key, counting the hit or miss.
func (c *Cache) Get(key string) ([]*geojson.Feature, bool) {
	feats, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
		cacheHits.Inc()
	} else {
		c.misses.Add(1)
		cacheMisses.Inc()
	}
	return feats, ok
}

// Set stores features under a key.
func (c *Cache) Set(key string, feats []*geojson.Feature) {
	c.lru.Add(key, feats)
}

// Purge drops every entry and resets the counters.
func (c *Cache) Purge() {
	c.lru.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats describes cache effectiveness for observability endpoints.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Size    int     `json:"size"`
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	h := c.hits.Load()
	m := c.misses.Load()
	rate := 0.0
	if h+m > 0 {
		rate = float64(h) / float64(h+m)
	}
	return Stats{Hits: h, Misses: m, HitRate: rate, Size: c.lru.Len()}
}
