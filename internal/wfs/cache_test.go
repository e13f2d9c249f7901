package wfs

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"

	"github.com/ELBIXishere/aidd/internal/types"
)

func TestCacheKeyQuantisation(t *testing.T) {
	a := types.BoundingBox{MinX: 101, MinY: 99, MaxX: 501, MaxY: 499}
	b := types.BoundingBox{MinX: 103, MinY: 97, MaxX: 498, MaxY: 502}

	// Corners within the 10 m quantisation share a key.
	assert.Equal(t, Key("srv", LayerPole, a), Key("srv", LayerPole, b))

	// Different layer or server must not share.
	assert.NotEqual(t, Key("srv", LayerPole, a), Key("srv", LayerRoad, a))
	assert.NotEqual(t, Key("srv", LayerPole, a), Key("other", LayerPole, a))

	far := types.BoundingBox{MinX: 200, MinY: 99, MaxX: 600, MaxY: 499}
	assert.NotEqual(t, Key("srv", LayerPole, a), Key("srv", LayerPole, far))
}

func TestCacheHitMissStats(t *testing.T) {
	c := NewCache(10, time.Minute)
	key := Key("srv", LayerPole, types.BoundingBox{MaxX: 100, MaxY: 100})

	_, ok := c.Get(key)
	assert.False(t, ok)

	feats := []*geojson.Feature{geojson.NewFeature(orb.Point{1, 2})}
	c.Set(key, feats)

	got, ok := c.Get(key)
	assert.True(t, ok)
	assert.Len(t, got, 1)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
	assert.Equal(t, 1, stats.Size)

	c.Purge()
	assert.Equal(t, 0, c.Stats().Size)
	assert.Equal(t, int64(0), c.Stats().Hits)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := NewCache(10, 20*time.Millisecond)
	key := "k"
	c.Set(key, nil)
	time.Sleep(60 * time.Millisecond)
	_, ok := c.Get(key)
	assert.False(t, ok, "entry should have expired")
}
