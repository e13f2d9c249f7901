package spatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointGridNearest(t *testing.T) {
	g := NewPointGrid(1.0)
	g.Insert(0, orb.Point{0, 0})
	g.Insert(1, orb.Point{5, 0})
	g.Insert(2, orb.Point{5.4, 0})

	assert.Equal(t, 0, g.Nearest(orb.Point{0.2, 0.2}, 1.0))
	assert.Equal(t, 2, g.Nearest(orb.Point{5.5, 0}, 1.0))
	assert.Equal(t, -1, g.Nearest(orb.Point{100, 100}, 1.0), "nothing within tolerance")
}

func TestPointGridWithin(t *testing.T) {
	g := NewPointGrid(1.0)
	g.Insert(0, orb.Point{0, 0})
	g.Insert(1, orb.Point{3, 0})
	g.Insert(2, orb.Point{10, 0})

	ids := g.Within(orb.Point{0, 0}, 5)
	assert.ElementsMatch(t, []int{0, 1}, ids)
	assert.Equal(t, 3, g.Len())
}

func TestPointGridCoalescingTolerance(t *testing.T) {
	// Two road endpoints that differ only by float noise must resolve to
	// the same vertex.
	g := NewPointGrid(1.0)
	g.Insert(0, orb.Point{100.0000001, 200.0})
	got := g.Nearest(orb.Point{100.0, 200.0000002}, 1.0)
	assert.Equal(t, 0, got)
}

func TestEnvelopeIndex(t *testing.T) {
	ix := NewEnvelopeIndex(25)
	ix.Insert(0, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}})
	ix.Insert(1, orb.Bound{Min: orb.Point{100, 100}, Max: orb.Point{110, 110}})

	hits := ix.Intersecting(orb.Bound{Min: orb.Point{5, 5}, Max: orb.Point{6, 6}})
	require.Equal(t, []int{0}, hits)

	hits = ix.Intersecting(orb.Bound{Min: orb.Point{50, 50}, Max: orb.Point{60, 60}})
	assert.Empty(t, hits)

	// A query spanning both.
	hits = ix.Intersecting(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{200, 200}})
	assert.ElementsMatch(t, []int{0, 1}, hits)
	assert.Equal(t, 2, ix.Len())
}
