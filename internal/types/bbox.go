package types

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// BoundingBox is an axis-aligned box in the projected metric CRS.
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoxAround returns a square bounding box of the given edge length centred
// on a point.
func BoxAround(center orb.Point, size float64) BoundingBox {
	half := size / 2
	return BoundingBox{
		MinX: center[0] - half,
		MinY: center[1] - half,
		MaxX: center[0] + half,
		MaxY: center[1] + half,
	}
}

// Contains reports whether the point lies inside the box (inclusive).
func (b BoundingBox) Contains(p orb.Point) bool {
	return p[0] >= b.MinX && p[0] <= b.MaxX && p[1] >= b.MinY && p[1] <= b.MaxY
}

// Quantized rounds every corner to the given step. Used for cache keys so
// that nearby requests share a tile fetch.
func (b BoundingBox) Quantized(step float64) BoundingBox {
	q := func(v float64) float64 { return math.Round(v/step) * step }
	return BoundingBox{MinX: q(b.MinX), MinY: q(b.MinY), MaxX: q(b.MaxX), MaxY: q(b.MaxY)}
}

// Bound converts to an orb.Bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%.1f,%.1f,%.1f,%.1f", b.MinX, b.MinY, b.MaxX, b.MaxY)
}
