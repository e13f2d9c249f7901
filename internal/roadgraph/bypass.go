package roadgraph

import (
	"errors"

	"github.com/paulmach/orb"

	"github.com/ELBIXishere/aidd/internal/geo"
	"github.com/ELBIXishere/aidd/internal/types"
)

// ErrConsumerUnreachable means the consumer could not be attached to any
// road within the access distance.
var ErrConsumerUnreachable = errors.New("consumer is not reachable from any road")

// ErrNoDirectPath means no building-avoiding direct connection exists.
var ErrNoDirectPath = errors.New("no direct path avoids the buildings")

// hullBuffer is how far bypass waypoints sit outside a building hull.
const hullBuffer = 5.0

// DirectPath finds a short direct connection from start to end that avoids
// building footprints, for hops that bypass the road graph. Fallbacks are
// tried in a fixed order: the straight segment, the two L-shaped one-corner
// paths, then a two-corner detour around the convex hull of the blocking
// buildings.
func DirectPath(start, end orb.Point, buildings []*types.Building) (orb.LineString, error) {
	blocked := func(a, b orb.Point) bool {
		for _, bl := range buildings {
			if geo.SegmentCrossesPolygon(a, b, bl.Geometry) {
				return true
			}
		}
		return false
	}

	if !blocked(start, end) {
		return orb.LineString{start, end}, nil
	}

	// One corner: axis-aligned L in both orientations.
	for _, corner := range []orb.Point{{end[0], start[1]}, {start[0], end[1]}} {
		if !blocked(start, corner) && !blocked(corner, end) {
			return orb.LineString{start, corner, end}, nil
		}
	}

	// Two corners: walk around the convex hull of the blocking buildings,
	// keeping a small outward buffer. Every hull vertex is a waypoint
	// candidate; it must be visible from both ends, and the shortest such
	// detour wins.
	var hullPoints []orb.Point
	for _, bl := range buildings {
		if len(geo.LinesIntersections(orb.LineString{start, end}, orb.LineString(bl.Geometry[0]))) == 0 {
			continue
		}
		hullPoints = append(hullPoints, bl.Geometry[0]...)
	}
	if len(hullPoints) == 0 {
		return nil, ErrNoDirectPath
	}

	hull := geo.ConvexHull(hullPoints)
	center := geo.Centroid(hullPoints)

	var best orb.LineString
	bestLen := -1.0
	for i := 0; i < len(hull)-1; i++ {
		waypoint := pushOut(hull[i], center, hullBuffer)
		if blocked(start, waypoint) || blocked(waypoint, end) {
			continue
		}
		length := geo.Distance(start, waypoint) + geo.Distance(waypoint, end)
		if bestLen < 0 || length < bestLen {
			bestLen = length
			best = orb.LineString{start, waypoint, end}
		}
	}
	if best == nil {
		return nil, ErrNoDirectPath
	}
	return best, nil
}

// pushOut moves p away from center by the buffer distance.
func pushOut(p, center orb.Point, buffer float64) orb.Point {
	dx := p[0] - center[0]
	dy := p[1] - center[1]
	d := geo.Distance(p, center)
	if d == 0 {
		return p
	}
	return orb.Point{p[0] + dx/d*buffer, p[1] + dy/d*buffer}
}
