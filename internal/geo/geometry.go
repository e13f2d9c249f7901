// Package geo provides the planar geometry helpers shared by the routing
// stages. All coordinates are metric; distances are Euclidean.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Distance returns the planar distance between two points in metres.
func Distance(a, b orb.Point) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	return math.Sqrt(dx*dx + dy*dy)
}

// LineLength returns the total length of a polyline.
func LineLength(ls orb.LineString) float64 {
	total := 0.0
	for i := 1; i < len(ls); i++ {
		total += Distance(ls[i-1], ls[i])
	}
	return total
}

// Interpolate returns the point at the given distance along a polyline.
// Distances beyond the ends clamp to the nearest endpoint.
func Interpolate(ls orb.LineString, dist float64) orb.Point {
	if len(ls) == 0 {
		return orb.Point{}
	}
	if dist <= 0 {
		return ls[0]
	}
	remaining := dist
	for i := 1; i < len(ls); i++ {
		seg := Distance(ls[i-1], ls[i])
		if remaining <= seg {
			if seg == 0 {
				return ls[i]
			}
			t := remaining / seg
			return orb.Point{
				ls[i-1][0] + t*(ls[i][0]-ls[i-1][0]),
				ls[i-1][1] + t*(ls[i][1]-ls[i-1][1]),
			}
		}
		remaining -= seg
	}
	return ls[len(ls)-1]
}

// Angle returns the interior angle at p2 formed by p1-p2-p3, in degrees
// (0..180). Degenerate segments yield 0.
func Angle(p1, p2, p3 orb.Point) float64 {
	v1 := orb.Point{p1[0] - p2[0], p1[1] - p2[1]}
	v2 := orb.Point{p3[0] - p2[0], p3[1] - p2[1]}

	dot := v1[0]*v2[0] + v1[1]*v2[1]
	m1 := math.Hypot(v1[0], v1[1])
	m2 := math.Hypot(v2[0], v2[1])
	if m1 == 0 || m2 == 0 {
		return 0
	}
	cos := dot / (m1 * m2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// NearestOnSegment returns the point on segment a-b closest to p, and the
// distance from p to it.
func NearestOnSegment(p, a, b orb.Point) (orb.Point, float64) {
	abx := b[0] - a[0]
	aby := b[1] - a[1]
	lenSq := abx*abx + aby*aby
	if lenSq == 0 {
		return a, Distance(p, a)
	}
	t := ((p[0]-a[0])*abx + (p[1]-a[1])*aby) / lenSq
	t = math.Max(0, math.Min(1, t))
	nearest := orb.Point{a[0] + t*abx, a[1] + t*aby}
	return nearest, Distance(p, nearest)
}

// NearestOnLine returns the closest point on a polyline to p, the distance
// to it, and the index of the segment it lies on.
func NearestOnLine(p orb.Point, ls orb.LineString) (orb.Point, float64, int) {
	best := orb.Point{}
	bestDist := math.Inf(1)
	bestSeg := -1
	for i := 1; i < len(ls); i++ {
		pt, d := NearestOnSegment(p, ls[i-1], ls[i])
		if d < bestDist {
			best, bestDist, bestSeg = pt, d, i-1
		}
	}
	return best, bestDist, bestSeg
}

// SegmentIntersection returns the intersection point of segments a1-a2 and
// b1-b2 when they properly intersect or touch, and ok=false otherwise.
// Collinear overlaps report the first shared endpoint encountered.
func SegmentIntersection(a1, a2, b1, b2 orb.Point) (orb.Point, bool) {
	d1x := a2[0] - a1[0]
	d1y := a2[1] - a1[1]
	d2x := b2[0] - b1[0]
	d2y := b2[1] - b1[1]

	denom := d1x*d2y - d1y*d2x
	if denom == 0 {
		// Parallel. Check collinear endpoint touch.
		for _, p := range []orb.Point{b1, b2} {
			if onSegment(p, a1, a2) {
				return p, true
			}
		}
		for _, p := range []orb.Point{a1, a2} {
			if onSegment(p, b1, b2) {
				return p, true
			}
		}
		return orb.Point{}, false
	}

	t := ((b1[0]-a1[0])*d2y - (b1[1]-a1[1])*d2x) / denom
	u := ((b1[0]-a1[0])*d1y - (b1[1]-a1[1])*d1x) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return orb.Point{}, false
	}
	return orb.Point{a1[0] + t*d1x, a1[1] + t*d1y}, true
}

func onSegment(p, a, b orb.Point) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	if math.Abs(cross) > 1e-9 {
		return false
	}
	return p[0] >= math.Min(a[0], b[0])-1e-9 && p[0] <= math.Max(a[0], b[0])+1e-9 &&
		p[1] >= math.Min(a[1], b[1])-1e-9 && p[1] <= math.Max(a[1], b[1])+1e-9
}

// LinesIntersections returns every intersection point between two polylines.
func LinesIntersections(a, b orb.LineString) []orb.Point {
	var pts []orb.Point
	for i := 1; i < len(a); i++ {
		for j := 1; j < len(b); j++ {
			if pt, ok := SegmentIntersection(a[i-1], a[i], b[j-1], b[j]); ok {
				pts = append(pts, pt)
			}
		}
	}
	return pts
}

// SegmentCrossesPolygon reports whether segment a-b enters a polygon.
// Boundary points count as inside, so a segment that runs along an edge,
// ends on the boundary or passes through a corner is reported as crossing.
func SegmentCrossesPolygon(a, b orb.Point, poly orb.Polygon) bool {
	mid := orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
	if planar.PolygonContains(poly, mid) {
		return true
	}
	ring := poly[0]
	hits := 0
	for i := 1; i < len(ring); i++ {
		if _, ok := SegmentIntersection(a, b, ring[i-1], ring[i]); ok {
			hits++
			if hits >= 2 {
				// Entering and leaving: the segment passes through.
				return true
			}
		}
	}
	if hits == 1 {
		// One boundary hit with an endpoint inside means entry.
		return planar.PolygonContains(poly, a) || planar.PolygonContains(poly, b)
	}
	return false
}

// ConvexHull computes the convex hull of the points using Andrew's monotone
// chain. The result is closed (first point repeated at the end).
func ConvexHull(points []orb.Point) orb.Ring {
	n := len(points)
	if n < 3 {
		ring := make(orb.Ring, 0, n+1)
		ring = append(ring, points...)
		if n > 0 {
			ring = append(ring, points[0])
		}
		return ring
	}

	pts := make([]orb.Point, n)
	copy(pts, points)
	sortPoints(pts)

	cross := func(o, a, b orb.Point) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	var hull []orb.Point
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return orb.Ring(hull)
}

func sortPoints(pts []orb.Point) {
	// Lexicographic sort by x then y; insertion sort is fine for the small
	// hull inputs this is used with.
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0; j-- {
			if pts[j][0] < pts[j-1][0] || (pts[j][0] == pts[j-1][0] && pts[j][1] < pts[j-1][1]) {
				pts[j], pts[j-1] = pts[j-1], pts[j]
			} else {
				break
			}
		}
	}
}

// Centroid returns the mean of the points.
func Centroid(points []orb.Point) orb.Point {
	if len(points) == 0 {
		return orb.Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p[0]
		sy += p[1]
	}
	n := float64(len(points))
	return orb.Point{sx / n, sy / n}
}
