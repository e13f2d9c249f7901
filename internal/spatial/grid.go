// Package spatial provides lightweight uniform-grid spatial indexes. Vertex
// identity in the road graph and envelope queries over conductors both go
// through these; coordinates are never compared directly.
package spatial

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/ELBIXishere/aidd/internal/geo"
)

type cellKey struct{ x, y int }

// PointGrid indexes points by id in a uniform grid, supporting nearest and
// radius queries with a tolerance on the order of the cell size.
type PointGrid struct {
	precision float64
	points    map[int]orb.Point
	cells     map[cellKey][]int
}

// NewPointGrid creates a grid with the given cell size in metres.
func NewPointGrid(precision float64) *PointGrid {
	if precision <= 0 {
		precision = 1.0
	}
	return &PointGrid{
		precision: precision,
		points:    make(map[int]orb.Point),
		cells:     make(map[cellKey][]int),
	}
}

func (g *PointGrid) key(p orb.Point) cellKey {
	return cellKey{
		x: int(math.Floor(p[0] / g.precision)),
		y: int(math.Floor(p[1] / g.precision)),
	}
}

// Insert adds a point under an integer id.
func (g *PointGrid) Insert(id int, p orb.Point) {
	g.points[id] = p
	k := g.key(p)
	g.cells[k] = append(g.cells[k], id)
}

// Nearest returns the id of the closest indexed point within tolerance, or
// -1 when none qualifies.
func (g *PointGrid) Nearest(p orb.Point, tolerance float64) int {
	reach := int(math.Ceil(tolerance/g.precision)) + 1
	center := g.key(p)

	best := -1
	bestDist := tolerance
	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			for _, id := range g.cells[cellKey{center.x + dx, center.y + dy}] {
				d := geo.Distance(p, g.points[id])
				if d < bestDist || (best == -1 && d == bestDist) {
					best = id
					bestDist = d
				}
			}
		}
	}
	return best
}

// Within returns every indexed id within radius of p.
func (g *PointGrid) Within(p orb.Point, radius float64) []int {
	reach := int(math.Ceil(radius/g.precision)) + 1
	center := g.key(p)

	var out []int
	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			for _, id := range g.cells[cellKey{center.x + dx, center.y + dy}] {
				if geo.Distance(p, g.points[id]) <= radius {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// Len returns the number of indexed points.
func (g *PointGrid) Len() int { return len(g.points) }

// EnvelopeIndex indexes geometry envelopes in a coarse uniform grid. It
// answers "which geometries might intersect this box" queries; callers do
// the exact geometric test on the returned candidates.
type EnvelopeIndex struct {
	cellSize float64
	bounds   map[int]orb.Bound
	cells    map[cellKey][]int
}

// NewEnvelopeIndex creates an envelope index. The cell size should be on the
// order of typical feature extents; 25 m works well for spans and footprints.
func NewEnvelopeIndex(cellSize float64) *EnvelopeIndex {
	if cellSize <= 0 {
		cellSize = 25.0
	}
	return &EnvelopeIndex{
		cellSize: cellSize,
		bounds:   make(map[int]orb.Bound),
		cells:    make(map[cellKey][]int),
	}
}

// Insert adds a geometry's bound under an integer id.
func (ix *EnvelopeIndex) Insert(id int, b orb.Bound) {
	ix.bounds[id] = b
	minX := int(math.Floor(b.Min[0] / ix.cellSize))
	maxX := int(math.Floor(b.Max[0] / ix.cellSize))
	minY := int(math.Floor(b.Min[1] / ix.cellSize))
	maxY := int(math.Floor(b.Max[1] / ix.cellSize))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			k := cellKey{x, y}
			ix.cells[k] = append(ix.cells[k], id)
		}
	}
}

// Intersecting returns the ids whose envelope intersects the query bound.
func (ix *EnvelopeIndex) Intersecting(q orb.Bound) []int {
	minX := int(math.Floor(q.Min[0] / ix.cellSize))
	maxX := int(math.Floor(q.Max[0] / ix.cellSize))
	minY := int(math.Floor(q.Min[1] / ix.cellSize))
	maxY := int(math.Floor(q.Max[1] / ix.cellSize))

	seen := make(map[int]bool)
	var out []int
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for _, id := range ix.cells[cellKey{x, y}] {
				if seen[id] {
					continue
				}
				seen[id] = true
				if ix.bounds[id].Intersects(q) {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// Len returns the number of indexed geometries.
func (ix *EnvelopeIndex) Len() int { return len(ix.bounds) }
