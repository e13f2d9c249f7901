// Package roadgraph builds the undirected weighted routing graph from road
// centrelines and attaches the consumer and candidate poles to it. Vertex
// identity goes through a 1 m spatial grid so that polylines sharing
// endpoints only up to floating-point precision still meet at one vertex.
package roadgraph

import (
	"log/slog"
	"math"

	"github.com/paulmach/orb"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/geo"
	"github.com/ELBIXishere/aidd/internal/spatial"
	"github.com/ELBIXishere/aidd/internal/types"
)

// VertexKind labels what a graph vertex represents.
type VertexKind int

const (
	VertexRoad VertexKind = iota
	VertexJunction
	VertexConsumer
	VertexPole
)

// EdgeKind labels how an edge came to exist.
type EdgeKind int

const (
	EdgeRoad EdgeKind = iota
	EdgeSnap
	EdgeConnection
)

// Vertex is a graph vertex at a metric coordinate.
type Vertex struct {
	ID    int
	Point orb.Point
	Kind  VertexKind
}

// Edge connects two vertices. Weight combines length with amortised pole
// cost; Dist is the pure geometric length.
type Edge struct {
	To     int
	Dist   float64
	Weight float64
	Kind   EdgeKind
}

// Graph is the undirected routing graph.
type Graph struct {
	Vertices []Vertex
	adj      [][]Edge

	// Consumer is the consumer vertex id, -1 until attached.
	Consumer int
	// PoleVertex maps candidate pole id to its vertex; poles that could
	// not be attached are absent.
	PoleVertex map[string]int

	index *spatial.PointGrid
	cfg   *config.Config
}

// Neighbors returns the edges leaving a vertex.
func (g *Graph) Neighbors(v int) []Edge { return g.adj[v] }

// Point returns a vertex coordinate.
func (g *Graph) Point(v int) orb.Point { return g.Vertices[v].Point }

// Degree returns the number of edges at a vertex.
func (g *Graph) Degree(v int) int { return len(g.adj[v]) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, edges := range g.adj {
		total += len(edges)
	}
	return total / 2
}

// weight computes the routing weight of a span: its length plus the
// amortised cost of the poles that length will need.
func (g *Graph) weight(dist float64) float64 {
	return dist*g.cfg.ScoreWeightDistance + (dist/g.cfg.PoleIntervalM)*g.cfg.PoleCostCoeff
}

// getOrCreateVertex coalesces the coordinate onto an existing vertex within
// the merge tolerance, or inserts a new one.
func (g *Graph) getOrCreateVertex(p orb.Point, kind VertexKind) int {
	if id := g.index.Nearest(p, g.cfg.VertexMergeM); id >= 0 {
		return id
	}
	id := len(g.Vertices)
	g.Vertices = append(g.Vertices, Vertex{ID: id, Point: p, Kind: kind})
	g.adj = append(g.adj, nil)
	g.index.Insert(id, p)
	return id
}

// addVertex inserts a vertex without coalescing. Used for the consumer and
// pole endpoints, which must stay distinct from road vertices.
func (g *Graph) addVertex(p orb.Point, kind VertexKind) int {
	id := len(g.Vertices)
	g.Vertices = append(g.Vertices, Vertex{ID: id, Point: p, Kind: kind})
	g.adj = append(g.adj, nil)
	return id
}

func (g *Graph) addEdge(u, v int, dist float64, kind EdgeKind) {
	if u == v {
		return
	}
	w := g.weight(dist)
	g.adj[u] = append(g.adj[u], Edge{To: v, Dist: dist, Weight: w, Kind: kind})
	g.adj[v] = append(g.adj[v], Edge{To: u, Dist: dist, Weight: w, Kind: kind})
}

func (g *Graph) removeEdge(u, v int) {
	g.adj[u] = deleteEdgeTo(g.adj[u], v)
	g.adj[v] = deleteEdgeTo(g.adj[v], u)
}

func deleteEdgeTo(edges []Edge, to int) []Edge {
	for i, e := range edges {
		if e.To == to {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return edges
}

func (g *Graph) hasEdge(u, v int) bool {
	for _, e := range g.adj[u] {
		if e.To == v {
			return true
		}
	}
	return false
}

// Builder assembles the graph for one request.
type Builder struct {
	cfg    *config.Config
	topo   *types.Topology
	logger *slog.Logger
}

// NewBuilder creates a builder over a processed topology.
func NewBuilder(cfg *config.Config, topo *types.Topology) *Builder {
	return &Builder{cfg: cfg, topo: topo, logger: slog.Default()}
}

// Build constructs the road graph, snaps gaps, and attaches the consumer
// and every candidate pole. Candidates that cannot reach a road within the
// access distance are left out of PoleVertex. ErrConsumerUnreachable is
// returned when the consumer itself cannot be attached.
func (b *Builder) Build(consumer orb.Point, candidates []*types.Pole) (*Graph, error) {
	g := &Graph{
		Consumer:   -1,
		PoleVertex: make(map[string]int),
		index:      spatial.NewPointGrid(b.cfg.VertexMergeM),
		cfg:        b.cfg,
	}

	for _, road := range b.topo.Roads {
		coords := road.Geometry
		for i := 1; i < len(coords); i++ {
			u := g.getOrCreateVertex(coords[i-1], VertexRoad)
			v := g.getOrCreateVertex(coords[i], VertexRoad)
			if u == v || g.hasEdge(u, v) {
				continue
			}
			g.addEdge(u, v, geo.Distance(coords[i-1], coords[i]), EdgeRoad)
		}
	}

	b.snapGaps(g)

	consumerID, ok := b.attach(g, consumer, VertexConsumer)
	if !ok {
		return g, ErrConsumerUnreachable
	}
	g.Consumer = consumerID

	for _, pole := range candidates {
		if id, ok := b.attach(g, pole.Point, VertexPole); ok {
			g.PoleVertex[pole.ID] = id
		} else {
			b.logger.Debug("candidate pole not road-accessible", "pole", pole.ID)
		}
	}

	b.logger.Info("road graph built",
		"vertices", len(g.Vertices),
		"edges", g.EdgeCount(),
		"attached_poles", len(g.PoleVertex))

	return g, nil
}

// snapGaps connects pairs of degree-1 endpoints within the snap distance,
// bridging digitisation gaps in the road network.
func (b *Builder) snapGaps(g *Graph) {
	var ends []int
	for _, v := range g.Vertices {
		if g.Degree(v.ID) == 1 {
			ends = append(ends, v.ID)
		}
	}

	snapped := 0
	for i, u := range ends {
		for _, v := range ends[i+1:] {
			if g.hasEdge(u, v) {
				continue
			}
			d := geo.Distance(g.Point(u), g.Point(v))
			if d <= b.cfg.RoadSnapM {
				g.addEdge(u, v, d, EdgeSnap)
				snapped++
			}
		}
	}
	if snapped > 0 {
		b.logger.Debug("snapped road gaps", "count", snapped)
	}
}

// nearestOnEdges scans the road and snap edges for the point closest to p.
func (b *Builder) nearestOnEdges(g *Graph, p orb.Point) (u, v int, onEdge orb.Point, dist float64) {
	u, v = -1, -1
	dist = math.Inf(1)
	for from, edges := range g.adj {
		for _, e := range edges {
			if e.To < from || e.Kind == EdgeConnection {
				continue
			}
			pt, d := geo.NearestOnSegment(p, g.Point(from), g.Point(e.To))
			if d < dist {
				u, v, onEdge, dist = from, e.To, pt, d
			}
		}
	}
	return u, v, onEdge, dist
}

// attach inserts a vertex for the point and connects it to the nearest road
// edge. When the nearest point coincides with an existing vertex the
// connection goes straight there; otherwise the edge is split at a new
// junction vertex. Returns ok=false when no road edge lies within the access
// distance.
func (b *Builder) attach(g *Graph, p orb.Point, kind VertexKind) (int, bool) {
	u, v, onEdge, dist := b.nearestOnEdges(g, p)
	if u < 0 || dist > b.cfg.RoadAccessM {
		return -1, false
	}

	id := g.addVertex(p, kind)

	// Reuse an existing endpoint when the attachment point lands on it.
	for _, end := range []int{u, v} {
		if geo.Distance(onEdge, g.Point(end)) < b.cfg.VertexMergeM {
			g.addEdge(id, end, dist, EdgeConnection)
			return id, true
		}
	}

	// Split the edge at a new junction.
	junction := g.addVertex(onEdge, VertexJunction)
	g.index.Insert(junction, onEdge)
	g.removeEdge(u, v)
	g.addEdge(junction, u, geo.Distance(onEdge, g.Point(u)), EdgeRoad)
	g.addEdge(junction, v, geo.Distance(onEdge, g.Point(v)), EdgeRoad)
	g.addEdge(id, junction, dist, EdgeConnection)
	return id, true
}
