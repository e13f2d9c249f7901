// Package pathfind runs weighted shortest-path searches over the road
// graph. The A* heuristic is the pure geometric distance to the target,
// which lower-bounds every edge weight, so the search stays optimal.
package pathfind

import (
	"container/heap"
	"log/slog"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/geo"
	"github.com/ELBIXishere/aidd/internal/roadgraph"
	"github.com/ELBIXishere/aidd/internal/selector"
)

// Path is one routed connection from the consumer to a candidate pole.
type Path struct {
	PoleID    string
	Target    *selector.Candidate
	Vertices  []int
	Coords    orb.LineString
	Distance  float64 // geometric length in metres
	Weight    float64 // weighted cost used for ordering
	Reachable bool
	FastTrack bool
}

// Finder runs searches over one graph.
type Finder struct {
	cfg    *config.Config
	graph  *roadgraph.Graph
	logger *slog.Logger

	// heuristic cache keyed by (vertex, target vertex)
	hcache map[[2]int]float64
}

// New creates a finder for the graph.
func New(cfg *config.Config, g *roadgraph.Graph) *Finder {
	return &Finder{
		cfg:    cfg,
		graph:  g,
		logger: slog.Default(),
		hcache: make(map[[2]int]float64),
	}
}

// FindAll routes the consumer to every attached candidate, visiting targets
// in ascending straight-line order, and returns the reachable paths sorted
// by weight and truncated to the configured maximum. Fast-track candidates
// get a direct two-point path without touching the graph.
func (f *Finder) FindAll(candidates []selector.Candidate) []*Path {
	consumer := f.graph.Point(f.graph.Consumer)

	ordered := make([]*selector.Candidate, 0, len(candidates))
	for i := range candidates {
		ordered = append(ordered, &candidates[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Distance < ordered[j].Distance
	})

	var paths []*Path
	for _, cand := range ordered {
		if cand.FastTrack {
			paths = append(paths, &Path{
				PoleID:    cand.Pole.ID,
				Target:    cand,
				Coords:    orb.LineString{consumer, cand.Pole.Point},
				Distance:  cand.Distance,
				Weight:    cand.Distance,
				Reachable: true,
				FastTrack: true,
			})
			continue
		}

		target, ok := f.graph.PoleVertex[cand.Pole.ID]
		if !ok {
			continue
		}
		path := f.astar(f.graph.Consumer, target, f.cfg.MaxReachM)
		if path == nil || !path.Reachable {
			continue
		}
		path.PoleID = cand.Pole.ID
		path.Target = cand
		paths = append(paths, path)
	}

	sort.SliceStable(paths, func(i, j int) bool { return paths[i].Weight < paths[j].Weight })
	if len(paths) > f.cfg.MaxResults {
		paths = paths[:f.cfg.MaxResults]
	}

	f.logger.Info("pathfinding complete", "targets", len(ordered), "paths", len(paths))
	return paths
}

func (f *Finder) heuristic(v, target int) float64 {
	key := [2]int{v, target}
	if h, ok := f.hcache[key]; ok {
		return h
	}
	h := geo.Distance(f.graph.Point(v), f.graph.Point(target))
	f.hcache[key] = h
	return h
}

type pqItem struct {
	vertex int
	fScore float64
	index  int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].fScore < pq[j].fScore }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i]; pq[i].index = i; pq[j].index = j }
func (pq *priorityQueue) Push(x any)         { item := x.(*pqItem); item.index = len(*pq); *pq = append(*pq, item) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// astar runs a bounded A* from source to target. Expansion prunes any
// relaxation whose cumulative geometric distance exceeds maxDist, which is a
// separate bound from the weighted cost being minimised.
func (f *Finder) astar(source, target int, maxDist float64) *Path {
	return f.astarAvoiding(source, target, maxDist, nil, nil)
}

// astarAvoiding is astar with optional removed vertices/edges, which Yen's
// algorithm uses to force spur paths.
func (f *Finder) astarAvoiding(source, target int, maxDist float64, bannedVerts map[int]bool, bannedEdges map[[2]int]bool) *Path {
	n := len(f.graph.Vertices)
	gScore := make([]float64, n)   // weighted cost
	gDist := make([]float64, n)    // geometric distance
	cameFrom := make([]int, n)
	closed := make([]bool, n)
	for i := range gScore {
		gScore[i] = math.Inf(1)
		gDist[i] = math.Inf(1)
		cameFrom[i] = -1
	}
	gScore[source] = 0
	gDist[source] = 0

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{vertex: source, fScore: f.heuristic(source, target)})

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*pqItem).vertex
		if closed[current] {
			continue
		}
		closed[current] = true

		if current == target {
			if gDist[target] > maxDist {
				return &Path{Reachable: false, Distance: gDist[target], Weight: gScore[target]}
			}
			return f.reconstruct(cameFrom, target, gDist[target], gScore[target])
		}

		for _, e := range f.graph.Neighbors(current) {
			if closed[e.To] {
				continue
			}
			if bannedVerts != nil && bannedVerts[e.To] {
				continue
			}
			if bannedEdges != nil && (bannedEdges[[2]int{current, e.To}] || bannedEdges[[2]int{e.To, current}]) {
				continue
			}
			nextDist := gDist[current] + e.Dist
			if nextDist > maxDist {
				// Past the reach bound; this expansion cannot yield a
				// valid route.
				continue
			}
			nextScore := gScore[current] + e.Weight
			if nextScore >= gScore[e.To] {
				continue
			}
			gScore[e.To] = nextScore
			gDist[e.To] = nextDist
			cameFrom[e.To] = current
			heap.Push(pq, &pqItem{vertex: e.To, fScore: nextScore + f.heuristic(e.To, target)})
		}
	}
	return nil
}

func (f *Finder) reconstruct(cameFrom []int, target int, dist, weight float64) *Path {
	var vertices []int
	for v := target; v != -1; v = cameFrom[v] {
		vertices = append(vertices, v)
	}
	// Reverse to consumer-first order.
	for i, j := 0, len(vertices)-1; i < j; i, j = i+1, j-1 {
		vertices[i], vertices[j] = vertices[j], vertices[i]
	}

	// Zero-length hops happen when an attachment point coincides with a
	// road vertex; collapse them so the polyline has distinct vertices.
	coords := make(orb.LineString, 0, len(vertices))
	for _, v := range vertices {
		pt := f.graph.Point(v)
		if n := len(coords); n > 0 && geo.Distance(coords[n-1], pt) < 1e-9 {
			continue
		}
		coords = append(coords, pt)
	}
	return &Path{
		Vertices:  vertices,
		Coords:    coords,
		Distance:  dist,
		Weight:    weight,
		Reachable: true,
	}
}
