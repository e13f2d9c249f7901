package pathfind

import "sort"

// FindAlternates produces up to k simple paths from the consumer to one
// candidate's vertex, Yen-style: the best path first, then spur paths that
// branch off it with the shared prefix pinned. Paths beyond the reach bound
// are dropped. Results are sorted by weight.
func (f *Finder) FindAlternates(poleID string, k int) []*Path {
	target, ok := f.graph.PoleVertex[poleID]
	if !ok || k <= 0 {
		return nil
	}

	best := f.astar(f.graph.Consumer, target, f.cfg.MaxReachM)
	if best == nil || !best.Reachable {
		return nil
	}
	best.PoleID = poleID

	accepted := []*Path{best}
	var candidates []*Path

	for len(accepted) < k {
		prev := accepted[len(accepted)-1]

		for i := 0; i < len(prev.Vertices)-1; i++ {
			spurNode := prev.Vertices[i]
			rootVerts := prev.Vertices[:i+1]

			bannedEdges := make(map[[2]int]bool)
			for _, p := range accepted {
				if len(p.Vertices) > i && sameRoot(p.Vertices, rootVerts) {
					bannedEdges[[2]int{p.Vertices[i], p.Vertices[i+1]}] = true
				}
			}
			bannedVerts := make(map[int]bool)
			for _, v := range rootVerts[:len(rootVerts)-1] {
				bannedVerts[v] = true
			}

			spur := f.astarAvoiding(spurNode, target, f.cfg.MaxReachM, bannedVerts, bannedEdges)
			if spur == nil || !spur.Reachable {
				continue
			}

			total := f.splice(rootVerts, spur)
			if total.Distance > f.cfg.MaxReachM {
				continue
			}
			total.PoleID = poleID
			if containsPath(accepted, total) || containsPath(candidates, total) {
				continue
			}
			candidates = append(candidates, total)
		}

		if len(candidates) == 0 {
			break
		}
		sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].Weight < candidates[b].Weight })
		accepted = append(accepted, candidates[0])
		candidates = candidates[1:]
	}

	sort.SliceStable(accepted, func(a, b int) bool { return accepted[a].Weight < accepted[b].Weight })
	return accepted
}

// splice joins a pinned root with a spur path, recomputing distance and
// weight along the combined vertex sequence.
func (f *Finder) splice(root []int, spur *Path) *Path {
	vertices := make([]int, 0, len(root)+len(spur.Vertices)-1)
	vertices = append(vertices, root[:len(root)-1]...)
	vertices = append(vertices, spur.Vertices...)

	dist := 0.0
	weight := 0.0
	for i := 1; i < len(vertices); i++ {
		for _, e := range f.graph.Neighbors(vertices[i-1]) {
			if e.To == vertices[i] {
				dist += e.Dist
				weight += e.Weight
				break
			}
		}
	}

	p := &Path{Vertices: vertices, Distance: dist, Weight: weight, Reachable: true}
	for _, v := range vertices {
		p.Coords = append(p.Coords, f.graph.Point(v))
	}
	return p
}

func sameRoot(path, root []int) bool {
	if len(path) < len(root) {
		return false
	}
	for i, v := range root {
		if path[i] != v {
			return false
		}
	}
	return true
}

func containsPath(paths []*Path, p *Path) bool {
	for _, other := range paths {
		if len(other.Vertices) != len(p.Vertices) {
			continue
		}
		same := true
		for i := range other.Vertices {
			if other.Vertices[i] != p.Vertices[i] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}
