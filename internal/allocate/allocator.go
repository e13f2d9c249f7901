// Package allocate places new poles along a routed path: one at the
// consumer, uniform spacing afterwards, junction vertices preserved, and a
// no-placement buffer in front of the terminating existing pole.
package allocate

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/geo"
	"github.com/ELBIXishere/aidd/internal/pathfind"
)

// NewPole is one pole to be erected.
type NewPole struct {
	ID         string
	Point      orb.Point
	Sequence   int
	DistanceM  float64 // cumulative distance from the consumer
	IsJunction bool
}

// Result is the allocation for one path.
type Result struct {
	Path        *pathfind.Path
	Poles       []NewPole
	WireLengthM float64
	TurnCount   int
}

// Allocator computes pole placements.
type Allocator struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates an allocator.
func New(cfg *config.Config) *Allocator {
	return &Allocator{cfg: cfg, logger: slog.Default()}
}

// Allocate places poles along one surviving path. Fast-track paths get
// exactly one pole at the consumer end.
func (a *Allocator) Allocate(path *pathfind.Path) Result {
	result := Result{Path: path, WireLengthM: path.Distance}
	if !path.Reachable || len(path.Coords) < 2 {
		return result
	}

	if path.FastTrack {
		result.Poles = []NewPole{{
			ID:       poleID(path.PoleID, 1),
			Point:    path.Coords[0],
			Sequence: 1,
		}}
		return result
	}

	total := path.Distance
	effective := total - a.cfg.ExistingPoleBufM

	positions := a.uniformPositions(total, effective)
	junctions := a.junctionPositions(path.Coords)
	result.TurnCount = len(junctions)

	// Junctions inside the no-placement buffer are dropped; the rest merge
	// with the uniform grid, junction position winning on conflicts.
	var keptJunctions []float64
	for _, j := range junctions {
		if j <= effective {
			keptJunctions = append(keptJunctions, j)
		}
	}
	merged := a.merge(positions, keptJunctions)

	cumulative := 0.0
	prev := path.Coords[0]
	for i, pos := range merged {
		pt := geo.Interpolate(path.Coords, pos.at)
		cumulative += geo.Distance(prev, pt)
		result.Poles = append(result.Poles, NewPole{
			ID:         poleID(path.PoleID, i+1),
			Point:      pt,
			Sequence:   i + 1,
			DistanceM:  cumulative,
			IsJunction: pos.junction,
		})
		prev = pt
	}

	a.logger.Debug("poles allocated",
		"pole", path.PoleID,
		"count", len(result.Poles),
		"turns", result.TurnCount,
		"length", total)

	return result
}

// AllocateAll allocates every path.
func (a *Allocator) AllocateAll(paths []*pathfind.Path) []Result {
	out := make([]Result, len(paths))
	for i, p := range paths {
		out[i] = a.Allocate(p)
	}
	return out
}

// uniformPositions returns the along-path distances for the uniform grid:
// the mandatory consumer pole at 0, one pole per interval up to the
// effective length, and a boundary pole when the gap from the last uniform
// pole to the existing pole would reach a full interval.
func (a *Allocator) uniformPositions(total, effective float64) []float64 {
	positions := []float64{0}
	if total <= a.cfg.ExistingPoleBufM || effective <= a.cfg.PoleIntervalM {
		return positions
	}

	for pos := a.cfg.PoleIntervalM; pos <= effective+1e-9; pos += a.cfg.PoleIntervalM {
		positions = append(positions, pos)
	}

	last := positions[len(positions)-1]
	if total-last >= a.cfg.PoleIntervalM-1e-9 && effective > last {
		positions = append(positions, effective)
	}
	return positions
}

// junctionPositions returns the along-path distance of every interior
// vertex whose turn angle is sharp enough to force a pole.
func (a *Allocator) junctionPositions(coords orb.LineString) []float64 {
	if len(coords) < 3 {
		return nil
	}
	var out []float64
	cumulative := 0.0
	for i := 1; i < len(coords)-1; i++ {
		before := geo.Distance(coords[i-1], coords[i])
		after := geo.Distance(coords[i], coords[i+1])
		cumulative += before
		if before < 1e-9 || after < 1e-9 {
			continue
		}
		angle := geo.Angle(coords[i-1], coords[i], coords[i+1])
		if angle < a.cfg.TurnAngleDeg {
			out = append(out, cumulative)
		}
	}
	return out
}

type position struct {
	at       float64
	junction bool
}

// merge combines uniform and junction positions, sorted along the path,
// collapsing pairs closer than the merge threshold. A junction swallows a
// nearby uniform pole, never the other way around.
func (a *Allocator) merge(uniform []float64, junctions []float64) []position {
	all := make([]position, 0, len(uniform)+len(junctions))
	for _, u := range uniform {
		all = append(all, position{at: u})
	}
	for _, j := range junctions {
		all = append(all, position{at: j, junction: true})
	}
	sortPositions(all)

	var merged []position
	for _, p := range all {
		if len(merged) == 0 {
			merged = append(merged, p)
			continue
		}
		last := &merged[len(merged)-1]
		if math.Abs(p.at-last.at) < a.cfg.JunctionMergeM {
			if p.junction && !last.junction {
				*last = p
			}
			continue
		}
		merged = append(merged, p)
	}
	return merged
}

func sortPositions(ps []position) {
	for i := 1; i < len(ps); i++ {
		for j := i; j > 0 && ps[j].at < ps[j-1].at; j-- {
			ps[j], ps[j-1] = ps[j-1], ps[j]
		}
	}
}

func poleID(target string, seq int) string {
	return fmt.Sprintf("NP-%s-%d", target, seq)
}
