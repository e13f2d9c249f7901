// Package selector ranks the existing poles eligible to source a new
// service connection. Eligibility depends on the requested phase class,
// score on straight-line distance minus engineering bonuses, and very close
// candidates with a clear sight-line are flagged for the fast track.
package selector

import (
	"log/slog"
	"sort"

	"github.com/paulmach/orb"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/geo"
	"github.com/ELBIXishere/aidd/internal/spatial"
	"github.com/ELBIXishere/aidd/internal/types"
)

// Candidate is one eligible source pole.
type Candidate struct {
	Pole      *types.Pole
	Distance  float64 // straight-line distance to the consumer
	Score     float64 // distance minus bonuses; lower ranks first
	FastTrack bool

	// Connection facts used for scoring and reporting.
	HasLV        bool
	HasHV        bool
	HasHVThree   bool
	HasThreePhTR bool
}

// Result is the ranked candidate set for one consumer.
type Result struct {
	Candidates []Candidate
	FastTrack  *Candidate // best fast-track candidate, nil when none
}

// Selector filters and ranks candidate poles against one topology.
type Selector struct {
	cfg    *config.Config
	topo   *types.Topology
	logger *slog.Logger

	buildingIndex *spatial.EnvelopeIndex
}

// New creates a selector over a processed topology.
func New(cfg *config.Config, topo *types.Topology) *Selector {
	s := &Selector{cfg: cfg, topo: topo, logger: slog.Default()}
	if len(topo.Buildings) > 0 {
		s.buildingIndex = spatial.NewEnvelopeIndex(25)
		for i, b := range topo.Buildings {
			s.buildingIndex.Insert(i, b.Geometry.Bound())
		}
	}
	return s
}

// Select returns the ranked candidates for a consumer location and phase
// class. An empty candidate list means no pole in range can source the
// requested supply.
func (s *Selector) Select(consumer orb.Point, phase types.PhaseClass) Result {
	var result Result

	for _, pole := range s.topo.Poles {
		cand := s.analyze(pole, consumer)

		if !s.eligible(cand, phase) {
			continue
		}
		if cand.Distance > s.cfg.MaxReachM {
			continue
		}

		cand.Score = s.score(cand, phase)

		if cand.Distance <= s.cfg.FastTrackM && !s.sightLineBlocked(consumer, pole.Point) {
			cand.FastTrack = true
		}

		result.Candidates = append(result.Candidates, cand)
	}

	sort.SliceStable(result.Candidates, func(i, j int) bool {
		a, b := result.Candidates[i], result.Candidates[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.Distance < b.Distance
	})

	for i := range result.Candidates {
		if result.Candidates[i].FastTrack {
			result.FastTrack = &result.Candidates[i]
			break
		}
	}

	s.logger.Info("candidate selection",
		"phase", phase.String(),
		"candidates", len(result.Candidates),
		"fast_track", result.FastTrack != nil)

	return result
}

func (s *Selector) analyze(pole *types.Pole, consumer orb.Point) Candidate {
	cand := Candidate{
		Pole:     pole,
		Distance: geo.Distance(consumer, pole.Point),
	}
	for _, line := range s.topo.LinesByPole(pole.ID) {
		if line.IsHighVoltage() {
			cand.HasHV = true
			if line.Phase == types.PhaseThree {
				cand.HasHVThree = true
			}
		} else {
			cand.HasLV = true
		}
	}
	if tr := s.topo.TransformerByPole(pole.ID); tr != nil && tr.Phase == types.PhaseThree {
		cand.HasThreePhTR = true
	}
	return cand
}

// eligible applies the phase-matching rules: a three-phase service must come
// from a pole on the HV system, a single-phase service from any pole with a
// conductor.
func (s *Selector) eligible(cand Candidate, phase types.PhaseClass) bool {
	if phase == types.PhaseThree {
		return cand.HasHV
	}
	return cand.HasHV || cand.HasLV
}

// score starts at the straight-line distance and subtracts the engineering
// bonuses for equipment that saves downstream construction.
func (s *Selector) score(cand Candidate, phase types.PhaseClass) float64 {
	score := cand.Distance
	if phase == types.PhaseThree {
		if cand.HasThreePhTR {
			score -= 150
		}
		if cand.HasHVThree {
			score -= 100
		}
	} else {
		if cand.Pole.HasTransformer {
			score -= 100
		}
		if cand.HasLV {
			score -= 50
		}
	}
	return score
}

// sightLineBlocked reports whether the straight segment from the consumer to
// the pole passes through a building.
func (s *Selector) sightLineBlocked(consumer, pole orb.Point) bool {
	if s.buildingIndex == nil {
		return false
	}
	seg := orb.LineString{consumer, pole}
	for _, i := range s.buildingIndex.Intersecting(seg.Bound()) {
		if geo.SegmentCrossesPolygon(consumer, pole, s.topo.Buildings[i].Geometry) {
			return true
		}
	}
	return false
}
