// Package obstacle rejects routed polylines that would cross an existing
// conductor at an incompatible installed height. Crossings with at least
// 1.5 m of vertical separation are safe 3-D crossings; service drops and
// ground wires never block.
package obstacle

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/ELBIXishere/aidd/internal/geo"
	"github.com/ELBIXishere/aidd/internal/spatial"
	"github.com/ELBIXishere/aidd/internal/types"
)

// Installed conductor heights in metres.
const (
	HeightGroundWire = 12.0
	HeightHVTrunk    = 10.5
	HeightLVTrunk    = 8.5

	// MinSeparation is the vertical clearance that makes a crossing safe.
	MinSeparation = 1.5

	// endpointTol is how close to the path ends an intersection may sit and
	// still count as the pole connection rather than a crossing.
	endpointTol = 1.0
)

// Crossing describes one offending intersection.
type Crossing struct {
	LineID    string
	LineClass types.LineClass
	Point     orb.Point
	HeightGap float64
}

// Result is the validation outcome for one path.
type Result struct {
	Valid     bool
	Crossings []Crossing
}

// Reason renders a human-readable rejection reason naming the conductors.
func (r Result) Reason() string {
	if r.Valid {
		return ""
	}
	names := make([]string, 0, len(r.Crossings))
	for _, c := range r.Crossings {
		names = append(names, fmt.Sprintf("%s(%s)", c.LineID, c.LineClass))
	}
	return "path crosses existing conductors: " + strings.Join(names, ", ")
}

// Validator checks paths against the existing conductors of one topology.
type Validator struct {
	lines  []*types.Line
	index  *spatial.EnvelopeIndex
	logger *slog.Logger
}

// New creates a validator over the topology's conductors.
func New(topo *types.Topology) *Validator {
	v := &Validator{lines: topo.Lines, logger: slog.Default()}
	v.index = spatial.NewEnvelopeIndex(25)
	for i, l := range topo.Lines {
		v.index.Insert(i, l.Geometry.Bound())
	}
	return v
}

// EstimateHeight estimates a conductor's installed height from its class
// and annotation. Ground wires sit above the trunk; annotation keywords
// resolve spans whose class is ambiguous.
func EstimateHeight(line *types.Line) float64 {
	ann := strings.ToUpper(line.Annotation)
	if strings.Contains(ann, "GW") || strings.Contains(ann, "OHGW") {
		return HeightGroundWire
	}
	if line.IsHighVoltage() {
		return HeightHVTrunk
	}
	if line.Class == types.LineLV {
		return HeightLVTrunk
	}
	if strings.Contains(ann, "ACSR") || strings.Contains(ann, "AL") {
		return HeightHVTrunk
	}
	if strings.Contains(ann, "OW") || strings.Contains(ann, "AO") {
		return HeightLVTrunk
	}
	return HeightLVTrunk
}

// NewConductorHeight is the installed height of the conductor being
// designed, set by the requested phase class.
func NewConductorHeight(phase types.PhaseClass) float64 {
	if phase == types.PhaseThree {
		return HeightHVTrunk
	}
	return HeightLVTrunk
}

// Validate checks one path polyline for incompatible crossings with the
// existing conductors.
func (v *Validator) Validate(path orb.LineString, phase types.PhaseClass) Result {
	if len(path) < 2 {
		return Result{Valid: true}
	}

	newHeight := NewConductorHeight(phase)
	start := path[0]
	end := path[len(path)-1]

	var crossings []Crossing
	for _, i := range v.index.Intersecting(path.Bound()) {
		line := v.lines[i]
		if !line.IsObstacle {
			continue
		}
		lineStart := line.Geometry[0]
		lineEnd := line.Geometry[len(line.Geometry)-1]

		for _, pt := range geo.LinesIntersections(path, line.Geometry) {
			// A touch at the path's ends is the connection to a pole.
			if geo.Distance(pt, start) < endpointTol || geo.Distance(pt, end) < endpointTol {
				continue
			}
			// A conductor whose own end merely touches the path (a feed
			// span leaving a pole beside the route) is not a crossing.
			if geo.Distance(pt, lineStart) < endpointTol || geo.Distance(pt, lineEnd) < endpointTol {
				continue
			}
			gap := math.Abs(newHeight - EstimateHeight(line))
			if gap >= MinSeparation {
				continue
			}
			crossings = append(crossings, Crossing{
				LineID:    line.ID,
				LineClass: line.Class,
				Point:     pt,
				HeightGap: gap,
			})
		}
	}

	if len(crossings) > 0 {
		v.logger.Debug("path rejected by obstacle check", "crossings", len(crossings))
		return Result{Valid: false, Crossings: crossings}
	}
	return Result{Valid: true}
}
