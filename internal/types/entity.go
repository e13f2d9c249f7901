// Package types holds the processed facility entities shared across the
// design pipeline. Raw server features are normalised into these at the
// preprocessing boundary; everything downstream works with typed entities
// and planar metric coordinates.
package types

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// PhaseClass is the supply phase of a request, conductor or pole.
type PhaseClass int

const (
	PhaseSingle PhaseClass = iota
	PhaseThree
)

// ParsePhaseClass normalises the upstream phase codes ("1"/"3", with a few
// spelled-out variants seen in the wild) into a PhaseClass.
func ParsePhaseClass(code string) (PhaseClass, error) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "1", "single", "a", "b", "c":
		return PhaseSingle, nil
	case "3", "three", "abc":
		return PhaseThree, nil
	default:
		return PhaseSingle, fmt.Errorf("unknown phase class %q", code)
	}
}

func (p PhaseClass) String() string {
	if p == PhaseThree {
		return "three"
	}
	return "single"
}

// Code returns the upstream wire code for the phase class.
func (p PhaseClass) Code() string {
	if p == PhaseThree {
		return "3"
	}
	return "1"
}

// LineClass distinguishes medium-voltage trunk conductors from low-voltage
// service conductors.
type LineClass int

const (
	LineLV LineClass = iota
	LineHV
)

func (c LineClass) String() string {
	if c == LineHV {
		return "HV"
	}
	return "LV"
}

// PoleClass is the derived electrical role of a pole. Support poles carry no
// conductors of their own and are discarded during preprocessing.
type PoleClass int

const (
	PoleLV PoleClass = iota
	PoleHV
	PoleSupport
)

func (c PoleClass) String() string {
	switch c {
	case PoleHV:
		return "HV"
	case PoleSupport:
		return "SUPPORT"
	default:
		return "LV"
	}
}

// Pole is an existing distribution pole. Class and Phase are enrichment
// fields derived from nearby conductors after initial construction.
type Pole struct {
	ID             string
	Point          orb.Point
	Class          PoleClass
	Phase          PhaseClass
	Voltage        float64 // measured VOLT_VAL when present, 0 otherwise
	HasTransformer bool
	Props          map[string]any
}

// IsHighVoltage reports whether the pole belongs to the HV system. A
// measured voltage takes precedence over the derived class.
func (p *Pole) IsHighVoltage() bool {
	if p.Voltage > 0 {
		return p.Voltage >= 1000
	}
	return p.Class == PoleHV
}

// Line is an existing conductor span.
type Line struct {
	ID          string
	Geometry    orb.LineString
	Class       LineClass
	Phase       PhaseClass
	WireSpec    string
	Voltage     float64
	StartPoleID string
	EndPoleID   string
	IsObstacle  bool
	ServiceDrop bool
	Annotation  string
	Props       map[string]any
}

// IsHighVoltage reports whether the line is part of the HV system. The layer
// of origin is authoritative, but a measured voltage of 1 kV or more promotes
// a line regardless of layer.
func (l *Line) IsHighVoltage() bool {
	if l.Voltage >= 1000 {
		return true
	}
	return l.Class == LineHV
}

// Length returns the planar length of the conductor in metres.
func (l *Line) Length() float64 {
	total := 0.0
	for i := 1; i < len(l.Geometry); i++ {
		total += distance(l.Geometry[i-1], l.Geometry[i])
	}
	return total
}

// Transformer is a pole-mounted transformer bank.
type Transformer struct {
	ID          string
	Point       orb.Point
	CapacityKVA float64
	Phase       PhaseClass
	PoleID      string
	Props       map[string]any
}

// Road is a road centreline segment.
type Road struct {
	ID       string
	Geometry orb.LineString
	Category string
	Props    map[string]any
}

// Building is a building footprint. Only the exterior ring is required.
type Building struct {
	ID       string
	Geometry orb.Polygon
	Props    map[string]any
}

func distance(a, b orb.Point) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	return math.Sqrt(dx*dx + dy*dy)
}
