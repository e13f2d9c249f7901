// Package cost turns an allocation into an itemised construction estimate
// and the composite index the ranking sorts by.
package cost

import (
	"log/slog"
	"math"

	"github.com/ELBIXishere/aidd/internal/allocate"
	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/types"
)

// Item is one line of the estimate.
type Item struct {
	Count    int     `json:"count,omitempty"`
	LengthM  float64 `json:"length_m,omitempty"`
	Spec     string  `json:"spec,omitempty"`
	UnitCost int     `json:"unit_cost,omitempty"`
	Cost     int     `json:"cost"`
}

// Materials is the material-cost breakdown.
type Materials struct {
	Pole      Item `json:"pole"`
	Wire      Item `json:"wire"`
	Insulator Item `json:"insulator"`
	ArmTie    Item `json:"arm_tie"`
	Clamp     Item `json:"clamp"`
	Connector Item `json:"connector"`
	Total     int  `json:"total"`
}

// Labor is the labour-cost breakdown.
type Labor struct {
	PoleInstall      Item `json:"pole_install"`
	WireStretch      Item `json:"wire_stretch"`
	InsulatorInstall Item `json:"insulator_install"`
	Base             int  `json:"base"`
	Total            int  `json:"total"`
}

// Breakdown is the full itemised estimate.
type Breakdown struct {
	Material     Materials `json:"material"`
	Labor        Labor     `json:"labor"`
	Subtotal     int       `json:"subtotal"`
	OverheadRate float64   `json:"overhead_rate"`
	Overhead     int       `json:"overhead_cost"`
	ProfitRate   float64   `json:"profit_rate"`
	Profit       int       `json:"profit_cost"`
	Extra        int       `json:"extra_cost"`
	ExtraDetail  string    `json:"extra_detail,omitempty"`
	Total        int       `json:"total"`
}

// Estimate is the costed view of one allocation.
type Estimate struct {
	Allocation allocate.Result
	PoleSpec   string
	WireSpec   config.WireSpec
	Breakdown  Breakdown
	TotalCost  int
	CostIndex  int
}

// Quantities derived per pole.
const (
	insulatorsPerPole = 3
	clampsPerPole     = 2
	armTiesPerPole    = 1
	connectorBaseline = 1
)

// defaultPoleSpec is the pole used for new LV service construction.
const defaultPoleSpec = "C10"

// Calculator prices allocations.
type Calculator struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a calculator.
func New(cfg *config.Config) *Calculator {
	return &Calculator{cfg: cfg, logger: slog.Default()}
}

// Index computes the composite cost index used for ranking:
//
//	poles·W_pole + round(distance·W_dist) + turns·W_turn
//
// The pole weight dominates so that one extra pole outranks any plausible
// length saving. Fast-track routes, which bypass pole-and-span
// construction, rank on distance alone.
func (c *Calculator) Index(poleCount int, distanceM float64, turnCount int, fastTrack bool) int {
	dist := int(math.Round(distanceM * c.cfg.ScoreWeightDistance))
	if fastTrack {
		return dist
	}
	return poleCount*c.cfg.ScoreWeightPole + dist + turnCount*c.cfg.ScoreWeightTurn
}

// Estimate prices one allocation with the given wire spec.
func (c *Calculator) Estimate(alloc allocate.Result, wireSpec config.WireSpec, phase types.PhaseClass) Estimate {
	poles := len(alloc.Poles)
	length := alloc.WireLengthM

	junctions := 0
	for _, p := range alloc.Poles {
		if p.IsJunction {
			junctions++
		}
	}

	wireUnit := c.cfg.WireCostBySpec[wireSpec]
	if wireUnit == 0 {
		if phase == types.PhaseThree {
			wireUnit = c.cfg.WireCostHV
		} else {
			wireUnit = c.cfg.WireCostLV
		}
	}
	poleUnit := c.cfg.PoleCostBySpec[defaultPoleSpec]
	if poleUnit == 0 {
		poleUnit = c.cfg.PoleCost
	}

	insulators := poles * insulatorsPerPole
	clamps := poles * clampsPerPole
	armTies := poles * armTiesPerPole
	connectors := connectorBaseline

	m := Materials{
		Pole:      Item{Count: poles, Spec: defaultPoleSpec, UnitCost: poleUnit, Cost: poles * poleUnit},
		Wire:      Item{LengthM: round1(length), Spec: string(wireSpec), UnitCost: wireUnit, Cost: int(math.Round(length)) * wireUnit},
		Insulator: Item{Count: insulators, UnitCost: c.cfg.InsulatorCost, Cost: insulators * c.cfg.InsulatorCost},
		ArmTie:    Item{Count: armTies, UnitCost: c.cfg.ArmTieCost, Cost: armTies * c.cfg.ArmTieCost},
		Clamp:     Item{Count: clamps, UnitCost: c.cfg.ClampCost, Cost: clamps * c.cfg.ClampCost},
		Connector: Item{Count: connectors, UnitCost: c.cfg.ConnectorCost, Cost: connectors * c.cfg.ConnectorCost},
	}
	m.Total = m.Pole.Cost + m.Wire.Cost + m.Insulator.Cost + m.ArmTie.Cost + m.Clamp.Cost + m.Connector.Cost

	l := Labor{
		PoleInstall:      Item{Count: poles, UnitCost: c.cfg.LaborPoleInstall, Cost: poles * c.cfg.LaborPoleInstall},
		WireStretch:      Item{LengthM: round1(length), UnitCost: c.cfg.LaborWireStretch, Cost: int(math.Round(length)) * c.cfg.LaborWireStretch},
		InsulatorInstall: Item{Count: insulators, UnitCost: c.cfg.LaborInsulator, Cost: insulators * c.cfg.LaborInsulator},
		Base:             c.cfg.LaborBaseCost,
	}
	l.Total = l.PoleInstall.Cost + l.WireStretch.Cost + l.InsulatorInstall.Cost + l.Base

	subtotal := m.Total + l.Total
	overhead := int(math.Round(float64(subtotal) * c.cfg.OverheadRate))
	profit := int(math.Round(float64(subtotal) * c.cfg.ProfitRate))

	extra := junctions * c.cfg.RoadCrossingCost
	extraDetail := ""
	if junctions > 0 {
		extraDetail = "road-crossing surcharge"
	}

	b := Breakdown{
		Material:     m,
		Labor:        l,
		Subtotal:     subtotal,
		OverheadRate: c.cfg.OverheadRate,
		Overhead:     overhead,
		ProfitRate:   c.cfg.ProfitRate,
		Profit:       profit,
		Extra:        extra,
		ExtraDetail:  extraDetail,
	}
	b.Total = subtotal + overhead + profit + extra

	return Estimate{
		Allocation: alloc,
		PoleSpec:   defaultPoleSpec,
		WireSpec:   wireSpec,
		Breakdown:  b,
		TotalCost:  b.Total,
		CostIndex:  c.Index(len(alloc.Poles), alloc.WireLengthM, alloc.TurnCount, alloc.Path.FastTrack),
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
