// Package electrical implements the voltage-drop and transformer-capacity
// checks that validate a routed design.
package electrical

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/types"
)

// VoltageDrop is the result of one voltage-drop computation.
type VoltageDrop struct {
	DistanceM   float64          `json:"distance_m"`
	LoadKW      float64          `json:"load_kw"`
	Phase       types.PhaseClass `json:"-"`
	WireSpec    config.WireSpec  `json:"wire_spec"`
	CurrentA    float64          `json:"load_current_a"`
	DropV       float64          `json:"voltage_drop_v"`
	DropPercent float64          `json:"voltage_drop_percent"`
	LimitPct    float64          `json:"limit_percent"`
	Acceptable  bool             `json:"is_acceptable"`
	Message     string           `json:"message"`
}

// VoltageCalculator computes voltage drop for a span.
type VoltageCalculator struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewVoltageCalculator creates a calculator from the configuration.
func NewVoltageCalculator(cfg *config.Config) *VoltageCalculator {
	return &VoltageCalculator{cfg: cfg, logger: slog.Default()}
}

// nominal picks the nominal voltage and drop limit for a supply.
// voltageOverride carries a measured source voltage when the pole has one;
// zero means "use the nominal table".
func (c *VoltageCalculator) nominal(phase types.PhaseClass, highVoltage bool, voltageOverride float64) (float64, float64) {
	var nominal, limit float64
	switch {
	case highVoltage:
		nominal, limit = c.cfg.NominalVoltageHV, c.cfg.VoltageDropLimitHV
	case phase == types.PhaseThree:
		nominal, limit = c.cfg.NominalVoltageLV3P, c.cfg.VoltageDropLimitLV
	default:
		nominal, limit = c.cfg.NominalVoltageLV, c.cfg.VoltageDropLimitLV
	}
	if voltageOverride > 0 {
		nominal = voltageOverride
		if voltageOverride >= 1000 {
			limit = c.cfg.VoltageDropLimitHV
		}
	}
	return nominal, limit
}

// Calculate computes the voltage drop over a span.
//
// Single phase: ΔV = 2·I·(R·cosθ + X·sinθ)·L_km
// Three phase:  ΔV = √3·I·(R·cosθ + X·sinθ)·L_km
func (c *VoltageCalculator) Calculate(distanceM, loadKW float64, phase types.PhaseClass, spec config.WireSpec, highVoltage bool, voltageOverride float64) VoltageDrop {
	nominal, limit := c.nominal(phase, highVoltage, voltageOverride)

	cosT := c.cfg.PowerFactor
	sinT := math.Sqrt(1 - cosT*cosT)

	var current float64
	if phase == types.PhaseThree {
		current = loadKW * 1000 / (math.Sqrt(3) * nominal * cosT)
	} else {
		current = loadKW * 1000 / (nominal * cosT)
	}

	wire, ok := c.cfg.WireTable[spec]
	if !ok {
		wire = c.cfg.WireTable[config.WireOW22]
	}
	z := wire.ResistanceOhmKm*cosT + wire.ReactanceOhmKm*sinT

	lengthKm := distanceM / 1000
	var dropV float64
	if phase == types.PhaseThree {
		dropV = math.Sqrt(3) * current * z * lengthKm
	} else {
		dropV = 2 * current * z * lengthKm
	}
	dropPct := dropV / nominal * 100

	result := VoltageDrop{
		DistanceM:   distanceM,
		LoadKW:      loadKW,
		Phase:       phase,
		WireSpec:    spec,
		CurrentA:    round2(current),
		DropV:       round2(dropV),
		DropPercent: round2(dropPct),
		LimitPct:    limit,
		Acceptable:  dropPct <= limit,
	}
	if result.Acceptable {
		result.Message = fmt.Sprintf("voltage drop %.2f%% within the %.1f%% limit", dropPct, limit)
	} else {
		result.Message = fmt.Sprintf("voltage drop %.2f%% exceeds the %.1f%% limit", dropPct, limit)
	}
	return result
}

// MaxDistance solves the drop formula for the longest span that stays within
// the limit, in metres.
func (c *VoltageCalculator) MaxDistance(loadKW float64, phase types.PhaseClass, spec config.WireSpec, highVoltage bool) float64 {
	nominal, limit := c.nominal(phase, highVoltage, 0)

	cosT := c.cfg.PowerFactor
	sinT := math.Sqrt(1 - cosT*cosT)

	var current float64
	if phase == types.PhaseThree {
		current = loadKW * 1000 / (math.Sqrt(3) * nominal * cosT)
	} else {
		current = loadKW * 1000 / (nominal * cosT)
	}

	wire, ok := c.cfg.WireTable[spec]
	if !ok {
		wire = c.cfg.WireTable[config.WireOW22]
	}
	z := wire.ResistanceOhmKm*cosT + wire.ReactanceOhmKm*sinT
	if current == 0 || z == 0 {
		return math.Inf(1)
	}

	maxDropV := limit / 100 * nominal
	var maxKm float64
	if phase == types.PhaseThree {
		maxKm = maxDropV / (math.Sqrt(3) * current * z)
	} else {
		maxKm = maxDropV / (2 * current * z)
	}
	return math.Round(maxKm*1000*10) / 10
}

// RecommendWire picks the smallest spec from the ascending table that keeps
// the drop within tolerance, falling back to the largest when none does.
func (c *VoltageCalculator) RecommendWire(distanceM, loadKW float64, phase types.PhaseClass, highVoltage bool, voltageOverride float64) (config.WireSpec, VoltageDrop) {
	for _, spec := range config.WireOrder {
		result := c.Calculate(distanceM, loadKW, phase, spec, highVoltage, voltageOverride)
		if result.Acceptable {
			return spec, result
		}
	}
	largest := config.WireOrder[len(config.WireOrder)-1]
	result := c.Calculate(distanceM, loadKW, phase, largest, highVoltage, voltageOverride)
	c.logger.Warn("no wire spec meets the drop tolerance, using largest",
		"spec", largest, "drop_percent", result.DropPercent)
	return largest, result
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
