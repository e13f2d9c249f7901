package electrical

import (
	"fmt"
	"sort"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/types"
)

// CapacityState classifies transformer loading after the new service.
type CapacityState string

const (
	CapacityOK       CapacityState = "ok"
	CapacityWarning  CapacityState = "warning"
	CapacityOverload CapacityState = "overload"
)

// CapacityCheck is the loading assessment of one transformer.
type CapacityCheck struct {
	TransformerID   string        `json:"transformer_id"`
	PoleID          string        `json:"pole_id"`
	CapacityKVA     float64       `json:"capacity_kva"`
	CurrentLoadKVA  float64       `json:"current_load_kva"`
	RequestLoadKVA  float64       `json:"requested_load_kva"`
	TotalLoadKVA    float64       `json:"total_load_kva"`
	Utilization     float64       `json:"utilization_rate"`
	AvailableKVA    float64       `json:"available_capacity_kva"`
	State           CapacityState `json:"state"`
	RecommendedKVA  int           `json:"recommended_capacity_kva,omitempty"`
	UpgradeCost     int           `json:"upgrade_cost,omitempty"`
	Message         string        `json:"message"`
}

// CapacityValidator assesses transformer headroom.
type CapacityValidator struct {
	cfg       *config.Config
	standards []int
}

// NewCapacityValidator creates a validator with the standard capacity steps
// taken from the cost table.
func NewCapacityValidator(cfg *config.Config) *CapacityValidator {
	standards := make([]int, 0, len(cfg.TransformerCost))
	for kva := range cfg.TransformerCost {
		standards = append(standards, kva)
	}
	sort.Ints(standards)
	return &CapacityValidator{cfg: cfg, standards: standards}
}

// Check computes the utilisation of a transformer with the requested load
// added: OK up to the warning threshold, Warning up to rated capacity,
// Overload beyond.
func (v *CapacityValidator) Check(tr *types.Transformer, currentLoadKVA, requestLoadKW float64) CapacityCheck {
	requestKVA := requestLoadKW / v.cfg.PowerFactor
	totalKVA := currentLoadKVA + requestKVA

	check := CapacityCheck{
		TransformerID:  tr.ID,
		PoleID:         tr.PoleID,
		CapacityKVA:    tr.CapacityKVA,
		CurrentLoadKVA: currentLoadKVA,
		RequestLoadKVA: round2(requestKVA),
		TotalLoadKVA:   round2(totalKVA),
	}

	if tr.CapacityKVA <= 0 {
		check.State = CapacityOverload
		check.Message = "transformer capacity unknown"
		return check
	}

	util := totalKVA / tr.CapacityKVA
	check.Utilization = round4(util)
	check.AvailableKVA = round2(maxf(0, tr.CapacityKVA-totalKVA))

	switch {
	case util <= v.cfg.OverloadWarning:
		check.State = CapacityOK
		check.Message = fmt.Sprintf("%.0f kVA bank at %.1f%% utilisation", tr.CapacityKVA, util*100)
	case util <= v.cfg.OverloadLimit:
		check.State = CapacityWarning
		check.Message = fmt.Sprintf("%.0f kVA bank at %.1f%% utilisation, above the %.0f%% advisory level",
			tr.CapacityKVA, util*100, v.cfg.OverloadWarning*100)
	default:
		check.State = CapacityOverload
		check.Message = fmt.Sprintf("%.0f kVA bank overloaded at %.1f%% utilisation", tr.CapacityKVA, util*100)
	}

	if check.State != CapacityOK {
		if kva, ok := v.Recommend(totalKVA); ok && float64(kva) > tr.CapacityKVA {
			check.RecommendedKVA = kva
			check.UpgradeCost = v.cfg.TransformerCost[kva]
		}
	}
	return check
}

// Recommend returns the smallest standard capacity whose utilisation for the
// given load stays at or below the warning threshold.
func (v *CapacityValidator) Recommend(loadKVA float64) (int, bool) {
	needed := loadKVA / v.cfg.OverloadWarning
	for _, kva := range v.standards {
		if float64(kva) >= needed {
			return kva, true
		}
	}
	if len(v.standards) == 0 {
		return 0, false
	}
	return v.standards[len(v.standards)-1], true
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
