package types

import "sync"

// Topology is the processed view of one bounding box: typed entities plus
// lazily materialised derived views. It lives for the duration of a single
// design request.
type Topology struct {
	Poles        []*Pole
	Lines        []*Line
	Transformers []*Transformer
	Roads        []*Road
	Buildings    []*Building

	// RawCounts and FilteredCounts record how many features each layer
	// contributed before and after filtering, for diagnostics.
	RawCounts      map[string]int
	FilteredCounts map[string]int

	hvPolesOnce sync.Once
	hvPoles     []*Pole

	poleByIDOnce sync.Once
	poleByID     map[string]*Pole

	linesByPoleOnce sync.Once
	linesByPole     map[string][]*Line

	transformerByPoleOnce sync.Once
	transformerByPole     map[string]*Transformer
}

// HighVoltagePoles returns the poles attached to the HV system, materialised
// on first access.
func (t *Topology) HighVoltagePoles() []*Pole {
	t.hvPolesOnce.Do(func() {
		for _, p := range t.Poles {
			if p.IsHighVoltage() {
				t.hvPoles = append(t.hvPoles, p)
			}
		}
	})
	return t.hvPoles
}

// PoleByID returns the pole with the given id, or nil.
func (t *Topology) PoleByID(id string) *Pole {
	t.poleByIDOnce.Do(func() {
		t.poleByID = make(map[string]*Pole, len(t.Poles))
		for _, p := range t.Poles {
			t.poleByID[p.ID] = p
		}
	})
	return t.poleByID[id]
}

// LinesByPole returns the conductors whose endpoint links reference the
// given pole id.
func (t *Topology) LinesByPole(id string) []*Line {
	t.linesByPoleOnce.Do(func() {
		t.linesByPole = make(map[string][]*Line)
		for _, l := range t.Lines {
			if l.StartPoleID != "" {
				t.linesByPole[l.StartPoleID] = append(t.linesByPole[l.StartPoleID], l)
			}
			if l.EndPoleID != "" && l.EndPoleID != l.StartPoleID {
				t.linesByPole[l.EndPoleID] = append(t.linesByPole[l.EndPoleID], l)
			}
		}
	})
	return t.linesByPole[id]
}

// TransformerByPole returns the transformer snapped to the given pole, or
// nil when the pole carries none.
func (t *Topology) TransformerByPole(id string) *Transformer {
	t.transformerByPoleOnce.Do(func() {
		t.transformerByPole = make(map[string]*Transformer)
		for _, tr := range t.Transformers {
			if tr.PoleID != "" {
				t.transformerByPole[tr.PoleID] = tr
			}
		}
	})
	return t.transformerByPole[id]
}
