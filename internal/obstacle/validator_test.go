package obstacle

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELBIXishere/aidd/internal/types"
)

func trunk(id string, class types.LineClass, coords orb.LineString) *types.Line {
	return &types.Line{ID: id, Class: class, Geometry: coords, IsObstacle: true}
}

func topoWithLines(lines ...*types.Line) *types.Topology {
	return &types.Topology{Lines: lines}
}

func TestEstimateHeight(t *testing.T) {
	tests := []struct {
		name string
		line *types.Line
		want float64
	}{
		{"ground wire annotation", &types.Line{Class: types.LineHV, Annotation: "OHGW 1.2", IsObstacle: true}, HeightGroundWire},
		{"hv trunk", &types.Line{Class: types.LineHV}, HeightHVTrunk},
		{"lv trunk", &types.Line{Class: types.LineLV}, HeightLVTrunk},
		{"voltage promotes", &types.Line{Class: types.LineLV, Voltage: 22900}, HeightHVTrunk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EstimateHeight(tt.line), 1e-9)
		})
	}
}

func TestNewConductorHeight(t *testing.T) {
	assert.InDelta(t, HeightHVTrunk, NewConductorHeight(types.PhaseThree), 1e-9)
	assert.InDelta(t, HeightLVTrunk, NewConductorHeight(types.PhaseSingle), 1e-9)
}

func TestSameHeightCrossingBlocks(t *testing.T) {
	// New HV conductor at 10.5 m crossing an existing HV trunk at 10.5 m.
	v := New(topoWithLines(
		trunk("hv1", types.LineHV, orb.LineString{{50, -50}, {50, 50}}),
	))
	res := v.Validate(orb.LineString{{0, 0}, {100, 0}}, types.PhaseThree)

	require.False(t, res.Valid)
	require.Len(t, res.Crossings, 1)
	assert.Equal(t, "hv1", res.Crossings[0].LineID)
	assert.InDelta(t, 0.0, res.Crossings[0].HeightGap, 1e-9)
	assert.Contains(t, res.Reason(), "hv1")
}

func TestSafeThreeDimensionalCrossing(t *testing.T) {
	// New LV conductor at 8.5 m under an HV trunk at 10.5 m: 2.0 m >= 1.5.
	v := New(topoWithLines(
		trunk("hv1", types.LineHV, orb.LineString{{50, -50}, {50, 50}}),
	))
	res := v.Validate(orb.LineString{{0, 0}, {100, 0}}, types.PhaseSingle)
	assert.True(t, res.Valid)
}

func TestServiceDropNeverBlocks(t *testing.T) {
	drop := &types.Line{
		ID: "drop", Class: types.LineLV, ServiceDrop: true, IsObstacle: false,
		Geometry: orb.LineString{{50, -50}, {50, 50}},
	}
	v := New(topoWithLines(drop))
	res := v.Validate(orb.LineString{{0, 0}, {100, 0}}, types.PhaseSingle)
	assert.True(t, res.Valid)
}

func TestEndpointConnectionAllowed(t *testing.T) {
	// The existing LV trunk passes through the path's end point, where the
	// new conductor ties in.
	v := New(topoWithLines(
		trunk("lv1", types.LineLV, orb.LineString{{100, -50}, {100, 50}}),
	))
	res := v.Validate(orb.LineString{{0, 0}, {100, 0}}, types.PhaseSingle)
	assert.True(t, res.Valid, "intersection at the path end is the pole connection")
}

func TestMidPathLVCrossingBlocksLVRequest(t *testing.T) {
	v := New(topoWithLines(
		trunk("lv1", types.LineLV, orb.LineString{{30, -50}, {30, 50}}),
	))
	res := v.Validate(orb.LineString{{0, 0}, {100, 0}}, types.PhaseSingle)
	require.False(t, res.Valid)
	assert.Equal(t, "lv1", res.Crossings[0].LineID)
}

func TestGroundWireCrossingIsSafe(t *testing.T) {
	gw := &types.Line{
		ID: "gw", Class: types.LineHV, Annotation: "OHGW", IsObstacle: true,
		Geometry: orb.LineString{{50, -50}, {50, 50}},
	}
	// New HV at 10.5 vs ground wire at 12.0: 1.5 m separation is safe.
	v := New(topoWithLines(gw))
	res := v.Validate(orb.LineString{{0, 0}, {100, 0}}, types.PhaseThree)
	assert.True(t, res.Valid)
}

func TestShortPathSkipsValidation(t *testing.T) {
	v := New(topoWithLines())
	assert.True(t, v.Validate(orb.LineString{{0, 0}}, types.PhaseSingle).Valid)
}
