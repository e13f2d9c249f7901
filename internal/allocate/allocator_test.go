package allocate

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/pathfind"
)

func straightPath(length float64) *pathfind.Path {
	return &pathfind.Path{
		PoleID:    "P1",
		Coords:    orb.LineString{{0, 0}, {length, 0}},
		Distance:  length,
		Reachable: true,
	}
}

func positions(res Result) []float64 {
	out := make([]float64, len(res.Poles))
	for i, p := range res.Poles {
		out[i] = p.DistanceM
	}
	return out
}

func TestPoleCountFormula(t *testing.T) {
	a := New(config.Default())

	tests := []struct {
		distance float64
		want     int
	}{
		{30, 1},
		{70, 2},
		{120, 4},
		{400, 11},
	}
	for _, tt := range tests {
		res := a.Allocate(straightPath(tt.distance))
		assert.Len(t, res.Poles, tt.want, "distance %v", tt.distance)
		assert.InDelta(t, tt.distance, res.WireLengthM, 1e-9)
	}
}

func TestLinear120mPlacement(t *testing.T) {
	a := New(config.Default())
	res := a.Allocate(straightPath(120))

	require.Len(t, res.Poles, 4)
	got := positions(res)
	want := []float64{0, 40, 80, 105} // last at effective length 120-15
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "pole %d", i)
	}
	assert.Equal(t, 0, res.TurnCount)

	// First pole sits at the consumer.
	assert.Equal(t, orb.Point{0, 0}, res.Poles[0].Point)
	assert.Equal(t, 1, res.Poles[0].Sequence)
}

func TestSpacingInvariant(t *testing.T) {
	cfg := config.Default()
	a := New(cfg)
	for _, dist := range []float64{55, 123, 217, 388} {
		res := a.Allocate(straightPath(dist))
		require.NotEmpty(t, res.Poles)

		for i := 1; i < len(res.Poles); i++ {
			gap := res.Poles[i].DistanceM - res.Poles[i-1].DistanceM
			assert.LessOrEqual(t, gap, cfg.PoleIntervalM+1e-6, "distance %v", dist)
		}
		last := res.Poles[len(res.Poles)-1]
		assert.GreaterOrEqual(t, dist-last.DistanceM, cfg.ExistingPoleBufM-1e-6,
			"final pole must respect the existing-pole buffer at %v", dist)
	}
}

func TestJunctionForcesPole(t *testing.T) {
	a := New(config.Default())
	// Right-angle bend at 60 m, total 120 m.
	path := &pathfind.Path{
		PoleID:    "P1",
		Coords:    orb.LineString{{0, 0}, {60, 0}, {60, 60}},
		Distance:  120,
		Reachable: true,
	}
	res := a.Allocate(path)

	assert.Equal(t, 1, res.TurnCount)
	var junction *NewPole
	for i := range res.Poles {
		if res.Poles[i].IsJunction {
			junction = &res.Poles[i]
		}
	}
	require.NotNil(t, junction, "the bend must get a pole")
	assert.InDelta(t, 60.0, junction.DistanceM, 1e-6)
	assert.Equal(t, orb.Point{60, 0}, junction.Point)
}

func TestJunctionWinsMerge(t *testing.T) {
	a := New(config.Default())
	// Bend at 43 m: within the 10 m merge window of the 40 m uniform
	// position. The junction keeps its exact position.
	path := &pathfind.Path{
		PoleID:    "P1",
		Coords:    orb.LineString{{0, 0}, {43, 0}, {43, 77}},
		Distance:  120,
		Reachable: true,
	}
	res := a.Allocate(path)

	found := false
	for _, p := range res.Poles {
		if p.IsJunction {
			found = true
			assert.InDelta(t, 43.0, p.DistanceM, 1e-6)
		}
		assert.NotInDelta(t, 40.0, p.DistanceM, 1.0, "uniform pole must merge into the junction")
	}
	assert.True(t, found)
}

func TestGentleBendIsNotJunction(t *testing.T) {
	a := New(config.Default())
	// 170-degree bend: above the 150-degree threshold.
	path := &pathfind.Path{
		PoleID:    "P1",
		Coords:    orb.LineString{{0, 0}, {60, 0}, {120, 10.5}},
		Distance:  121,
		Reachable: true,
	}
	res := a.Allocate(path)
	assert.Equal(t, 0, res.TurnCount)
}

func TestFastTrackSinglePole(t *testing.T) {
	a := New(config.Default())
	path := &pathfind.Path{
		PoleID:    "ft",
		Coords:    orb.LineString{{100, 100}, {130, 100}},
		Distance:  30,
		Reachable: true,
		FastTrack: true,
	}
	res := a.Allocate(path)

	require.Len(t, res.Poles, 1)
	assert.Equal(t, orb.Point{100, 100}, res.Poles[0].Point)
	assert.InDelta(t, 30.0, res.WireLengthM, 1e-9)
	assert.Equal(t, 0, res.TurnCount)
}

func TestVeryShortPathSinglePole(t *testing.T) {
	a := New(config.Default())
	// Existing pole only 12 m out: inside the no-placement buffer, so only
	// the consumer pole is placed.
	res := a.Allocate(straightPath(12))
	require.Len(t, res.Poles, 1)
	assert.InDelta(t, 0.0, res.Poles[0].DistanceM, 1e-9)
}

func TestUnreachablePathAllocatesNothing(t *testing.T) {
	a := New(config.Default())
	res := a.Allocate(&pathfind.Path{PoleID: "x", Reachable: false})
	assert.Empty(t, res.Poles)
}
