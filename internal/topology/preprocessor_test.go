package topology

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/types"
	"github.com/ELBIXishere/aidd/internal/wfs"
)

func feature(geom orb.Geometry, props map[string]any) *geojson.Feature {
	f := geojson.NewFeature(geom)
	f.Properties = props
	return f
}

func pole(id string, x, y float64, extra map[string]any) *geojson.Feature {
	props := map[string]any{"GID": id}
	for k, v := range extra {
		props[k] = v
	}
	return feature(orb.Point{x, y}, props)
}

func line(id string, coords orb.LineString, extra map[string]any) *geojson.Feature {
	props := map[string]any{"GID": id}
	for k, v := range extra {
		props[k] = v
	}
	return feature(coords, props)
}

func process(t *testing.T, raw wfs.RawLayers) *types.Topology {
	t.Helper()
	ResetRoleCache()
	topo, err := NewPreprocessor(config.Default()).Process(raw)
	require.NoError(t, err)
	return topo
}

func TestProcessDropsRemovedAndSupportPoles(t *testing.T) {
	topo := process(t, wfs.RawLayers{
		wfs.LayerPole: {
			pole("ok", 0, 0, nil),
			pole("demolished", 1, 0, map[string]any{"FAC_STAT_CD": "D"}),
			pole("removed", 2, 0, map[string]any{"FAC_STAT_CD": "RR"}),
			pole("flagged", 3, 0, map[string]any{"REMOVE_YN": "Y"}),
			pole("support", 4, 0, map[string]any{"POLE_FORM_CD": "G"}),
		},
	})

	require.Len(t, topo.Poles, 1)
	assert.Equal(t, "ok", topo.Poles[0].ID)
}

func TestProcessDropsPolesInsideBuildings(t *testing.T) {
	topo := process(t, wfs.RawLayers{
		wfs.LayerPole: {
			pole("inside", 5, 5, nil),
			pole("outside", 50, 50, nil),
		},
		wfs.LayerBuilding: {
			feature(orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}, map[string]any{"BLDG_ID": "B1"}),
		},
	})

	require.Len(t, topo.Poles, 1)
	assert.Equal(t, "outside", topo.Poles[0].ID)
}

func TestProcessClassifiesLines(t *testing.T) {
	topo := process(t, wfs.RawLayers{
		wfs.LayerLineHV: {
			line("hv1", orb.LineString{{0, 0}, {100, 0}}, map[string]any{"PHAR_CLCD": "3"}),
		},
		wfs.LayerLineLV: {
			line("lv1", orb.LineString{{0, 10}, {100, 10}}, map[string]any{"PHAR_CLCD": "1"}),
			line("drop", orb.LineString{{0, 20}, {30, 20}}, map[string]any{"PRWR_KND_CD": "DV"}),
			line("drop2", orb.LineString{{0, 30}, {30, 30}}, map[string]any{"TEXT_GIS_ANNXN": "DV 2.0"}),
			line("short", orb.LineString{{0, 40}}, nil),
		},
	})

	require.Len(t, topo.Lines, 4, "degenerate polyline must be dropped")

	byID := map[string]*types.Line{}
	for _, l := range topo.Lines {
		byID[l.ID] = l
	}

	hv := byID["hv1"]
	assert.Equal(t, types.LineHV, hv.Class)
	assert.Equal(t, types.PhaseThree, hv.Phase)
	assert.True(t, hv.IsObstacle, "HV trunk is always an obstacle")

	lv := byID["lv1"]
	assert.Equal(t, types.LineLV, lv.Class)
	assert.True(t, lv.IsObstacle)
	assert.InDelta(t, 220.0, lv.Voltage, 1e-9, "LV single phase defaults to 220 V")

	for _, id := range []string{"drop", "drop2"} {
		l := byID[id]
		assert.True(t, l.ServiceDrop, "%s must be a service drop", id)
		assert.False(t, l.IsObstacle, "service drop is never an obstacle")
	}
}

func TestParseTransformerCapacity(t *testing.T) {
	tests := []struct {
		annotation string
		want       float64
	}{
		{"30X1|20X2", 70},
		{"30X1 20X2", 70},
		{"100X1", 100},
		{"50x2", 100}, // case-insensitive
		{"", 0},
		{"no numbers", 0},
		{"75KVA", 0}, // not the AxB form
	}
	for _, tt := range tests {
		t.Run(tt.annotation, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseTransformerCapacity(tt.annotation), 1e-9)
		})
	}
}

func TestTransformerCapacityFallback(t *testing.T) {
	topo := process(t, wfs.RawLayers{
		wfs.LayerTransformer: {
			feature(orb.Point{1, 1}, map[string]any{"GID": "T1", "TEXT_GIS_ANNXN": "30X1|20X2"}),
			feature(orb.Point{2, 2}, map[string]any{"GID": "T2", "CAP_KVA": 75.0}),
		},
	})

	require.Len(t, topo.Transformers, 2)
	assert.InDelta(t, 70.0, topo.Transformers[0].CapacityKVA, 1e-9)
	assert.InDelta(t, 75.0, topo.Transformers[1].CapacityKVA, 1e-9)
}

func TestLinkLinesToPoles(t *testing.T) {
	topo := process(t, wfs.RawLayers{
		wfs.LayerPole: {
			pole("P1", 0, 0, nil),
			pole("P2", 100, 0, nil),
			pole("PFar", 500, 500, nil),
		},
		wfs.LayerLineLV: {
			// Endpoints a few metres from the poles, no explicit link ids.
			line("L1", orb.LineString{{2, 0}, {97, 0}}, nil),
			// Explicit ids are kept.
			line("L2", orb.LineString{{0, 10}, {100, 10}}, map[string]any{
				"LWER_FAC_GID": "P1", "UPPO_FAC_GID": "P2",
			}),
		},
	})

	byID := map[string]*types.Line{}
	for _, l := range topo.Lines {
		byID[l.ID] = l
	}
	assert.Equal(t, "P1", byID["L1"].StartPoleID)
	assert.Equal(t, "P2", byID["L1"].EndPoleID)
	assert.Equal(t, "P1", byID["L2"].StartPoleID)
	assert.Equal(t, "P2", byID["L2"].EndPoleID)
}

func TestLinkTransformersToPoles(t *testing.T) {
	topo := process(t, wfs.RawLayers{
		wfs.LayerPole: {
			pole("P1", 0, 0, nil),
			pole("P2", 200, 0, nil),
		},
		wfs.LayerTransformer: {
			feature(orb.Point{3, 0}, map[string]any{"GID": "T1", "TEXT_GIS_ANNXN": "50X1"}),
			feature(orb.Point{500, 500}, map[string]any{"GID": "TFar", "TEXT_GIS_ANNXN": "50X1"}),
		},
	})

	require.Len(t, topo.Transformers, 2)
	assert.Equal(t, "P1", topo.Transformers[0].PoleID)
	assert.Empty(t, topo.Transformers[1].PoleID, "transformer beyond snap radius stays unattached")

	assert.True(t, topo.PoleByID("P1").HasTransformer)
	assert.False(t, topo.PoleByID("P2").HasTransformer)
}

func TestEnrichPolesFromNearbyConductors(t *testing.T) {
	raw := wfs.RawLayers{
		wfs.LayerPole: {
			pole("hvpole", 0, 0, nil),
			pole("lvpole", 100, 100, nil),
		},
		wfs.LayerLineHV: {
			// Passes within the 2.5 m enrichment radius of hvpole.
			line("hv1", orb.LineString{{-50, 1}, {50, 1}}, map[string]any{"PHAR_CLCD": "3"}),
		},
		wfs.LayerLineLV: {
			line("lv1", orb.LineString{{50, 100}, {150, 100}}, map[string]any{"PHAR_CLCD": "1"}),
		},
	}
	topo := process(t, raw)

	hv := topo.PoleByID("hvpole")
	require.NotNil(t, hv)
	assert.Equal(t, types.PoleHV, hv.Class)
	assert.Equal(t, types.PhaseThree, hv.Phase)

	lv := topo.PoleByID("lvpole")
	require.NotNil(t, lv)
	assert.Equal(t, types.PoleLV, lv.Class)
	assert.Equal(t, types.PhaseSingle, lv.Phase)
}

func TestEnrichmentIsCachedAcrossRuns(t *testing.T) {
	raw := wfs.RawLayers{
		wfs.LayerPole: {pole("p", 0, 0, nil)},
		wfs.LayerLineHV: {
			line("hv1", orb.LineString{{-10, 0}, {10, 0}}, map[string]any{"PHAR_CLCD": "3"}),
		},
	}
	topo1 := process(t, raw)
	require.Equal(t, types.PoleHV, topo1.PoleByID("p").Class)
	require.Equal(t, 1, RoleCacheSize())

	// Re-run with the conductor gone: the cached classification must win.
	pre := NewPreprocessor(config.Default())
	topo2, err := pre.Process(wfs.RawLayers{
		wfs.LayerPole: {pole("p", 0, 0, nil)},
	})
	require.NoError(t, err)
	assert.Equal(t, types.PoleHV, topo2.PoleByID("p").Class)
	assert.Equal(t, types.PhaseThree, topo2.PoleByID("p").Phase)
}

func TestProcessDeterministicCounts(t *testing.T) {
	raw := wfs.RawLayers{
		wfs.LayerPole: {pole("a", 0, 0, nil), pole("b", 10, 0, nil)},
		wfs.LayerLineLV: {
			line("l", orb.LineString{{0, 0}, {10, 0}}, nil),
		},
		wfs.LayerRoad: {
			line("r", orb.LineString{{0, 5}, {100, 5}}, nil),
		},
	}
	topo1 := process(t, raw)
	topo2 := process(t, raw)
	assert.Equal(t, topo1.FilteredCounts, topo2.FilteredCounts)
}
