package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 400.0, cfg.MaxReachM)
	assert.Equal(t, 40.0, cfg.FastTrackM)
	assert.Equal(t, 40.0, cfg.PoleIntervalM)
	assert.Equal(t, 30.0, cfg.FirstPoleMaxM)
	assert.Equal(t, 100.0, cfg.RoadAccessM)
	assert.Equal(t, 10.0, cfg.RoadSnapM)
	assert.Equal(t, 15.0, cfg.ExistingPoleBufM)
	assert.Equal(t, 10.0, cfg.JunctionMergeM)
	assert.Equal(t, 150.0, cfg.TurnAngleDeg)
	assert.Equal(t, 2.5, cfg.EnrichRadiusM)

	assert.Equal(t, 10000, cfg.ScoreWeightPole)
	assert.Equal(t, 1.0, cfg.ScoreWeightDistance)
	assert.Equal(t, 50, cfg.ScoreWeightTurn)

	assert.Equal(t, 6.0, cfg.VoltageDropLimitLV)
	assert.Equal(t, 3.0, cfg.VoltageDropLimitHV)
	assert.Equal(t, 0.9, cfg.PowerFactor)
	assert.Equal(t, 0.15, cfg.OverheadRate)
	assert.Equal(t, 0.10, cfg.ProfitRate)

	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 100, cfg.CacheCapacity)
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 5, cfg.PoolPerHost)
}

func TestWireTablesComplete(t *testing.T) {
	cfg := Default()
	for _, spec := range WireOrder {
		wire, ok := cfg.WireTable[spec]
		require.True(t, ok, "missing electrical data for %s", spec)
		assert.Greater(t, wire.ResistanceOhmKm, 0.0)
		assert.Greater(t, wire.ReactanceOhmKm, 0.0)

		unit, ok := cfg.WireCostBySpec[spec]
		require.True(t, ok, "missing unit cost for %s", spec)
		assert.Greater(t, unit, 0)
	}

	// Resistance must fall as the cross-section grows within a family.
	assert.Greater(t, cfg.WireTable[WireOW22].ResistanceOhmKm, cfg.WireTable[WireOW38].ResistanceOhmKm)
	assert.Greater(t, cfg.WireTable[WireACSR58].ResistanceOhmKm, cfg.WireTable[WireACSR160].ResistanceOhmKm)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("max_reach_m", 500.0)
	v.Set("cache_capacity", 10)

	cfg := Load(v)
	assert.Equal(t, 500.0, cfg.MaxReachM)
	assert.Equal(t, 10, cfg.CacheCapacity)
	assert.Equal(t, 40.0, cfg.PoleIntervalM, "untouched keys keep defaults")
}

func TestJunctionMergeBelowInterval(t *testing.T) {
	cfg := Default()
	assert.Less(t, cfg.JunctionMergeM, cfg.PoleIntervalM,
		"merge threshold must stay below the pole interval")
}
