// Package config defines the runtime configuration. Defaults are registered
// with viper so every knob can be overridden from config.yaml, environment
// (AIDD_*) or flags; Load snapshots them into a typed struct that the
// pipeline passes around.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// WireSpec identifies a conductor specification from the unit-rate tables.
type WireSpec string

const (
	WireOW22    WireSpec = "OW_22"
	WireOW38    WireSpec = "OW_38"
	WireACSR58  WireSpec = "ACSR_58"
	WireACSR95  WireSpec = "ACSR_95"
	WireACSR160 WireSpec = "ACSR_160"
)

// WireOrder lists specs ascending by cross-section, the order the wire
// recommender walks.
var WireOrder = []WireSpec{WireOW22, WireOW38, WireACSR58, WireACSR95, WireACSR160}

// WireElectrical holds the per-km resistance and reactance of a spec.
type WireElectrical struct {
	ResistanceOhmKm float64
	ReactanceOhmKm  float64
}

// Config is the flat runtime configuration snapshot.
type Config struct {
	// Servers
	GISWFSURL  string
	BaseWFSURL string
	EPSURL     string
	ListenAddr string

	// Design constraints (metres / degrees)
	MaxReachM         float64
	BBoxSizeM         float64
	FastTrackM        float64
	PoleIntervalM     float64
	FirstPoleMaxM     float64
	RoadAccessM       float64
	RoadSnapM         float64
	ExistingPoleBufM  float64
	JunctionMergeM    float64
	TurnAngleDeg      float64
	LineLinkRadiusM   float64
	TransformerSnapM  float64
	EnrichRadiusM     float64
	VertexMergeM      float64
	PoleCostCoeff     float64
	MaxResults        int
	DuplicateCheckTop int

	// Unit rates (currency units)
	PoleCost         int
	WireCostHV       int
	WireCostLV       int
	LaborBaseCost    int
	RoadCrossingCost int
	PoleCostBySpec   map[string]int
	WireCostBySpec   map[WireSpec]int
	InsulatorCost    int
	ArmTieCost       int
	ClampCost        int
	ConnectorCost    int
	LaborPoleInstall int
	LaborWireStretch int
	LaborInsulator   int
	OverheadRate     float64
	ProfitRate       float64
	TransformerCost  map[int]int

	// Electrical
	VoltageDropLimitLV float64
	VoltageDropLimitHV float64
	NominalVoltageLV   float64
	NominalVoltageLV3P float64
	NominalVoltageHV   float64
	PowerFactor        float64
	WireTable          map[WireSpec]WireElectrical

	// Transformer loading
	OverloadWarning float64
	OverloadLimit   float64

	// Ranking weights
	ScoreWeightPole     int
	ScoreWeightDistance float64
	ScoreWeightTurn     int

	// HTTP / cache
	HTTPTimeout   time.Duration
	CacheTTL      time.Duration
	CacheCapacity int
	PoolSize      int
	PoolPerHost   int
}

// SetDefaults registers every configuration default with viper. Called from
// the root command before Load.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("gis_wfs_url", "http://localhost:8881/orange/wfs?GDX=AI_FAC.xml")
	v.SetDefault("base_wfs_url", "http://localhost:8881/orange/wfs?GDX=AI_BASE.xml")
	v.SetDefault("eps_url", "http://localhost:8881/ai/")
	v.SetDefault("listen_addr", ":8080")

	v.SetDefault("max_reach_m", 400.0)
	v.SetDefault("bbox_size_m", 400.0)
	v.SetDefault("fast_track_m", 40.0)
	v.SetDefault("pole_interval_m", 40.0)
	v.SetDefault("first_pole_max_m", 30.0)
	v.SetDefault("road_access_m", 100.0)
	v.SetDefault("road_snap_m", 10.0)
	v.SetDefault("min_existing_pole_buffer_m", 15.0)
	v.SetDefault("junction_merge_m", 10.0)
	v.SetDefault("turn_angle_threshold_deg", 150.0)
	v.SetDefault("line_link_radius_m", 15.0)
	v.SetDefault("transformer_snap_m", 20.0)
	v.SetDefault("enrich_radius_m", 2.5)
	v.SetDefault("vertex_merge_m", 1.0)
	v.SetDefault("pole_cost_coefficient", 5000.0)
	v.SetDefault("max_results", 10)
	v.SetDefault("duplicate_check_top", 5)

	v.SetDefault("pole_cost", 500000)
	v.SetDefault("wire_cost_hv", 8000)
	v.SetDefault("wire_cost_lv", 5000)
	v.SetDefault("labor_base_cost", 200000)
	v.SetDefault("road_crossing_cost", 100000)
	v.SetDefault("pole_cost_c10", 350000)
	v.SetDefault("pole_cost_c12", 450000)
	v.SetDefault("pole_cost_c14", 550000)
	v.SetDefault("wire_cost_ow_22", 5500)
	v.SetDefault("wire_cost_ow_38", 7000)
	v.SetDefault("wire_cost_acsr_58", 6500)
	v.SetDefault("wire_cost_acsr_95", 8500)
	v.SetDefault("wire_cost_acsr_160", 12000)
	v.SetDefault("insulator_cost", 25000)
	v.SetDefault("arm_tie_cost", 35000)
	v.SetDefault("clamp_cost", 15000)
	v.SetDefault("connector_cost", 8000)
	v.SetDefault("labor_pole_install", 250000)
	v.SetDefault("labor_wire_stretch", 15000)
	v.SetDefault("labor_insulator", 20000)
	v.SetDefault("overhead_rate", 0.15)
	v.SetDefault("profit_rate", 0.10)
	v.SetDefault("transformer_cost_10", 2500000)
	v.SetDefault("transformer_cost_20", 3000000)
	v.SetDefault("transformer_cost_30", 3500000)
	v.SetDefault("transformer_cost_50", 4500000)
	v.SetDefault("transformer_cost_100", 6500000)
	v.SetDefault("transformer_cost_200", 9500000)

	v.SetDefault("voltage_drop_limit_lv_percent", 6.0)
	v.SetDefault("voltage_drop_limit_hv_percent", 3.0)
	v.SetDefault("nominal_voltage_lv", 220.0)
	v.SetDefault("nominal_voltage_lv_3p", 380.0)
	v.SetDefault("nominal_voltage_hv", 22900.0)
	v.SetDefault("power_factor", 0.9)
	v.SetDefault("wire_resistance_ow_22", 0.827)
	v.SetDefault("wire_resistance_ow_38", 0.480)
	v.SetDefault("wire_resistance_acsr_58", 0.595)
	v.SetDefault("wire_resistance_acsr_95", 0.363)
	v.SetDefault("wire_resistance_acsr_160", 0.215)
	v.SetDefault("wire_reactance_ow_22", 0.400)
	v.SetDefault("wire_reactance_ow_38", 0.380)
	v.SetDefault("wire_reactance_acsr_58", 0.380)
	v.SetDefault("wire_reactance_acsr_95", 0.355)
	v.SetDefault("wire_reactance_acsr_160", 0.330)

	v.SetDefault("transformer_overload_warning", 0.75)
	v.SetDefault("transformer_overload_limit", 1.0)

	v.SetDefault("score_weight_pole", 10000)
	v.SetDefault("score_weight_distance", 1.0)
	v.SetDefault("score_weight_turn", 50)

	v.SetDefault("http_timeout_s", 30)
	v.SetDefault("cache_ttl_s", 300)
	v.SetDefault("cache_capacity", 100)
	v.SetDefault("pool_size", 10)
	v.SetDefault("pool_per_host", 5)
}

// Load snapshots the current viper state into a Config.
func Load(v *viper.Viper) *Config {
	return &Config{
		GISWFSURL:  v.GetString("gis_wfs_url"),
		BaseWFSURL: v.GetString("base_wfs_url"),
		EPSURL:     v.GetString("eps_url"),
		ListenAddr: v.GetString("listen_addr"),

		MaxReachM:         v.GetFloat64("max_reach_m"),
		BBoxSizeM:         v.GetFloat64("bbox_size_m"),
		FastTrackM:        v.GetFloat64("fast_track_m"),
		PoleIntervalM:     v.GetFloat64("pole_interval_m"),
		FirstPoleMaxM:     v.GetFloat64("first_pole_max_m"),
		RoadAccessM:       v.GetFloat64("road_access_m"),
		RoadSnapM:         v.GetFloat64("road_snap_m"),
		ExistingPoleBufM:  v.GetFloat64("min_existing_pole_buffer_m"),
		JunctionMergeM:    v.GetFloat64("junction_merge_m"),
		TurnAngleDeg:      v.GetFloat64("turn_angle_threshold_deg"),
		LineLinkRadiusM:   v.GetFloat64("line_link_radius_m"),
		TransformerSnapM:  v.GetFloat64("transformer_snap_m"),
		EnrichRadiusM:     v.GetFloat64("enrich_radius_m"),
		VertexMergeM:      v.GetFloat64("vertex_merge_m"),
		PoleCostCoeff:     v.GetFloat64("pole_cost_coefficient"),
		MaxResults:        v.GetInt("max_results"),
		DuplicateCheckTop: v.GetInt("duplicate_check_top"),

		PoleCost:         v.GetInt("pole_cost"),
		WireCostHV:       v.GetInt("wire_cost_hv"),
		WireCostLV:       v.GetInt("wire_cost_lv"),
		LaborBaseCost:    v.GetInt("labor_base_cost"),
		RoadCrossingCost: v.GetInt("road_crossing_cost"),
		PoleCostBySpec: map[string]int{
			"C10": v.GetInt("pole_cost_c10"),
			"C12": v.GetInt("pole_cost_c12"),
			"C14": v.GetInt("pole_cost_c14"),
		},
		WireCostBySpec: map[WireSpec]int{
			WireOW22:    v.GetInt("wire_cost_ow_22"),
			WireOW38:    v.GetInt("wire_cost_ow_38"),
			WireACSR58:  v.GetInt("wire_cost_acsr_58"),
			WireACSR95:  v.GetInt("wire_cost_acsr_95"),
			WireACSR160: v.GetInt("wire_cost_acsr_160"),
		},
		InsulatorCost:    v.GetInt("insulator_cost"),
		ArmTieCost:       v.GetInt("arm_tie_cost"),
		ClampCost:        v.GetInt("clamp_cost"),
		ConnectorCost:    v.GetInt("connector_cost"),
		LaborPoleInstall: v.GetInt("labor_pole_install"),
		LaborWireStretch: v.GetInt("labor_wire_stretch"),
		LaborInsulator:   v.GetInt("labor_insulator"),
		OverheadRate:     v.GetFloat64("overhead_rate"),
		ProfitRate:       v.GetFloat64("profit_rate"),
		TransformerCost: map[int]int{
			10:  v.GetInt("transformer_cost_10"),
			20:  v.GetInt("transformer_cost_20"),
			30:  v.GetInt("transformer_cost_30"),
			50:  v.GetInt("transformer_cost_50"),
			100: v.GetInt("transformer_cost_100"),
			200: v.GetInt("transformer_cost_200"),
		},

		VoltageDropLimitLV: v.GetFloat64("voltage_drop_limit_lv_percent"),
		VoltageDropLimitHV: v.GetFloat64("voltage_drop_limit_hv_percent"),
		NominalVoltageLV:   v.GetFloat64("nominal_voltage_lv"),
		NominalVoltageLV3P: v.GetFloat64("nominal_voltage_lv_3p"),
		NominalVoltageHV:   v.GetFloat64("nominal_voltage_hv"),
		PowerFactor:        v.GetFloat64("power_factor"),
		WireTable: map[WireSpec]WireElectrical{
			WireOW22:    {v.GetFloat64("wire_resistance_ow_22"), v.GetFloat64("wire_reactance_ow_22")},
			WireOW38:    {v.GetFloat64("wire_resistance_ow_38"), v.GetFloat64("wire_reactance_ow_38")},
			WireACSR58:  {v.GetFloat64("wire_resistance_acsr_58"), v.GetFloat64("wire_reactance_acsr_58")},
			WireACSR95:  {v.GetFloat64("wire_resistance_acsr_95"), v.GetFloat64("wire_reactance_acsr_95")},
			WireACSR160: {v.GetFloat64("wire_resistance_acsr_160"), v.GetFloat64("wire_reactance_acsr_160")},
		},

		OverloadWarning: v.GetFloat64("transformer_overload_warning"),
		OverloadLimit:   v.GetFloat64("transformer_overload_limit"),

		ScoreWeightPole:     v.GetInt("score_weight_pole"),
		ScoreWeightDistance: v.GetFloat64("score_weight_distance"),
		ScoreWeightTurn:     v.GetInt("score_weight_turn"),

		HTTPTimeout:   time.Duration(v.GetInt("http_timeout_s")) * time.Second,
		CacheTTL:      time.Duration(v.GetInt("cache_ttl_s")) * time.Second,
		CacheCapacity: v.GetInt("cache_capacity"),
		PoolSize:      v.GetInt("pool_size"),
		PoolPerHost:   v.GetInt("pool_per_host"),
	}
}

// Default returns a Config built from defaults only. Used by tests and the
// library entry points that do not go through cobra.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	return Load(v)
}
