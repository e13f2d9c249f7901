package wfs

// LayerKey identifies one of the facility / base-map layers the designer
// consumes.
type LayerKey string

const (
	LayerPole        LayerKey = "pole"
	LayerLineHV      LayerKey = "line_hv"
	LayerLineLV      LayerKey = "line_lv"
	LayerTransformer LayerKey = "transformer"
	LayerRoad        LayerKey = "road"
	LayerBuilding    LayerKey = "building"
	LayerRailway     LayerKey = "railway"
	LayerRiver       LayerKey = "river"
)

// Layer describes how a layer is requested from its WFS server.
type Layer struct {
	Key       LayerKey
	TypeName  string
	GeomField string
	// Props is the property projection sent with the query; the geometry
	// field is always included. Empty means "all properties".
	Props []string
	// Base is true for layers served by the base-map server rather than
	// the facility server.
	Base bool
	// Optional layers are fetched best-effort; a failure does not abort
	// FetchAll.
	Optional bool
}

// Layers is the registry of the consumed layers, keyed the way the
// preprocessor expects them. Type names follow the facility server's
// AI_FAC / AI_BASE catalogues.
var Layers = map[LayerKey]Layer{
	LayerPole: {
		Key: LayerPole, TypeName: "AI_FAC_001.GIS_LOC", GeomField: "GIS_LOC",
		Props: []string{"GID", "POLE_ID", "POLE_FORM_CD", "POLE_KND_CD", "POLE_SPEC_CD", "FAC_STAT_CD", "REMOVE_YN", "VOLT_VAL"},
	},
	LayerLineHV: {
		Key: LayerLineHV, TypeName: "AI_FAC_002.GIS_PTH", GeomField: "GIS_PTH",
		Props: []string{"GID", "PRWR_KND_CD", "PRWR_SPEC_CD", "PHAR_CLCD", "VOLT_VAL", "FAC_STAT_CD", "REMOVE_YN", "LWER_FAC_GID", "UPPO_FAC_GID", "TEXT_GIS_ANNXN"},
	},
	LayerLineLV: {
		Key: LayerLineLV, TypeName: "AI_FAC_003.GIS_PTH", GeomField: "GIS_PTH",
		Props: []string{"GID", "PRWR_KND_CD", "PRWR_SPEC_CD", "PHAR_CLCD", "VOLT_VAL", "FAC_STAT_CD", "REMOVE_YN", "LWER_FAC_GID", "UPPO_FAC_GID", "TEXT_GIS_ANNXN"},
	},
	LayerTransformer: {
		Key: LayerTransformer, TypeName: "AI_FAC_004.GIS_LOC", GeomField: "GIS_LOC",
		Props: []string{"GID", "TEXT_GIS_ANNXN", "PHAR_CLCD", "FAC_STAT_CD", "CAP_KVA", "KVA", "POLE_ID"},
	},
	LayerRoad: {
		Key: LayerRoad, TypeName: "AI_BASE_002.GIS_PTH_VAL", GeomField: "GIS_PTH_VAL",
		Props: []string{"ROAD_ID", "FTR_IDN", "ROAD_TYPE", "ROAD_TP"},
		Base:  true,
	},
	LayerBuilding: {
		Key: LayerBuilding, TypeName: "AI_BASE_004.GIS_AREA_VAL", GeomField: "GIS_AREA_VAL",
		Props: []string{"BLDG_ID", "FTR_IDN", "BLDG_TYPE"},
		Base:  true,
	},
	LayerRailway: {
		Key: LayerRailway, TypeName: "AI_BASE_003.GIS_AREA_VAL", GeomField: "GIS_AREA_VAL",
		Base: true, Optional: true,
	},
	LayerRiver: {
		Key: LayerRiver, TypeName: "AI_BASE_001.GIS_AREA_VAL", GeomField: "GIS_AREA_VAL",
		Base: true, Optional: true,
	},
}

// DesignLayers are the layers a design request needs, in fetch order.
var DesignLayers = []LayerKey{
	LayerPole, LayerLineHV, LayerLineLV, LayerTransformer, LayerRoad, LayerBuilding,
}

// ListingLayers are the layers the facility-listing endpoint returns.
var ListingLayers = []LayerKey{
	LayerPole, LayerLineHV, LayerLineLV, LayerTransformer, LayerRoad, LayerBuilding, LayerRailway, LayerRiver,
}
