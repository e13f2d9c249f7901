package pipeline

import (
	"github.com/paulmach/orb"

	"github.com/ELBIXishere/aidd/internal/cost"
	"github.com/ELBIXishere/aidd/internal/electrical"
	"github.com/ELBIXishere/aidd/internal/types"
)

// Status is the machine-usable outcome of a design request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusNoRoute Status = "no_route"
)

// Request is one design request from the outer surface. Coordinates are in
// the projected metric CRS.
type Request struct {
	RequestID string           `json:"request_id,omitempty"`
	Consumer  orb.Point        `json:"consumer"`
	Phase     types.PhaseClass `json:"-"`
	LoadKW    float64          `json:"load_kw"`
}

// Route is one ranked design alternative.
type Route struct {
	Rank          int                       `json:"rank"`
	CostIndex     int                       `json:"cost_index"`
	TotalCost     int                       `json:"total_cost"`
	TotalDistance float64                   `json:"total_distance_m"`
	StartPoleID   string                    `json:"start_pole_id"`
	StartPole     orb.Point                 `json:"start_pole_coord"`
	SourceClass   string                    `json:"source_voltage_type"`
	SourcePhase   string                    `json:"source_phase_type"`
	NewPoleCount  int                       `json:"new_pole_count"`
	NewPoles      []RoutePole               `json:"new_poles"`
	Path          orb.LineString            `json:"path_coordinates"`
	TurnCount     int                       `json:"turn_count"`
	PoleSpec      string                    `json:"pole_spec"`
	WireSpec      string                    `json:"wire_spec"`
	Breakdown     cost.Breakdown            `json:"cost_breakdown"`
	VoltageDrop   electrical.VoltageDrop    `json:"voltage_drop"`
	Capacity      *electrical.CapacityCheck `json:"capacity,omitempty"`
	FastTrack     bool                      `json:"fast_track"`
	Remark        string                    `json:"remark,omitempty"`
}

// RoutePole is one new pole of a route.
type RoutePole struct {
	ID         string    `json:"id"`
	Coord      orb.Point `json:"coord"`
	Sequence   int       `json:"sequence"`
	DistanceM  float64   `json:"distance_m"`
	IsJunction bool      `json:"is_junction"`
}

// Response is the result of one design request. Reason carries the
// human-readable explanation when Status is not success; timings are
// reported in every case.
type Response struct {
	Status       Status    `json:"status"`
	RequestID    string    `json:"request_id,omitempty"`
	Consumer     orb.Point `json:"consumer_coord"`
	Phase        string    `json:"phase"`
	LoadKW       float64   `json:"requested_load_kw"`
	Routes       []Route   `json:"routes,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	ProcessingMS int64     `json:"processing_time_ms"`
}
