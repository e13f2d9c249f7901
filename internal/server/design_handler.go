package server

import (
	"encoding/json"
	"net/http"

	"github.com/paulmach/orb"

	"github.com/ELBIXishere/aidd/internal/pipeline"
	"github.com/ELBIXishere/aidd/internal/types"
)

// designRequest is the wire form of a design request. Coordinates are
// pointers so that a legitimate zero coordinate is distinguishable from a
// missing field.
type designRequest struct {
	X      *float64 `json:"x" validate:"required"`
	Y      *float64 `json:"y" validate:"required"`
	Phase  string   `json:"phase" validate:"required"`
	LoadKW float64  `json:"load_kw" validate:"omitempty,gt=0,lte=10000"`
}

func (s *Server) handleDesign(w http.ResponseWriter, r *http.Request) {
	var req designRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	phase, err := types.ParsePhaseClass(req.Phase)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	load := req.LoadKW
	if load == 0 {
		load = 5.0
	}

	resp := s.engine.Run(r.Context(), pipeline.Request{
		Consumer: orb.Point{*req.X, *req.Y},
		Phase:    phase,
		LoadKW:   load,
	})
	designRequests.WithLabelValues(string(resp.Status)).Inc()

	code := http.StatusOK
	if resp.Status == pipeline.StatusFailed {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, resp)
}
