package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/ELBIXishere/aidd/internal/types"
)

// facilitiesResponse is the serialisable listing of one bounding box.
type facilitiesResponse struct {
	BBox   string                        `json:"bbox"`
	Counts map[string]int                `json:"counts"`
	Layers map[string]*geojson.FeatureCollection `json:"layers"`
}

// handleFacilities runs S1–S2 for an explicit bounding box and returns the
// processed entities as GeoJSON per layer. bbox is "minx,miny,maxx,maxy".
func (s *Server) handleFacilities(w http.ResponseWriter, r *http.Request) {
	bbox, err := parseBBox(r.URL.Query().Get("bbox"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	topo, err := s.engine.Facilities(r.Context(), bbox)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp := facilitiesResponse{
		BBox:   bbox.String(),
		Counts: topo.FilteredCounts,
		Layers: map[string]*geojson.FeatureCollection{
			"poles":        polesCollection(topo),
			"lines_hv":     linesCollection(topo, true),
			"lines_lv":     linesCollection(topo, false),
			"transformers": transformersCollection(topo),
			"roads":        roadsCollection(topo),
			"buildings":    buildingsCollection(topo),
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseBBox(raw string) (types.BoundingBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return types.BoundingBox{}, errBadBBox
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return types.BoundingBox{}, errBadBBox
		}
		vals[i] = v
	}
	bbox := types.BoundingBox{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}
	if bbox.MinX >= bbox.MaxX || bbox.MinY >= bbox.MaxY {
		return types.BoundingBox{}, errBadBBox
	}
	return bbox, nil
}

var errBadBBox = &bboxError{}

type bboxError struct{}

func (*bboxError) Error() string {
	return "bbox must be \"minx,miny,maxx,maxy\" with min < max"
}

func polesCollection(topo *types.Topology) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range topo.Poles {
		f := geojson.NewFeature(p.Point)
		f.ID = p.ID
		f.Properties = geojson.Properties{
			"id":              p.ID,
			"pole_type":       p.Class.String(),
			"phase_code":      p.Phase.Code(),
			"has_transformer": p.HasTransformer,
		}
		if p.Voltage > 0 {
			f.Properties["voltage"] = p.Voltage
		}
		fc.Append(f)
	}
	return fc
}

func linesCollection(topo *types.Topology, highVoltage bool) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range topo.Lines {
		if l.IsHighVoltage() != highVoltage {
			continue
		}
		f := geojson.NewFeature(l.Geometry)
		f.ID = l.ID
		f.Properties = geojson.Properties{
			"id":              l.ID,
			"line_type":       l.Class.String(),
			"phase_code":      l.Phase.Code(),
			"is_obstacle":     l.IsObstacle,
			"is_service_drop": l.ServiceDrop,
		}
		if l.WireSpec != "" {
			f.Properties["wire_spec"] = l.WireSpec
		}
		fc.Append(f)
	}
	return fc
}

func transformersCollection(topo *types.Topology) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, t := range topo.Transformers {
		f := geojson.NewFeature(t.Point)
		f.ID = t.ID
		f.Properties = geojson.Properties{
			"id":           t.ID,
			"capacity_kva": t.CapacityKVA,
			"phase_code":   t.Phase.Code(),
		}
		if t.PoleID != "" {
			f.Properties["pole_id"] = t.PoleID
		}
		fc.Append(f)
	}
	return fc
}

func roadsCollection(topo *types.Topology) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, rd := range topo.Roads {
		f := geojson.NewFeature(rd.Geometry)
		f.ID = rd.ID
		f.Properties = geojson.Properties{"id": rd.ID}
		if rd.Category != "" {
			f.Properties["category"] = rd.Category
		}
		fc.Append(f)
	}
	return fc
}

func buildingsCollection(topo *types.Topology) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, b := range topo.Buildings {
		f := geojson.NewFeature(b.Geometry)
		f.ID = b.ID
		f.Properties = geojson.Properties{"id": b.ID}
		fc.Append(f)
	}
	return fc
}
