// Package topology normalises raw WFS features into typed entities and
// reconstructs the electrical topology: demolished and support facilities
// are dropped, lines are linked to their endpoint poles, transformers are
// snapped to poles, and every pole's electrical role is derived from the
// conductors around it.
package topology

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/geo"
	"github.com/ELBIXishere/aidd/internal/spatial"
	"github.com/ELBIXishere/aidd/internal/types"
	"github.com/ELBIXishere/aidd/internal/wfs"
)

// Preprocessor turns raw layers into a Topology.
type Preprocessor struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewPreprocessor creates a preprocessor with the given configuration.
func NewPreprocessor(cfg *config.Config) *Preprocessor {
	return &Preprocessor{cfg: cfg, logger: slog.Default()}
}

// Process normalises the raw layers. Individual malformed features are
// skipped (and aggregated into the returned warning error); only a wholesale
// failure is fatal to the caller.
func (p *Preprocessor) Process(raw wfs.RawLayers) (*types.Topology, error) {
	var warnings *multierror.Error

	topo := &types.Topology{
		RawCounts:      map[string]int{},
		FilteredCounts: map[string]int{},
	}
	for key, feats := range raw {
		topo.RawCounts[string(key)] = len(feats)
	}

	topo.Buildings = p.processBuildings(raw[wfs.LayerBuilding])
	topo.Roads = p.processRoads(raw[wfs.LayerRoad])

	poles, err := p.processPoles(raw[wfs.LayerPole])
	warnings = multierror.Append(warnings, err)
	topo.Poles = p.dropPolesInsideBuildings(poles, topo.Buildings)

	hvLines, err := p.processLines(raw[wfs.LayerLineHV], types.LineHV)
	warnings = multierror.Append(warnings, err)
	lvLines, err := p.processLines(raw[wfs.LayerLineLV], types.LineLV)
	warnings = multierror.Append(warnings, err)
	topo.Lines = append(hvLines, lvLines...)

	transformers, err := p.processTransformers(raw[wfs.LayerTransformer])
	warnings = multierror.Append(warnings, err)
	topo.Transformers = transformers

	p.linkLinesToPoles(topo.Lines, topo.Poles)
	p.linkTransformersToPoles(topo.Transformers, topo.Poles)
	p.enrichPoles(topo.Poles, topo.Lines)

	topo.FilteredCounts["poles"] = len(topo.Poles)
	topo.FilteredCounts["lines_hv"] = len(hvLines)
	topo.FilteredCounts["lines_lv"] = len(lvLines)
	topo.FilteredCounts["transformers"] = len(topo.Transformers)
	topo.FilteredCounts["roads"] = len(topo.Roads)
	topo.FilteredCounts["buildings"] = len(topo.Buildings)

	p.logger.Info("preprocessing complete",
		"poles", len(topo.Poles),
		"lines", len(topo.Lines),
		"transformers", len(topo.Transformers),
		"roads", len(topo.Roads),
		"buildings", len(topo.Buildings))

	return topo, warnings.ErrorOrNil()
}

// statusRemoved reports whether a facility's status code marks it demolished
// or removed.
func statusRemoved(props geojson.Properties) bool {
	switch strings.ToUpper(propString(props, "FAC_STAT_CD")) {
	case "D", "R", "DD", "RR":
		return true
	}
	return strings.ToUpper(propString(props, "REMOVE_YN")) == "Y"
}

func (p *Preprocessor) processPoles(feats []*geojson.Feature) ([]*types.Pole, error) {
	var errs *multierror.Error
	poles := make([]*types.Pole, 0, len(feats))
	for _, f := range feats {
		if f == nil || f.Geometry == nil {
			continue
		}
		if statusRemoved(f.Properties) {
			continue
		}
		// Support poles carry no circuit of their own.
		form := propString(f.Properties, "POLE_FORM_CD")
		if form == "" {
			form = propString(f.Properties, "POLE_TYPE")
		}
		if strings.EqualFold(form, "G") {
			continue
		}

		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("pole %s: geometry is %s, want point", featureID(f, "POLE_ID"), f.Geometry.GeoJSONType()))
			continue
		}

		pole := &types.Pole{
			ID:      featureID(f, "POLE_ID"),
			Point:   pt,
			Voltage: propFloat(f.Properties, "VOLT_VAL"),
			Props:   f.Properties,
		}
		poles = append(poles, pole)
	}
	return poles, errs.ErrorOrNil()
}

func (p *Preprocessor) processLines(feats []*geojson.Feature, class types.LineClass) ([]*types.Line, error) {
	var errs *multierror.Error
	lines := make([]*types.Line, 0, len(feats))
	for _, f := range feats {
		if f == nil || f.Geometry == nil {
			continue
		}
		if statusRemoved(f.Properties) {
			continue
		}

		ls, ok := lineString(f.Geometry)
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("line %s: geometry is %s, want linestring", featureID(f, "LINE_ID"), f.Geometry.GeoJSONType()))
			continue
		}
		if len(ls) < 2 {
			continue
		}

		phase, _ := types.ParsePhaseClass(propString(f.Properties, "PHAR_CLCD"))
		annotation := strings.ToUpper(propString(f.Properties, "TEXT_GIS_ANNXN"))
		kind := strings.ToUpper(propString(f.Properties, "PRWR_KND_CD"))

		line := &types.Line{
			ID:          featureID(f, "LINE_ID"),
			Geometry:    ls,
			Class:       class,
			Phase:       phase,
			WireSpec:    propString(f.Properties, "PRWR_SPEC_CD"),
			Voltage:     propFloat(f.Properties, "VOLT_VAL"),
			StartPoleID: propString(f.Properties, "LWER_FAC_GID"),
			EndPoleID:   propString(f.Properties, "UPPO_FAC_GID"),
			Annotation:  annotation,
			Props:       f.Properties,
		}

		if class == types.LineHV {
			// Trunk conductors on the HV layer are always obstacles.
			line.IsObstacle = true
		} else {
			// A drop-wire marker in either the kind code or the free-text
			// annotation makes the span a service drop.
			line.ServiceDrop = strings.Contains(kind, "DV") || strings.Contains(annotation, "DV")
			line.IsObstacle = !line.ServiceDrop
			if line.Voltage == 0 {
				if phase == types.PhaseThree {
					line.Voltage = p.cfg.NominalVoltageLV3P
				} else {
					line.Voltage = p.cfg.NominalVoltageLV
				}
			}
		}
		lines = append(lines, line)
	}
	return lines, errs.ErrorOrNil()
}

var capacityToken = regexp.MustCompile(`(\d+(?:\.\d+)?)X(\d+)`)

// ParseTransformerCapacity extracts the total kVA from a compact bank
// annotation like "30X1|20X2" (30·1 + 20·2 = 70). Tokens may be separated by
// pipes or whitespace; unknown text contributes nothing.
func ParseTransformerCapacity(annotation string) float64 {
	if annotation == "" {
		return 0
	}
	total := 0.0
	for _, m := range capacityToken.FindAllStringSubmatch(strings.ToUpper(annotation), -1) {
		capKVA, err1 := strconv.ParseFloat(m[1], 64)
		count, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		total += capKVA * count
	}
	return total
}

func (p *Preprocessor) processTransformers(feats []*geojson.Feature) ([]*types.Transformer, error) {
	var errs *multierror.Error
	trs := make([]*types.Transformer, 0, len(feats))
	for _, f := range feats {
		if f == nil || f.Geometry == nil {
			continue
		}
		if statusRemoved(f.Properties) {
			continue
		}
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}

		capKVA := ParseTransformerCapacity(propString(f.Properties, "TEXT_GIS_ANNXN"))
		if capKVA == 0 {
			if v := propFloat(f.Properties, "CAP_KVA"); v > 0 {
				capKVA = v
			} else if v := propFloat(f.Properties, "KVA"); v > 0 {
				capKVA = v
			}
		}

		phase, _ := types.ParsePhaseClass(propString(f.Properties, "PHAR_CLCD"))
		trs = append(trs, &types.Transformer{
			ID:          featureID(f, "TR_ID"),
			Point:       pt,
			CapacityKVA: capKVA,
			Phase:       phase,
			PoleID:      propString(f.Properties, "POLE_ID"),
			Props:       f.Properties,
		})
	}
	return trs, errs.ErrorOrNil()
}

func (p *Preprocessor) processRoads(feats []*geojson.Feature) []*types.Road {
	roads := make([]*types.Road, 0, len(feats))
	for _, f := range feats {
		if f == nil || f.Geometry == nil {
			continue
		}
		ls, ok := lineString(f.Geometry)
		if !ok || len(ls) < 2 {
			continue
		}
		category := propString(f.Properties, "ROAD_TYPE")
		if category == "" {
			category = propString(f.Properties, "ROAD_TP")
		}
		roads = append(roads, &types.Road{
			ID:       featureID(f, "ROAD_ID"),
			Geometry: ls,
			Category: category,
			Props:    f.Properties,
		})
	}
	return roads
}

func (p *Preprocessor) processBuildings(feats []*geojson.Feature) []*types.Building {
	buildings := make([]*types.Building, 0, len(feats))
	for _, f := range feats {
		if f == nil || f.Geometry == nil {
			continue
		}
		var poly orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			poly = g
		case orb.MultiPolygon:
			if len(g) == 0 {
				continue
			}
			poly = g[0]
		default:
			continue
		}
		if len(poly) == 0 || len(poly[0]) < 4 {
			continue
		}
		buildings = append(buildings, &types.Building{
			ID:       featureID(f, "BLDG_ID"),
			Geometry: poly,
			Props:    f.Properties,
		})
	}
	return buildings
}

// dropPolesInsideBuildings removes poles whose point lies inside a building
// footprint or on its boundary; those are data errors upstream.
func (p *Preprocessor) dropPolesInsideBuildings(poles []*types.Pole, buildings []*types.Building) []*types.Pole {
	if len(buildings) == 0 {
		return poles
	}

	index := spatial.NewEnvelopeIndex(25)
	for i, b := range buildings {
		index.Insert(i, b.Geometry.Bound())
	}

	kept := poles[:0]
	for _, pole := range poles {
		inside := false
		for _, i := range index.Intersecting(orb.Bound{Min: pole.Point, Max: pole.Point}) {
			if planar.PolygonContains(buildings[i].Geometry, pole.Point) {
				inside = true
				break
			}
		}
		if inside {
			p.logger.Debug("dropping pole inside building", "pole", pole.ID)
			continue
		}
		kept = append(kept, pole)
	}
	return kept
}

// linkLinesToPoles assigns missing endpoint pole ids by snapping each free
// line end to the nearest pole within the link radius.
func (p *Preprocessor) linkLinesToPoles(lines []*types.Line, poles []*types.Pole) {
	if len(poles) == 0 {
		return
	}

	grid := spatial.NewPointGrid(p.cfg.LineLinkRadiusM)
	for i, pole := range poles {
		grid.Insert(i, pole.Point)
	}

	linked := 0
	for _, line := range lines {
		if line.StartPoleID == "" {
			if i := grid.Nearest(line.Geometry[0], p.cfg.LineLinkRadiusM); i >= 0 {
				line.StartPoleID = poles[i].ID
				linked++
			}
		}
		if line.EndPoleID == "" {
			if i := grid.Nearest(line.Geometry[len(line.Geometry)-1], p.cfg.LineLinkRadiusM); i >= 0 {
				line.EndPoleID = poles[i].ID
				linked++
			}
		}
	}
	if linked > 0 {
		p.logger.Debug("linked line endpoints to poles", "count", linked)
	}
}

// linkTransformersToPoles snaps each unattached transformer to the nearest
// pole within the snap radius and flags that pole.
func (p *Preprocessor) linkTransformersToPoles(trs []*types.Transformer, poles []*types.Pole) {
	if len(trs) == 0 || len(poles) == 0 {
		return
	}

	grid := spatial.NewPointGrid(p.cfg.TransformerSnapM)
	byID := make(map[string]*types.Pole, len(poles))
	for i, pole := range poles {
		grid.Insert(i, pole.Point)
		byID[pole.ID] = pole
	}

	for _, tr := range trs {
		if tr.PoleID != "" {
			if pole, ok := byID[tr.PoleID]; ok {
				pole.HasTransformer = true
			}
			continue
		}
		if i := grid.Nearest(tr.Point, p.cfg.TransformerSnapM); i >= 0 {
			tr.PoleID = poles[i].ID
			poles[i].HasTransformer = true
		}
	}
}

// enrichPoles derives each pole's class and phase from the conductors within
// the enrichment radius. Results are cached process-wide by pole id; cached
// entries are reused verbatim so classifications stay stable across
// requests.
func (p *Preprocessor) enrichPoles(poles []*types.Pole, lines []*types.Line) {
	if len(poles) == 0 {
		return
	}

	var pending []*types.Pole
	for _, pole := range poles {
		if role, ok := poleRoles.get(pole.ID); ok {
			pole.Class = role.Class
			pole.Phase = role.Phase
			continue
		}
		pending = append(pending, pole)
	}
	if len(pending) == 0 || len(lines) == 0 {
		return
	}

	index := spatial.NewEnvelopeIndex(25)
	for i, line := range lines {
		index.Insert(i, line.Geometry.Bound())
	}

	radius := p.cfg.EnrichRadiusM
	for _, pole := range pending {
		query := orb.Bound{
			Min: orb.Point{pole.Point[0] - radius, pole.Point[1] - radius},
			Max: orb.Point{pole.Point[0] + radius, pole.Point[1] + radius},
		}

		nearHV := false
		nearThree := false
		for _, i := range index.Intersecting(query) {
			line := lines[i]
			if _, d, _ := geo.NearestOnLine(pole.Point, line.Geometry); d > radius {
				continue
			}
			if line.IsHighVoltage() {
				nearHV = true
			}
			if line.Phase == types.PhaseThree {
				nearThree = true
			}
		}

		role := Role{Class: types.PoleLV, Phase: types.PhaseSingle}
		if nearHV {
			role.Class = types.PoleHV
		}
		if nearThree {
			role.Phase = types.PhaseThree
		}
		pole.Class = role.Class
		pole.Phase = role.Phase
		poleRoles.put(pole.ID, role)
	}

	p.logger.Debug("pole enrichment", "analyzed", len(pending), "cached", len(poles)-len(pending))
}

func lineString(g orb.Geometry) (orb.LineString, bool) {
	switch v := g.(type) {
	case orb.LineString:
		return v, true
	case orb.MultiLineString:
		if len(v) == 0 {
			return nil, false
		}
		return v[0], true
	default:
		return nil, false
	}
}

func featureID(f *geojson.Feature, fallbackKey string) string {
	if f.ID != nil {
		switch id := f.ID.(type) {
		case string:
			if id != "" {
				return id
			}
		case float64:
			return strconv.FormatFloat(id, 'f', -1, 64)
		}
	}
	for _, key := range []string{"GID", fallbackKey, "FTR_IDN"} {
		if v := propString(f.Properties, key); v != "" {
			return v
		}
	}
	return ""
}

func propString(props geojson.Properties, key string) string {
	if props == nil {
		return ""
	}
	switch v := props[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func propFloat(props geojson.Properties, key string) float64 {
	if props == nil {
		return 0
	}
	switch v := props[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
