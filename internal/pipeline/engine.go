// Package pipeline wires the design stages together: fetch, preprocess,
// select, build the road graph, route, validate, allocate, cost and rank.
// One Engine is shared process-wide; everything per-request lives on the
// stack of Run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/ELBIXishere/aidd/internal/allocate"
	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/cost"
	"github.com/ELBIXishere/aidd/internal/electrical"
	"github.com/ELBIXishere/aidd/internal/eps"
	"github.com/ELBIXishere/aidd/internal/geo"
	"github.com/ELBIXishere/aidd/internal/obstacle"
	"github.com/ELBIXishere/aidd/internal/pathfind"
	"github.com/ELBIXishere/aidd/internal/roadgraph"
	"github.com/ELBIXishere/aidd/internal/selector"
	"github.com/ELBIXishere/aidd/internal/topology"
	"github.com/ELBIXishere/aidd/internal/types"
	"github.com/ELBIXishere/aidd/internal/wfs"
	"github.com/ELBIXishere/aidd/internal/worker"
)

// Fetcher is the slice of the WFS client the engine needs. Tests substitute
// a stub.
type Fetcher interface {
	FetchAll(ctx context.Context, center orb.Point, size float64) (wfs.RawLayers, error)
	FetchLayers(ctx context.Context, bbox types.BoundingBox, keys []wfs.LayerKey) (wfs.RawLayers, error)
}

// FeederTracer is the advisory duplicate-feeder collaborator.
type FeederTracer interface {
	Healthy(ctx context.Context) bool
	CheckDuplicates(ctx context.Context, poleIDs []string) eps.DuplicateCheck
}

// Engine runs design requests.
type Engine struct {
	cfg     *config.Config
	fetcher Fetcher
	tracer  FeederTracer
	logger  *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithFeederTracer installs the duplicate-feeder collaborator.
func WithFeederTracer(t FeederTracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over a fetcher.
func NewEngine(cfg *config.Config, fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, fetcher: fetcher, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one design request through S1–S8 and returns the ranked
// routes. Failures collapse into the response status; the processing time
// is reported either way.
func (e *Engine) Run(ctx context.Context, req Request) Response {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	resp := Response{
		Status:    StatusFailed,
		RequestID: req.RequestID,
		Consumer:  req.Consumer,
		Phase:     req.Phase.String(),
		LoadKW:    req.LoadKW,
	}
	finish := func(r Response) Response {
		r.ProcessingMS = time.Since(start).Milliseconds()
		return r
	}

	if math.IsNaN(req.Consumer[0]) || math.IsNaN(req.Consumer[1]) ||
		math.IsInf(req.Consumer[0], 0) || math.IsInf(req.Consumer[1], 0) {
		resp.Reason = "consumer coordinate is not a finite point"
		return finish(resp)
	}
	if req.LoadKW <= 0 {
		req.LoadKW = 5.0
		resp.LoadKW = req.LoadKW
	}

	e.logger.Info("design request",
		"request", req.RequestID,
		"consumer", req.Consumer,
		"phase", req.Phase.String(),
		"load_kw", req.LoadKW)

	// S1: fetch the facility and base-map tiles around the consumer.
	raw, err := e.fetcher.FetchAll(ctx, req.Consumer, e.cfg.BBoxSizeM)
	if err != nil {
		resp.Reason = fmt.Sprintf("tile fetch failed: %v", err)
		return finish(resp)
	}
	if err := ctx.Err(); err != nil {
		resp.Reason = err.Error()
		return finish(resp)
	}

	// S2: reconstruct the electrical topology.
	topo, warn := topology.NewPreprocessor(e.cfg).Process(raw)
	if warn != nil {
		e.logger.Warn("preprocessing skipped malformed features", "error", warn)
	}
	if len(topo.Poles) == 0 {
		resp.Status = StatusNoRoute
		resp.Reason = "no eligible poles in the search area"
		return finish(resp)
	}

	// S3: rank the candidate source poles.
	sel := selector.New(e.cfg, topo).Select(req.Consumer, req.Phase)
	if len(sel.Candidates) == 0 {
		resp.Status = StatusNoRoute
		if req.Phase == types.PhaseThree {
			resp.Reason = "no pole with a high-voltage three-phase source within reach"
		} else {
			resp.Reason = "no connectable pole within reach"
		}
		return finish(resp)
	}
	if err := ctx.Err(); err != nil {
		resp.Reason = err.Error()
		return finish(resp)
	}

	// S4+S5: road routing. With no roads in the box only fast-track
	// candidates can be served.
	var paths []*pathfind.Path
	switch {
	case len(topo.Roads) == 0:
		if sel.FastTrack == nil {
			resp.Status = StatusNoRoute
			resp.Reason = "no roads in the search area"
			return finish(resp)
		}
		paths = fastTrackOnly(req.Consumer, sel, topo.Buildings)
	default:
		graph, err := roadgraph.NewBuilder(e.cfg, topo).Build(req.Consumer, candidatePoles(sel.Candidates))
		if err != nil {
			if errors.Is(err, roadgraph.ErrConsumerUnreachable) && sel.FastTrack != nil {
				paths = fastTrackOnly(req.Consumer, sel, topo.Buildings)
				break
			}
			resp.Status = StatusNoRoute
			resp.Reason = err.Error()
			return finish(resp)
		}
		paths = pathfind.New(e.cfg, graph).FindAll(sel.Candidates)
	}
	if len(paths) == 0 {
		resp.Status = StatusNoRoute
		resp.Reason = "no route within the maximum conductor length"
		return finish(resp)
	}

	// S6: drop paths crossing existing conductors at incompatible heights.
	validator := obstacle.New(topo)
	var valid []*pathfind.Path
	lastReason := ""
	for _, p := range paths {
		result := validator.Validate(p.Coords, req.Phase)
		if result.Valid {
			valid = append(valid, p)
		} else {
			lastReason = result.Reason()
			e.logger.Info("path rejected", "pole", p.PoleID, "reason", lastReason)
		}
	}
	if len(valid) == 0 {
		resp.Status = StatusNoRoute
		resp.Reason = lastReason
		return finish(resp)
	}
	if err := ctx.Err(); err != nil {
		resp.Reason = err.Error()
		return finish(resp)
	}

	// S7+S8: allocate, validate and price the surviving paths in parallel,
	// then re-sort by the final key so output order is independent of task
	// completion order.
	routes := e.draftRoutes(ctx, req, topo, valid)
	if len(routes) == 0 {
		resp.Reason = "route drafting failed"
		if err := ctx.Err(); err != nil {
			resp.Reason = err.Error()
		}
		return finish(resp)
	}

	e.annotateDuplicates(ctx, routes)

	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].CostIndex != routes[j].CostIndex {
			return routes[i].CostIndex < routes[j].CostIndex
		}
		return routes[i].TotalDistance < routes[j].TotalDistance
	})
	for i := range routes {
		routes[i].Rank = i + 1
	}

	resp.Status = StatusSuccess
	resp.Routes = routes
	e.logger.Info("design complete",
		"request", req.RequestID,
		"routes", len(routes),
		"elapsed", time.Since(start))
	return finish(resp)
}

// draftRoutes runs allocation, electrical validation and costing per path
// through the worker pool.
func (e *Engine) draftRoutes(ctx context.Context, req Request, topo *types.Topology, paths []*pathfind.Path) []Route {
	allocator := allocate.New(e.cfg)
	calculator := cost.New(e.cfg)
	voltage := electrical.NewVoltageCalculator(e.cfg)
	capacity := electrical.NewCapacityValidator(e.cfg)

	pool := worker.New(worker.Config[*pathfind.Path, Route]{
		Workers: 4,
		Process: func(_ context.Context, path *pathfind.Path) (Route, error) {
			alloc := allocator.Allocate(path)

			source := topo.PoleByID(path.PoleID)
			voltageOverride := 0.0
			sourceClass := types.PoleLV.String()
			sourcePhase := types.PhaseSingle.Code()
			if source != nil {
				voltageOverride = source.Voltage
				sourceClass = source.Class.String()
				sourcePhase = source.Phase.Code()
			}

			spec, drop := voltage.RecommendWire(path.Distance, req.LoadKW, req.Phase, false, voltageOverride)
			estimate := calculator.Estimate(alloc, spec, req.Phase)

			route := Route{
				CostIndex:     estimate.CostIndex,
				TotalCost:     estimate.TotalCost,
				TotalDistance: path.Distance,
				StartPoleID:   path.PoleID,
				SourceClass:   sourceClass,
				SourcePhase:   sourcePhase,
				NewPoleCount:  len(alloc.Poles),
				Path:          path.Coords,
				TurnCount:     alloc.TurnCount,
				PoleSpec:      estimate.PoleSpec,
				WireSpec:      string(spec),
				Breakdown:     estimate.Breakdown,
				VoltageDrop:   drop,
				FastTrack:     path.FastTrack,
			}
			if source != nil {
				route.StartPole = source.Point
			} else if len(path.Coords) > 0 {
				route.StartPole = path.Coords[len(path.Coords)-1]
			}
			for _, p := range alloc.Poles {
				route.NewPoles = append(route.NewPoles, RoutePole{
					ID:         p.ID,
					Coord:      p.Point,
					Sequence:   p.Sequence,
					DistanceM:  p.DistanceM,
					IsJunction: p.IsJunction,
				})
			}
			if path.FastTrack {
				route.Remark = "Fast-Track direct connection"
			}
			if !drop.Acceptable {
				route.Remark = appendRemark(route.Remark, drop.Message)
			}
			if source != nil {
				if tr := topo.TransformerByPole(source.ID); tr != nil {
					check := capacity.Check(tr, 0, req.LoadKW)
					route.Capacity = &check
					if check.State != electrical.CapacityOK {
						route.Remark = appendRemark(route.Remark, check.Message)
					}
				}
			}
			return route, nil
		},
	})

	results := pool.Run(ctx, paths)
	routes := make([]Route, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			e.logger.Warn("route drafting failed", "error", r.Err)
			continue
		}
		routes = append(routes, r.Output)
	}
	return routes
}

// annotateDuplicates cross-checks the top candidates against the external
// duplicate-feeder service. Advisory only: errors are swallowed and shared
// feeders become remarks, never rejections.
func (e *Engine) annotateDuplicates(ctx context.Context, routes []Route) {
	if e.tracer == nil || len(routes) == 0 {
		return
	}
	if !e.tracer.Healthy(ctx) {
		e.logger.Debug("feeder service unavailable, skipping advisory")
		return
	}

	top := len(routes)
	if top > e.cfg.DuplicateCheckTop {
		top = e.cfg.DuplicateCheckTop
	}
	ids := make([]string, 0, top)
	for _, r := range routes[:top] {
		ids = append(ids, r.StartPoleID)
	}

	check := e.tracer.CheckDuplicates(ctx, ids)
	if !check.HasDuplicate {
		return
	}
	flagged := make(map[string]bool, len(check.DuplicatePoles))
	for _, id := range check.DuplicatePoles {
		flagged[id] = true
	}
	for i := range routes {
		if flagged[routes[i].StartPoleID] {
			routes[i].Remark = appendRemark(routes[i].Remark, "shares a feeder with another candidate")
		}
	}
}

// Facilities fetches and preprocesses every listing layer for a bounding
// box. This path exercises S1–S2 only.
func (e *Engine) Facilities(ctx context.Context, bbox types.BoundingBox) (*types.Topology, error) {
	raw, err := e.fetcher.FetchLayers(ctx, bbox, wfs.ListingLayers)
	if err != nil {
		return nil, fmt.Errorf("fetch facilities: %w", err)
	}
	topo, warn := topology.NewPreprocessor(e.cfg).Process(raw)
	if warn != nil {
		e.logger.Warn("preprocessing skipped malformed features", "error", warn)
	}
	return topo, nil
}

func candidatePoles(cands []selector.Candidate) []*types.Pole {
	poles := make([]*types.Pole, 0, len(cands))
	for i := range cands {
		if cands[i].FastTrack {
			// Fast-track candidates never route over roads.
			continue
		}
		poles = append(poles, cands[i].Pole)
	}
	return poles
}

// fastTrackOnly builds direct connections for the fast-track candidates
// when road routing is unavailable, falling back to the building-avoiding
// direct path when the hop has to dodge a footprint.
func fastTrackOnly(consumer orb.Point, sel selector.Result, buildings []*types.Building) []*pathfind.Path {
	var paths []*pathfind.Path
	for i := range sel.Candidates {
		cand := &sel.Candidates[i]
		if !cand.FastTrack {
			continue
		}
		coords, err := roadgraph.DirectPath(consumer, cand.Pole.Point, buildings)
		if err != nil {
			continue
		}
		dist := geo.LineLength(coords)
		paths = append(paths, &pathfind.Path{
			PoleID:    cand.Pole.ID,
			Target:    cand,
			Coords:    coords,
			Distance:  dist,
			Weight:    dist,
			Reachable: true,
			FastTrack: true,
		})
	}
	return paths
}

func appendRemark(remark, extra string) string {
	if remark == "" {
		return extra
	}
	return remark + " | " + extra
}
