package graph

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hherb/hikecore/pkg/corelog"
	"github.com/hherb/hikecore/pkg/corerr"
	"github.com/hherb/hikecore/pkg/cost"
	"github.com/hherb/hikecore/pkg/elevation"
	"github.com/hherb/hikecore/pkg/geo"
	"github.com/hherb/hikecore/pkg/metrics"
	"github.com/hherb/hikecore/pkg/osmdata"
)

// noiseFilterMetres is the minimum absolute altitude delta between
// consecutive geometry samples counted toward climb accumulation; steps
// smaller than this are treated as sensor noise.
const noiseFilterMetres = 3.0

// SchemaVersion identifies the routing database's table layout.
const SchemaVersion = "1"

// Options configures a graph build.
type Options struct {
	DBPath        string
	Mode          cost.Mode
	OSMSnapshotID string
	DEMSource     string

	// CommitBatchSize is how many edges are written per transaction.
	// <= 0 uses DefaultCommitBatchSize.
	CommitBatchSize int

	// ElevationRateLimit bounds queries/sec issued to the elevation
	// provider; <= 0 disables rate limiting.
	ElevationRateLimit rate.Limit
	ElevationWorkers   int

	// Logger receives stage-progress messages; nil uses corelog's
	// "graphbuilder" default.
	Logger *slog.Logger
}

// DefaultCommitBatchSize is used when Options.CommitBatchSize is unset.
const DefaultCommitBatchSize = 500

// DefaultElevationWorkers is used when Options.ElevationWorkers is unset.
const DefaultElevationWorkers = 4

// Result summarises a completed build.
type Result struct {
	NodeCount int
	EdgeCount int
	BBox      geo.BoundingBox
}

type wayRecord struct {
	id   int64
	refs []int64
	tags osmdata.Tags
}

// Build reads src's nodes and ways, assigns elevation from elev, computes
// costs under opts.Mode, and persists the routing database at
// opts.DBPath. Progress records stream on the returned channel, which is
// closed when the build finishes (successfully or not); the final error,
// if any, arrives on the error channel.
func Build(ctx context.Context, src osmdata.Source, elev *elevation.Provider, opts Options) (<-chan Progress, <-chan error) {
	progress := make(chan Progress, 16)
	errc := make(chan error, 1)

	go func() {
		defer close(progress)
		defer close(errc)

		result, err := runBuild(ctx, src, elev, opts, progress)
		if err != nil {
			errc <- err
			return
		}
		_ = result
	}()

	return progress, errc
}

func runBuild(ctx context.Context, src osmdata.Source, elev *elevation.Provider, opts Options, progress chan<- Progress) (*Result, error) {
	if opts.CommitBatchSize <= 0 {
		opts.CommitBatchSize = DefaultCommitBatchSize
	}
	if opts.ElevationWorkers <= 0 {
		opts.ElevationWorkers = DefaultElevationWorkers
	}
	logger := corelog.OrDefault(opts.Logger, "graphbuilder")

	stageStart := time.Now()
	nodes, err := loadAllNodes(ctx, src)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded nodes", "count", len(nodes))

	ways, err := loadRoutableWays(ctx, src, nodes)
	if err != nil {
		return nil, err
	}
	progress <- Progress{Stage: StageFilter, UnitsDone: len(ways), UnitsTotal: len(ways)}
	metrics.RecordBuildStage(StageFilter, time.Since(stageStart))
	logger.Debug("filtered routable ways", "count", len(ways))

	stageStart = time.Now()
	junctionIDs := detectJunctions(ways)
	progress <- Progress{Stage: StageJunctions, UnitsDone: len(junctionIDs), UnitsTotal: len(junctionIDs)}
	metrics.RecordBuildStage(StageJunctions, time.Since(stageStart))
	logger.Debug("detected junctions", "count", len(junctionIDs))

	stageStart = time.Now()
	elevations, err := assignElevations(ctx, elev, nodes, junctionIDs, opts, progress)
	if err != nil {
		return nil, err
	}
	metrics.RecordBuildStage(StageElevation, time.Since(stageStart))
	logger.Debug("assigned elevations", "resolved", len(elevations), "junctions", len(junctionIDs))

	stageStart = time.Now()
	edges := splitEdges(ways, junctionIDs, nodes, elevations, opts.Mode)
	progress <- Progress{Stage: StageEdges, UnitsDone: len(edges), UnitsTotal: len(edges)}
	metrics.RecordBuildStage(StageEdges, time.Since(stageStart))
	logger.Debug("split edges", "count", len(edges))

	stageStart = time.Now()
	result, err := persist(ctx, opts, nodes, junctionIDs, elevations, edges, progress)
	if err != nil {
		return nil, err
	}
	metrics.RecordBuildStage(StageWrite, time.Since(stageStart))
	logger.Info("graph build complete", "nodes", result.NodeCount, "edges", result.EdgeCount)

	return result, nil
}

func loadAllNodes(ctx context.Context, src osmdata.Source) (map[int64]orb.Point, error) {
	nodeCh, errCh := src.Nodes(ctx)
	nodes := make(map[int64]orb.Point)
	for n := range nodeCh {
		nodes[n.ID] = n.Point
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return nodes, nil
}

func loadRoutableWays(ctx context.Context, src osmdata.Source, nodes map[int64]orb.Point) ([]wayRecord, error) {
	wayCh, errCh := src.Ways(ctx)
	var ways []wayRecord
	for w := range wayCh {
		if !osmdata.IsRoutable(w.Tags.Highway) {
			continue
		}
		refs := make([]int64, 0, len(w.NodeRefs))
		for _, ref := range w.NodeRefs {
			if _, ok := nodes[ref]; ok {
				refs = append(refs, ref)
			}
		}
		if len(refs) < 2 {
			continue
		}
		ways = append(ways, wayRecord{id: w.ID, refs: refs, tags: w.Tags})
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return ways, nil
}

// detectJunctions returns the set of node ids that are retained in the
// routing graph: referenced by >= 2 ways, or the first/last node of any
// way.
func detectJunctions(ways []wayRecord) map[int64]bool {
	refCounts := make(map[int64]int)
	for _, w := range ways {
		for _, ref := range w.refs {
			refCounts[ref]++
		}
	}

	junctions := make(map[int64]bool)
	for _, w := range ways {
		junctions[w.refs[0]] = true
		junctions[w.refs[len(w.refs)-1]] = true
	}
	for id, count := range refCounts {
		if count >= 2 {
			junctions[id] = true
		}
	}
	return junctions
}

// assignElevations queries elev once per junction node, fanning the
// queries out across a bounded worker pool paced by an optional rate
// limiter.
func assignElevations(ctx context.Context, elev *elevation.Provider, nodes map[int64]orb.Point, junctions map[int64]bool, opts Options, progress chan<- Progress) (map[int64]float64, error) {
	type result struct {
		id    int64
		value float64
		ok    bool
	}

	ids := make([]int64, 0, len(junctions))
	for id := range junctions {
		ids = append(ids, id)
	}

	results := make(map[int64]float64, len(ids))
	if elev == nil {
		return results, nil
	}

	var limiter *rate.Limiter
	if opts.ElevationRateLimit > 0 {
		limiter = rate.NewLimiter(opts.ElevationRateLimit, 1)
	}

	resultCh := make(chan result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, opts.ElevationWorkers)

	for _, id := range ids {
		id := id
		pt := nodes[id]
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return corerr.Wrap(corerr.Cancelled, "elevation assignment cancelled", gctx.Err())
			}
			defer func() { <-sem }()

			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return corerr.Wrap(corerr.Cancelled, "elevation rate limiter wait cancelled", err)
				}
			}

			c := geo.Coordinate{Latitude: pt[1], Longitude: pt[0]}
			v, ok, err := elev.ElevationAt(c)
			if err != nil {
				// Missing elevation is not fatal to the build; the
				// caller's documented contract is that unknown
				// elevation contributes zero climb.
				resultCh <- result{id: id, ok: false}
				return nil
			}
			resultCh <- result{id: id, value: v, ok: ok}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(resultCh)

	done := 0
	total := len(ids)
	for r := range resultCh {
		if r.ok {
			results[r.id] = r.value
		}
		done++
	}
	progress <- Progress{Stage: StageElevation, UnitsDone: done, UnitsTotal: total}

	return results, nil
}

// splitEdges walks each way's node-ref sequence, emitting one RoutingEdge
// per junction-to-junction span with costed forward/reverse directions.
func splitEdges(ways []wayRecord, junctions map[int64]bool, nodes map[int64]orb.Point, elevations map[int64]float64, mode cost.Mode) []RoutingEdge {
	var edges []RoutingEdge

	for _, w := range ways {
		segStart := 0
		for i := 1; i < len(w.refs); i++ {
			if !junctions[w.refs[i]] {
				continue
			}
			edges = append(edges, buildEdge(w, segStart, i, nodes, elevations, mode)...)
			segStart = i
		}
	}
	return edges
}

// buildEdge constructs the forward edge (and, unless oneway, the reverse
// edge) for the way span [start, end].
func buildEdge(w wayRecord, start, end int, nodes map[int64]orb.Point, elevations map[int64]float64, mode cost.Mode) []RoutingEdge {
	span := w.refs[start : end+1]
	line := make(orb.LineString, len(span))
	elevs := make([]float64, len(span))
	for i, id := range span {
		line[i] = nodes[id]
		elevs[i] = elevations[id]
	}

	distance := lineLength(line)
	gain, loss := climbAccumulate(span, elevations)

	forwardCost := cost.EdgeCost(cost.Input{
		Distance: distance, ElevationGain: gain, ElevationLoss: loss,
		Surface: w.tags.Surface, Highway: w.tags.Highway, SacScale: w.tags.SacScale, Mode: mode,
	})

	fwd := RoutingEdge{
		FromNode: span[0], ToNode: span[len(span)-1],
		Distance: distance, ElevationGain: gain, ElevationLoss: loss,
		Surface: w.tags.Surface, HighwayType: w.tags.Highway, SacScale: w.tags.SacScale,
		TrailVisibility: w.tags.TrailVisibility, Name: w.tags.Name,
		OSMWayID: w.id, Cost: forwardCost, IsOneway: w.tags.Oneway,
		Geometry: EncodeGeometry(line, elevs),
	}

	if w.tags.Oneway {
		fwd.ReverseCost = cost.InfinityThreshold
		return []RoutingEdge{fwd}
	}

	reverseCost := cost.EdgeCost(cost.Input{
		Distance: distance, ElevationGain: loss, ElevationLoss: gain,
		Surface: w.tags.Surface, Highway: w.tags.Highway, SacScale: w.tags.SacScale, Mode: mode,
	})
	fwd.ReverseCost = reverseCost

	reverseLine := reverseLineString(line)
	reverseElevs := make([]float64, len(elevs))
	for i, e := range elevs {
		reverseElevs[len(elevs)-1-i] = e
	}
	rev := RoutingEdge{
		FromNode: span[len(span)-1], ToNode: span[0],
		Distance: distance, ElevationGain: loss, ElevationLoss: gain,
		Surface: w.tags.Surface, HighwayType: w.tags.Highway, SacScale: w.tags.SacScale,
		TrailVisibility: w.tags.TrailVisibility, Name: w.tags.Name,
		OSMWayID: w.id, Cost: reverseCost, ReverseCost: forwardCost, IsOneway: false,
		Geometry: EncodeGeometry(reverseLine, reverseElevs),
	}

	return []RoutingEdge{fwd, rev}
}

func reverseLineString(line orb.LineString) orb.LineString {
	out := make(orb.LineString, len(line))
	for i, pt := range line {
		out[len(line)-1-i] = pt
	}
	return out
}

func lineLength(line orb.LineString) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		a := geo.Coordinate{Latitude: line[i-1][1], Longitude: line[i-1][0]}
		b := geo.Coordinate{Latitude: line[i][1], Longitude: line[i][0]}
		total += geo.HaversineDistance(a, b)
	}
	return total
}

// climbAccumulate sums positive/negative altitude deltas along span,
// ignoring any step smaller than noiseFilterMetres. Nodes with unknown
// elevation contribute zero to both directions of the delta they're part
// of, matching the "missing elevation is treated as zero climb" rule.
func climbAccumulate(span []int64, elevations map[int64]float64) (gain, loss float64) {
	prevElev, prevOK := elevations[span[0]]
	for i := 1; i < len(span); i++ {
		elev, ok := elevations[span[i]]
		if !ok || !prevOK {
			prevElev, prevOK = elev, ok
			continue
		}
		delta := elev - prevElev
		if math.Abs(delta) >= noiseFilterMetres {
			if delta > 0 {
				gain += delta
			} else {
				loss += -delta
			}
		}
		prevElev, prevOK = elev, ok
	}
	return gain, loss
}

func persist(ctx context.Context, opts Options, nodes map[int64]orb.Point, junctions map[int64]bool, elevations map[int64]float64, edges []RoutingEdge, progress chan<- Progress) (*Result, error) {
	db, err := sql.Open("sqlite", opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("graph: open %s: %w", opts.DBPath, err)
	}
	defer db.Close()

	if err := createSchema(ctx, db); err != nil {
		return nil, err
	}

	bbox, err := computeBBox(nodes, junctions)
	if err != nil {
		return nil, err
	}

	nodeCount := 0
	for id := range junctions {
		pt := nodes[id]
		elev, hasElev := elevations[id]
		if err := withTx(ctx, db, func(tx *sql.Tx) error {
			return insertNode(ctx, tx, RoutingNode{
				ID: id, Latitude: pt[1], Longitude: pt[0],
				Elevation: elev, HasElevation: hasElev,
			})
		}); err != nil {
			return nil, err
		}
		nodeCount++

		select {
		case <-ctx.Done():
			return nil, corerr.Wrap(corerr.Cancelled, "graph build cancelled while writing nodes", ctx.Err())
		default:
		}
	}

	edgeCount, err := writeEdgesBatched(ctx, db, edges, opts.CommitBatchSize)
	if err != nil {
		return nil, err
	}

	if err := withTx(ctx, db, func(tx *sql.Tx) error {
		return writeMetadata(ctx, tx, map[string]string{
			"bbox_north":       strconv.FormatFloat(bbox.North, 'f', -1, 64),
			"bbox_south":       strconv.FormatFloat(bbox.South, 'f', -1, 64),
			"bbox_east":        strconv.FormatFloat(bbox.East, 'f', -1, 64),
			"bbox_west":        strconv.FormatFloat(bbox.West, 'f', -1, 64),
			"osm_snapshot_id":  opts.OSMSnapshotID,
			"dem_source":       opts.DEMSource,
			"cost_model_version": cost.ModelVersion,
			"schema_version":   SchemaVersion,
			"mode":             string(opts.Mode),
		})
	}); err != nil {
		return nil, err
	}

	if err := createIndices(ctx, db); err != nil {
		return nil, err
	}

	progress <- Progress{Stage: StageWrite, UnitsDone: nodeCount + edgeCount, UnitsTotal: nodeCount + edgeCount}
	metrics.BuildEdgesTotal.Add(float64(edgeCount))

	return &Result{NodeCount: nodeCount, EdgeCount: edgeCount, BBox: bbox}, nil
}

func writeEdgesBatched(ctx context.Context, db *sql.DB, edges []RoutingEdge, batchSize int) (int, error) {
	count := 0
	for start := 0; start < len(edges); start += batchSize {
		end := start + batchSize
		if end > len(edges) {
			end = len(edges)
		}
		batch := edges[start:end]

		if err := withTx(ctx, db, func(tx *sql.Tx) error {
			for _, e := range batch {
				if _, err := insertEdge(ctx, tx, e); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return count, err
		}
		count += len(batch)

		select {
		case <-ctx.Done():
			return count, corerr.Wrap(corerr.Cancelled, "graph build cancelled while writing edges", ctx.Err())
		default:
		}
	}
	return count, nil
}

func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func computeBBox(nodes map[int64]orb.Point, junctions map[int64]bool) (geo.BoundingBox, error) {
	if len(junctions) == 0 {
		return geo.BoundingBox{}, corerr.New(corerr.InvalidOsmInput, "no junction nodes retained from input")
	}
	north, south := -math.MaxFloat64, math.MaxFloat64
	east, west := -math.MaxFloat64, math.MaxFloat64
	first := true
	for id := range junctions {
		pt := nodes[id]
		lat, lon := pt[1], pt[0]
		if first {
			north, south, east, west = lat, lat, lon, lon
			first = false
			continue
		}
		if lat > north {
			north = lat
		}
		if lat < south {
			south = lat
		}
		if lon > east {
			east = lon
		}
		if lon < west {
			west = lon
		}
	}
	if north == south && east == west {
		return geo.BoundingBox{North: north + 1e-9, South: south, East: east + 1e-9, West: west}, nil
	}
	return geo.BoundingBox{North: north, South: south, East: east, West: west}, nil
}
