package routing

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hherb/hikecore/pkg/corelog"
	"github.com/hherb/hikecore/pkg/cost"
	"github.com/hherb/hikecore/pkg/geo"
	"github.com/hherb/hikecore/pkg/graph"
	"github.com/hherb/hikecore/pkg/metrics"
)

// Engine is a read-only handle on a persisted routing database. Multiple
// concurrent FindRoute calls against the same Engine are safe; no
// mutation occurs during a query.
type Engine struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the routing database at path for querying. The database is
// never written to by this package.
func Open(path string) (*Engine, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("routing: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("routing: ping %s: %w", path, err)
	}
	return &Engine{db: db, logger: corelog.Named("routing")}, nil
}

// Close releases the underlying database handle.
func (e *Engine) Close() error {
	return e.db.Close()
}

// FindRoute snaps from, via, and to onto their nearest routing nodes and
// runs sequential A* over each consecutive pair, concatenating the
// resulting node/edge chains into a single ComputedRoute.
func (e *Engine) FindRoute(ctx context.Context, from geo.Coordinate, via []geo.Coordinate, to geo.Coordinate, mode cost.Mode) (*ComputedRoute, error) {
	start := time.Now()

	waypoints := make([]geo.Coordinate, 0, len(via)+2)
	waypoints = append(waypoints, from)
	waypoints = append(waypoints, via...)
	waypoints = append(waypoints, to)

	snapped := make([]int64, len(waypoints))
	for i, wp := range waypoints {
		node, err := snapNearest(ctx, e.db, wp)
		if err != nil {
			metrics.RecordRouteSearch(string(mode), time.Since(start), 0, false)
			return nil, err
		}
		snapped[i] = node.ID
	}

	if len(via) == 0 && snapped[0] == snapped[len(snapped)-1] {
		node, err := fetchNode(ctx, e.db, snapped[0])
		if err != nil {
			return nil, err
		}
		metrics.RecordRouteSearch(string(mode), time.Since(start), 1, true)
		return assembleRoute([]graph.RoutingNode{node}, nil, via), nil
	}

	var segments []pathSegment
	nodesExpanded := 0
	for i := 0; i < len(snapped)-1; i++ {
		seg, err := findSegmentPath(ctx, e.db, snapped[i], snapped[i+1], mode)
		if err != nil {
			metrics.RecordRouteSearch(string(mode), time.Since(start), nodesExpanded, false)
			return nil, err
		}
		segments = append(segments, seg)
		nodesExpanded += len(seg.nodes)
	}

	nodes, edges := concatenateSegments(segments)
	route := assembleRoute(nodes, edges, via)

	metrics.RecordRouteSearch(string(mode), time.Since(start), nodesExpanded, true)
	e.logger.Debug("route found", "nodes", len(nodes), "edges", len(edges), "distance_m", route.TotalDistance)
	return route, nil
}
