package routing

import (
	"container/heap"
	"context"
	"database/sql"
	"fmt"

	"github.com/hherb/hikecore/pkg/corerr"
	"github.com/hherb/hikecore/pkg/cost"
	"github.com/hherb/hikecore/pkg/geo"
	"github.com/hherb/hikecore/pkg/graph"
)

// aStarItem is one entry in the open-set priority queue.
type aStarItem struct {
	nodeID int64
	g      float64
	f      float64
	index  int
}

// aStarQueue implements heap.Interface with the tie-break the engine
// requires: smaller f first, then smaller g, then smaller node id.
type aStarQueue []*aStarItem

func (q aStarQueue) Len() int { return len(q) }

func (q aStarQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	if q[i].g != q[j].g {
		return q[i].g < q[j].g
	}
	return q[i].nodeID < q[j].nodeID
}

func (q aStarQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *aStarQueue) Push(x any) {
	item := x.(*aStarItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *aStarQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// predEntry records how a node was reached during one A* run.
type predEntry struct {
	prevNodeID int64
	edge       graph.RoutingEdge
}

// findSegmentPath runs A* from startID to goalID over the edges table,
// returning the node/edge chain in traversal order.
func findSegmentPath(ctx context.Context, db *sql.DB, startID, goalID int64, mode cost.Mode) (pathSegment, error) {
	if startID == goalID {
		node, err := fetchNode(ctx, db, startID)
		if err != nil {
			return pathSegment{}, err
		}
		return pathSegment{nodes: []graph.RoutingNode{node}}, nil
	}

	goal, err := fetchNode(ctx, db, goalID)
	if err != nil {
		return pathSegment{}, err
	}
	goalCoord := geo.Coordinate{Latitude: goal.Latitude, Longitude: goal.Longitude}
	baseSpeed := cost.BaseSpeed(mode)

	nodeCoords := map[int64]geo.Coordinate{goalID: goalCoord}
	coordOf := func(id int64, lat, lon float64) geo.Coordinate {
		c := geo.Coordinate{Latitude: lat, Longitude: lon}
		nodeCoords[id] = c
		return c
	}

	startNode, err := fetchNode(ctx, db, startID)
	if err != nil {
		return pathSegment{}, err
	}
	coordOf(startID, startNode.Latitude, startNode.Longitude)

	open := make(aStarQueue, 0, 64)
	heap.Init(&open)
	openItem := map[int64]*aStarItem{}
	gScore := map[int64]float64{startID: 0}
	closed := map[int64]bool{}
	predecessors := map[int64]predEntry{}

	startH := geo.HaversineDistance(nodeCoords[startID], goalCoord) / baseSpeed
	startItem := &aStarItem{nodeID: startID, g: 0, f: startH}
	heap.Push(&open, startItem)
	openItem[startID] = startItem

	for open.Len() > 0 {
		select {
		case <-ctx.Done():
			return pathSegment{}, corerr.Wrap(corerr.Cancelled, "route search cancelled", ctx.Err())
		default:
		}

		current := heap.Pop(&open).(*aStarItem)
		delete(openItem, current.nodeID)

		if closed[current.nodeID] {
			continue
		}
		closed[current.nodeID] = true

		if current.nodeID == goalID {
			return reconstructPath(ctx, db, startID, goalID, predecessors)
		}

		edges, err := outgoingEdges(ctx, db, current.nodeID, mode)
		if err != nil {
			return pathSegment{}, err
		}

		for _, e := range edges {
			if closed[e.ToNode] {
				continue
			}
			tentativeG := gScore[current.nodeID] + e.Cost

			if existingG, ok := gScore[e.ToNode]; ok && tentativeG >= existingG {
				continue
			}

			gScore[e.ToNode] = tentativeG
			predecessors[e.ToNode] = predEntry{prevNodeID: current.nodeID, edge: e}

			toCoord, ok := nodeCoords[e.ToNode]
			if !ok {
				toNode, err := fetchNode(ctx, db, e.ToNode)
				if err != nil {
					return pathSegment{}, err
				}
				toCoord = coordOf(e.ToNode, toNode.Latitude, toNode.Longitude)
			}
			h := geo.HaversineDistance(toCoord, goalCoord) / baseSpeed
			f := tentativeG + h

			if item, ok := openItem[e.ToNode]; ok {
				item.g, item.f = tentativeG, f
				heap.Fix(&open, item.index)
			} else {
				item := &aStarItem{nodeID: e.ToNode, g: tentativeG, f: f}
				heap.Push(&open, item)
				openItem[e.ToNode] = item
			}
		}
	}

	return pathSegment{}, corerr.Newf(corerr.NoRouteFound, "no route found from node %d to node %d", startID, goalID)
}

func reconstructPath(ctx context.Context, db *sql.DB, startID, goalID int64, predecessors map[int64]predEntry) (pathSegment, error) {
	var edgesRev []graph.RoutingEdge
	current := goalID
	for current != startID {
		pred, ok := predecessors[current]
		if !ok {
			return pathSegment{}, corerr.Newf(corerr.NoRouteFound, "broken predecessor chain at node %d", current)
		}
		edgesRev = append(edgesRev, pred.edge)
		current = pred.prevNodeID
	}

	edges := make([]graph.RoutingEdge, len(edgesRev))
	for i, e := range edgesRev {
		edges[len(edgesRev)-1-i] = e
	}

	nodes := make([]graph.RoutingNode, 0, len(edges)+1)
	startNode, err := fetchNode(ctx, db, startID)
	if err != nil {
		return pathSegment{}, err
	}
	nodes = append(nodes, startNode)
	for _, e := range edges {
		n, err := fetchNode(ctx, db, e.ToNode)
		if err != nil {
			return pathSegment{}, err
		}
		nodes = append(nodes, n)
	}

	return pathSegment{nodes: nodes, edges: edges}, nil
}

func fetchNode(ctx context.Context, db *sql.DB, id int64) (graph.RoutingNode, error) {
	var n graph.RoutingNode
	var elev sql.NullFloat64
	row := db.QueryRowContext(ctx, `SELECT id, latitude, longitude, elevation FROM routing_nodes WHERE id = ?`, id)
	if err := row.Scan(&n.ID, &n.Latitude, &n.Longitude, &elev); err != nil {
		return graph.RoutingNode{}, fmt.Errorf("routing: fetch node %d: %w", id, err)
	}
	if elev.Valid {
		n.HasElevation = true
		n.Elevation = elev.Float64
	}
	return n, nil
}

func outgoingEdges(ctx context.Context, db *sql.DB, fromID int64, mode cost.Mode) ([]graph.RoutingEdge, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, from_node, to_node, distance, elevation_gain, elevation_loss, surface,
			highway_type, sac_scale, trail_visibility, name, osm_way_id, cost, reverse_cost,
			is_oneway, geometry
		 FROM routing_edges WHERE from_node = ? ORDER BY id`, fromID)
	if err != nil {
		return nil, fmt.Errorf("routing: query edges from %d: %w", fromID, err)
	}
	defer rows.Close()

	var edges []graph.RoutingEdge
	for rows.Next() {
		var e graph.RoutingEdge
		var isOneway int
		if err := rows.Scan(&e.ID, &e.FromNode, &e.ToNode, &e.Distance, &e.ElevationGain, &e.ElevationLoss,
			&e.Surface, &e.HighwayType, &e.SacScale, &e.TrailVisibility, &e.Name, &e.OSMWayID,
			&e.Cost, &e.ReverseCost, &isOneway, &e.Geometry); err != nil {
			return nil, fmt.Errorf("routing: scan edge: %w", err)
		}
		e.IsOneway = isOneway != 0

		if e.Cost >= cost.InfinityThreshold {
			continue
		}
		if mode == cost.Cycling && e.HighwayType == "steps" {
			continue
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("routing: iterate edges: %w", err)
	}
	return edges, nil
}
