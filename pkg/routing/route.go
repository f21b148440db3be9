// Package routing implements A* search over a persisted routing
// database, sequencing via-points and assembling the result into a
// single ComputedRoute.
package routing

import (
	"github.com/hherb/hikecore/pkg/geo"
	"github.com/hherb/hikecore/pkg/graph"
)

// ComputedRoute is the result of a find-route query: a node/edge chain
// through the routing graph plus flattened coordinates and totals. It is
// plain data with no back-references into the engine or database.
type ComputedRoute struct {
	Nodes             []graph.RoutingNode
	Edges             []graph.RoutingEdge
	Coordinates       []geo.Coordinate
	TotalDistance     float64
	TotalCost         float64
	EstimatedDuration float64
	ElevationGain     float64
	ElevationLoss     float64
	ViaPoints         []geo.Coordinate
}

// pathSegment is the result of a single A* run between two consecutive
// waypoints: len(nodes) == len(edges) + 1, and nodes[i].ID ==
// edges[i].FromNode, nodes[i+1].ID == edges[i].ToNode.
type pathSegment struct {
	nodes []graph.RoutingNode
	edges []graph.RoutingEdge
}

// concatenateSegments joins consecutive segments, dropping each
// segment's first node after the first segment (it duplicates the
// previous segment's last node, the shared via-point).
func concatenateSegments(segments []pathSegment) ([]graph.RoutingNode, []graph.RoutingEdge) {
	var nodes []graph.RoutingNode
	var edges []graph.RoutingEdge

	for i, seg := range segments {
		if i == 0 {
			nodes = append(nodes, seg.nodes...)
		} else {
			nodes = append(nodes, seg.nodes[1:]...)
		}
		edges = append(edges, seg.edges...)
	}
	return nodes, edges
}

// assembleRoute computes a ComputedRoute's totals and flattened
// coordinates from its node/edge chain.
func assembleRoute(nodes []graph.RoutingNode, edges []graph.RoutingEdge, via []geo.Coordinate) *ComputedRoute {
	route := &ComputedRoute{Nodes: nodes, Edges: edges, ViaPoints: via}

	if len(nodes) == 1 {
		route.Coordinates = []geo.Coordinate{{Latitude: nodes[0].Latitude, Longitude: nodes[0].Longitude}}
		return route
	}

	for i, e := range edges {
		route.TotalDistance += e.Distance
		route.TotalCost += e.Cost
		route.ElevationGain += e.ElevationGain
		route.ElevationLoss += e.ElevationLoss

		line := graph.DecodeGeometry(e.Geometry)
		start := 0
		if i > 0 {
			// Edge i's first point duplicates edge i-1's last point.
			start = 1
		}
		for _, pt := range line[start:] {
			route.Coordinates = append(route.Coordinates, geo.Coordinate{Latitude: pt[1], Longitude: pt[0]})
		}
	}

	route.EstimatedDuration = route.TotalCost
	return route
}
