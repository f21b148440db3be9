package routing

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hherb/hikecore/pkg/corerr"
	"github.com/hherb/hikecore/pkg/cost"
	"github.com/hherb/hikecore/pkg/geo"
	"github.com/hherb/hikecore/pkg/graph"
	"github.com/hherb/hikecore/pkg/osmdata"
)

// linearNetwork is a 3-node chain split across two ways sharing node 2,
// so all three nodes are retained as junctions.
const linearNetwork = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="51.000" lon="-1.000"/>
  <node id="2" lat="51.010" lon="-1.000"/>
  <node id="3" lat="51.020" lon="-1.000"/>
  <way id="1">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="path"/>
    <tag k="surface" v="paved"/>
  </way>
  <way id="2">
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="path"/>
    <tag k="surface" v="paved"/>
  </way>
</osm>`

func buildLinearGraph(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	osmPath := filepath.Join(dir, "linear.osm")
	if err := os.WriteFile(osmPath, []byte(linearNetwork), 0o644); err != nil {
		t.Fatalf("write osm: %v", err)
	}
	dbPath := filepath.Join(dir, "graph.db")

	src := osmdata.NewXMLSource(osmPath)
	defer src.Close()

	progress, errc := graph.Build(context.Background(), src, nil, graph.Options{
		DBPath: dbPath,
		Mode:   cost.Hiking,
	})
	for range progress {
	}
	if err := <-errc; err != nil {
		t.Fatalf("Build: %v", err)
	}
	return dbPath
}

func TestFindRouteLinearGraphExactNodesAndDistance(t *testing.T) {
	dbPath := buildLinearGraph(t)
	engine, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer engine.Close()

	from := geo.Coordinate{Latitude: 51.000, Longitude: -1.000}
	to := geo.Coordinate{Latitude: 51.020, Longitude: -1.000}

	route, err := engine.FindRoute(context.Background(), from, nil, to, cost.Hiking)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}

	if len(route.Nodes) != 3 {
		t.Fatalf("len(Nodes) = %d, want 3", len(route.Nodes))
	}
	if len(route.Edges) != 2 {
		t.Fatalf("len(Edges) = %d, want 2", len(route.Edges))
	}
	if route.Nodes[0].ID != 1 || route.Nodes[1].ID != 2 || route.Nodes[2].ID != 3 {
		t.Errorf("Nodes = %+v, want ids [1 2 3]", route.Nodes)
	}
	if route.Edges[0].FromNode != 1 || route.Edges[0].ToNode != 2 {
		t.Errorf("Edges[0] = %+v, want from=1 to=2", route.Edges[0])
	}
	if route.Edges[1].FromNode != 2 || route.Edges[1].ToNode != 3 {
		t.Errorf("Edges[1] = %+v, want from=2 to=3", route.Edges[1])
	}

	wantDistance := geo.HaversineDistance(
		geo.Coordinate{Latitude: 51.000, Longitude: -1.000},
		geo.Coordinate{Latitude: 51.010, Longitude: -1.000},
	) + geo.HaversineDistance(
		geo.Coordinate{Latitude: 51.010, Longitude: -1.000},
		geo.Coordinate{Latitude: 51.020, Longitude: -1.000},
	)
	if math.Abs(route.TotalDistance-wantDistance) > 0.01 {
		t.Errorf("TotalDistance = %f, want %f", route.TotalDistance, wantDistance)
	}

	var edgeCostSum float64
	for _, e := range route.Edges {
		edgeCostSum += e.Cost
	}
	if math.Abs(route.TotalCost-edgeCostSum) > 1e-9 {
		t.Errorf("TotalCost = %f, want sum of edge costs %f", route.TotalCost, edgeCostSum)
	}
	if route.EstimatedDuration != route.TotalCost {
		t.Errorf("EstimatedDuration = %f, want %f (== TotalCost)", route.EstimatedDuration, route.TotalCost)
	}
}

func TestFindRouteIdentityShortCircuit(t *testing.T) {
	dbPath := buildLinearGraph(t)
	engine, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer engine.Close()

	point := geo.Coordinate{Latitude: 51.000, Longitude: -1.000}
	route, err := engine.FindRoute(context.Background(), point, nil, point, cost.Hiking)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	if len(route.Nodes) != 1 || len(route.Edges) != 0 {
		t.Errorf("identity route = %d nodes, %d edges, want 1 node 0 edges", len(route.Nodes), len(route.Edges))
	}
	if route.TotalDistance != 0 {
		t.Errorf("identity route TotalDistance = %f, want 0", route.TotalDistance)
	}
}

func TestFindRouteNoNearbyNodeFailsWithCorrectCode(t *testing.T) {
	dbPath := buildLinearGraph(t)
	engine, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer engine.Close()

	// Far away from the linear graph's three nodes near 51.0,-1.0.
	farAway := geo.Coordinate{Latitude: -33.9, Longitude: 151.2}
	to := geo.Coordinate{Latitude: 51.020, Longitude: -1.000}

	_, err = engine.FindRoute(context.Background(), farAway, nil, to, cost.Hiking)
	if err == nil {
		t.Fatal("expected NoNearbyNode error")
	}
	if !corerr.Of(err, corerr.NoNearbyNode) {
		t.Errorf("FindRoute error = %v, want code %s", err, corerr.NoNearbyNode)
	}
}

func TestFindRouteCyclingSkipsStepsEdge(t *testing.T) {
	// Two routes between node 1 and node 4: a direct ~70m "steps" edge
	// and a ~1.1km flat path via node 5. The steps edge has the lower
	// cost, but cycling mode skips steps edges outright, so the route
	// must go via node 5.
	const branching = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="51.000" lon="-1.000"/>
  <node id="4" lat="51.000" lon="-0.999"/>
  <node id="5" lat="51.005" lon="-0.9995"/>
  <way id="1">
    <nd ref="1"/>
    <nd ref="4"/>
    <tag k="highway" v="steps"/>
    <tag k="surface" v="paved"/>
  </way>
  <way id="2">
    <nd ref="1"/>
    <nd ref="5"/>
    <tag k="highway" v="path"/>
    <tag k="surface" v="paved"/>
  </way>
  <way id="3">
    <nd ref="5"/>
    <nd ref="4"/>
    <tag k="highway" v="path"/>
    <tag k="surface" v="paved"/>
  </way>
</osm>`
	dir := t.TempDir()
	osmPath := filepath.Join(dir, "branch.osm")
	if err := os.WriteFile(osmPath, []byte(branching), 0o644); err != nil {
		t.Fatalf("write osm: %v", err)
	}
	dbPath := filepath.Join(dir, "graph.db")

	src := osmdata.NewXMLSource(osmPath)
	defer src.Close()
	progress, errc := graph.Build(context.Background(), src, nil, graph.Options{DBPath: dbPath, Mode: cost.Cycling})
	for range progress {
	}
	if err := <-errc; err != nil {
		t.Fatalf("Build: %v", err)
	}

	engine, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer engine.Close()

	from := geo.Coordinate{Latitude: 51.000, Longitude: -1.000}
	to := geo.Coordinate{Latitude: 51.000, Longitude: -0.999}

	route, err := engine.FindRoute(context.Background(), from, nil, to, cost.Cycling)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	for _, e := range route.Edges {
		if e.HighwayType == "steps" {
			t.Errorf("cycling route used a steps edge: %+v", e)
		}
	}
	if len(route.Nodes) != 3 {
		t.Errorf("len(Nodes) = %d, want 3 (via node 5)", len(route.Nodes))
	}
}
