package graph

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/hherb/hikecore/pkg/cost"
	"github.com/hherb/hikecore/pkg/osmdata"
)

// sampleNetwork is a branching network: way A runs 1-2-3-4, way B runs
// 3-5, sharing node 3 as a junction. Node 1, 4 and 5 are junctions as
// way endpoints; node 2 is interior to way A and is not retained.
const sampleNetwork = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="51.000" lon="-1.000"/>
  <node id="2" lat="51.001" lon="-1.000"/>
  <node id="3" lat="51.002" lon="-1.000"/>
  <node id="4" lat="51.003" lon="-1.000"/>
  <node id="5" lat="51.002" lon="-0.999"/>
  <way id="10">
    <nd ref="1"/>
    <nd ref="2"/>
    <nd ref="3"/>
    <nd ref="4"/>
    <tag k="highway" v="path"/>
    <tag k="surface" v="gravel"/>
    <tag k="name" v="Ridge Path"/>
  </way>
  <way id="11">
    <nd ref="3"/>
    <nd ref="5"/>
    <tag k="highway" v="path"/>
  </way>
</osm>`

func writeSampleNetwork(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "network.osm")
	if err := os.WriteFile(path, []byte(sampleNetwork), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func buildOnce(t *testing.T, dbPath string) *Result {
	t.Helper()
	src := osmdata.NewXMLSource(writeSampleNetwork(t))
	defer src.Close()

	progress, errc := Build(context.Background(), src, nil, Options{
		DBPath: dbPath,
		Mode:   cost.Hiking,
	})
	for range progress {
	}
	if err := <-errc; err != nil {
		t.Fatalf("Build: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open result db: %v", err)
	}
	defer db.Close()

	var nodeCount, edgeCount int
	if err := db.QueryRow(`SELECT count(*) FROM routing_nodes`).Scan(&nodeCount); err != nil {
		t.Fatalf("count nodes: %v", err)
	}
	if err := db.QueryRow(`SELECT count(*) FROM routing_edges`).Scan(&edgeCount); err != nil {
		t.Fatalf("count edges: %v", err)
	}
	return &Result{NodeCount: nodeCount, EdgeCount: edgeCount}
}

func TestBuildRetainsOnlyJunctionNodes(t *testing.T) {
	dir := t.TempDir()
	result := buildOnce(t, filepath.Join(dir, "graph.db"))

	// Nodes 1, 3, 4, 5 are junctions; node 2 is interior to way 10 and
	// is dropped.
	if result.NodeCount != 4 {
		t.Errorf("NodeCount = %d, want 4", result.NodeCount)
	}
}

func TestBuildSplitsEdgesAtJunctionsAndStoresBothDirections(t *testing.T) {
	dir := t.TempDir()
	result := buildOnce(t, filepath.Join(dir, "graph.db"))

	// Way 10 splits into (1->3) and (3->4); way 11 is already a single
	// span (3->5). Three forward edges, each with a reverse row since
	// neither way is oneway: 6 total.
	if result.EdgeCount != 6 {
		t.Errorf("EdgeCount = %d, want 6", result.EdgeCount)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	first := buildOnce(t, filepath.Join(dir, "first.db"))
	second := buildOnce(t, filepath.Join(dir, "second.db"))

	if first.NodeCount != second.NodeCount || first.EdgeCount != second.EdgeCount {
		t.Fatalf("non-deterministic build: first=%+v second=%+v", first, second)
	}
}

func TestBuildWritesMetadata(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "graph.db")
	src := osmdata.NewXMLSource(writeSampleNetwork(t))
	defer src.Close()

	progress, errc := Build(context.Background(), src, nil, Options{
		DBPath:        dbPath,
		Mode:          cost.Cycling,
		OSMSnapshotID: "test-snapshot",
		DEMSource:     "synthetic",
	})
	for range progress {
	}
	if err := <-errc; err != nil {
		t.Fatalf("Build: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open result db: %v", err)
	}
	defer db.Close()

	cases := map[string]string{
		"osm_snapshot_id":    "test-snapshot",
		"dem_source":         "synthetic",
		"cost_model_version": cost.ModelVersion,
		"mode":               "cycling",
	}
	for key, want := range cases {
		var got string
		row := db.QueryRow(`SELECT value FROM routing_metadata WHERE key = ?`, key)
		if err := row.Scan(&got); err != nil {
			t.Fatalf("scan metadata %s: %v", key, err)
		}
		if got != want {
			t.Errorf("metadata %s = %q, want %q", key, got, want)
		}
	}
}

func TestBuildReversedEdgeHasInfiniteCostWhenOneway(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "graph.db")

	onewayNetwork := `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="51.000" lon="-1.000"/>
  <node id="2" lat="51.001" lon="-1.000"/>
  <way id="20">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="path"/>
    <tag k="oneway" v="yes"/>
  </way>
</osm>`
	path := filepath.Join(t.TempDir(), "oneway.osm")
	if err := os.WriteFile(path, []byte(onewayNetwork), 0o644); err != nil {
		t.Fatalf("write oneway sample: %v", err)
	}
	src := osmdata.NewXMLSource(path)
	defer src.Close()

	progress, errc := Build(context.Background(), src, nil, Options{DBPath: dbPath, Mode: cost.Hiking})
	for range progress {
	}
	if err := <-errc; err != nil {
		t.Fatalf("Build: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open result db: %v", err)
	}
	defer db.Close()

	var edgeCount int
	if err := db.QueryRow(`SELECT count(*) FROM routing_edges`).Scan(&edgeCount); err != nil {
		t.Fatalf("count edges: %v", err)
	}
	if edgeCount != 1 {
		t.Fatalf("edgeCount = %d, want 1 (oneway way emits no reverse row)", edgeCount)
	}

	var reverseCost float64
	row := db.QueryRow(`SELECT reverse_cost FROM routing_edges WHERE osm_way_id = 20`)
	if err := row.Scan(&reverseCost); err != nil {
		t.Fatalf("scan reverse_cost: %v", err)
	}
	if reverseCost < cost.InfinityThreshold {
		t.Errorf("reverse_cost = %f, want >= %f", reverseCost, cost.InfinityThreshold)
	}
}
