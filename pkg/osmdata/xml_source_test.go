package osmdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sampleOSMXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="51.500" lon="-0.100"/>
  <node id="2" lat="51.501" lon="-0.099"/>
  <node id="3" lat="51.502" lon="-0.098"/>
  <way id="100">
    <nd ref="1"/>
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="path"/>
    <tag k="surface" v="gravel"/>
    <tag k="name" v="Ridge Trail"/>
  </way>
  <way id="101">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="motorway"/>
  </way>
</osm>`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "extract.osm")
	if err := os.WriteFile(path, []byte(sampleOSMXML), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestXMLSourceNodes(t *testing.T) {
	path := writeSample(t)
	src := NewXMLSource(path)
	defer src.Close()

	nodes, errc := src.Nodes(context.Background())
	var got []Node
	for n := range nodes {
		got = append(got, n)
	}
	if err := <-errc; err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d nodes, want 3", len(got))
	}
	if got[0].ID != 1 || got[0].Point[1] != 51.500 || got[0].Point[0] != -0.100 {
		t.Errorf("node[0] = %+v, unexpected", got[0])
	}
}

func TestXMLSourceWaysFiltersNonRoutable(t *testing.T) {
	path := writeSample(t)
	src := NewXMLSource(path)
	defer src.Close()

	ways, errc := src.Ways(context.Background())
	var got []Way
	for w := range ways {
		got = append(got, w)
	}
	if err := <-errc; err != nil {
		t.Fatalf("Ways: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d ways, want 1 (motorway should be filtered)", len(got))
	}
	w := got[0]
	if w.ID != 100 {
		t.Errorf("way ID = %d, want 100", w.ID)
	}
	if len(w.NodeRefs) != 3 || w.NodeRefs[0] != 1 || w.NodeRefs[2] != 3 {
		t.Errorf("way NodeRefs = %v, unexpected", w.NodeRefs)
	}
	if w.Tags.Highway != "path" || w.Tags.Surface != "gravel" || w.Tags.Name != "Ridge Trail" {
		t.Errorf("way Tags = %+v, unexpected", w.Tags)
	}
}

func TestXMLSourceMissingFile(t *testing.T) {
	src := NewXMLSource("/nonexistent/path.osm")
	defer src.Close()

	_, errc := src.Nodes(context.Background())
	if err := <-errc; err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPBFSourceUnsupported(t *testing.T) {
	src := NewPBFSource("extract.osm.pbf")
	defer src.Close()

	_, errc := src.Nodes(context.Background())
	if err := <-errc; err == nil {
		t.Error("expected ErrUnsupportedFormat")
	}
}

func TestIsRoutable(t *testing.T) {
	if !IsRoutable("path") {
		t.Error("path should be routable")
	}
	if IsRoutable("motorway") {
		t.Error("motorway should not be routable")
	}
	if IsRoutable("") {
		t.Error("empty highway tag should not be routable")
	}
}
