package osmdata

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"

	"github.com/hherb/hikecore/pkg/corerr"
)

// xmlNode and xmlWay mirror the OSM XML element shapes closely enough for
// encoding/xml to populate them via struct tags.
type xmlNode struct {
	ID  int64   `xml:"id,attr"`
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

type xmlTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

type xmlNd struct {
	Ref int64 `xml:"ref,attr"`
}

type xmlWay struct {
	ID   int64    `xml:"id,attr"`
	Nds  []xmlNd  `xml:"nd"`
	Tags []xmlTag `xml:"tag"`
}

// XMLSource reads an OSM XML (.osm) extract from a file path, streaming
// nodes and ways without holding the whole document in memory.
type XMLSource struct {
	path string
}

// NewXMLSource constructs a Source that reads the OSM XML extract at path.
func NewXMLSource(path string) *XMLSource {
	return &XMLSource{path: path}
}

// Close is a no-op: XMLSource opens a fresh file handle per iteration so
// multiple concurrent passes (one for Nodes, one for Ways) don't share
// decoder state.
func (s *XMLSource) Close() error { return nil }

func (s *XMLSource) openDecoder() (*os.File, *xml.Decoder, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, corerr.Wrap(corerr.InvalidOsmInput, "open osm xml extract", err)
	}
	return f, xml.NewDecoder(f), nil
}

// Nodes streams every <node> element in the extract.
func (s *XMLSource) Nodes(ctx context.Context) (<-chan Node, <-chan error) {
	out := make(chan Node)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		f, dec, err := s.openDecoder()
		if err != nil {
			errc <- err
			return
		}
		defer f.Close()

		for {
			select {
			case <-ctx.Done():
				errc <- corerr.Wrap(corerr.Cancelled, "osm node iteration cancelled", ctx.Err())
				return
			default:
			}

			tok, err := dec.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errc <- corerr.Wrap(corerr.InvalidOsmInput, "decode osm xml", err)
				return
			}
			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != "node" {
				continue
			}
			var n xmlNode
			if err := dec.DecodeElement(&n, &se); err != nil {
				errc <- corerr.Wrap(corerr.InvalidOsmInput, "decode osm node", err)
				return
			}
			select {
			case out <- Node{ID: n.ID, Point: orb.Point{n.Lon, n.Lat}}:
			case <-ctx.Done():
				errc <- corerr.Wrap(corerr.Cancelled, "osm node iteration cancelled", ctx.Err())
				return
			}
		}
	}()

	return out, errc
}

// Ways streams every <way> element whose highway tag is routable.
func (s *XMLSource) Ways(ctx context.Context) (<-chan Way, <-chan error) {
	out := make(chan Way)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		f, dec, err := s.openDecoder()
		if err != nil {
			errc <- err
			return
		}
		defer f.Close()

		for {
			select {
			case <-ctx.Done():
				errc <- corerr.Wrap(corerr.Cancelled, "osm way iteration cancelled", ctx.Err())
				return
			default:
			}

			tok, err := dec.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errc <- corerr.Wrap(corerr.InvalidOsmInput, "decode osm xml", err)
				return
			}
			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != "way" {
				continue
			}
			var w xmlWay
			if err := dec.DecodeElement(&w, &se); err != nil {
				errc <- corerr.Wrap(corerr.InvalidOsmInput, "decode osm way", err)
				return
			}

			raw := make(map[string]string, len(w.Tags))
			for _, t := range w.Tags {
				raw[t.K] = t.V
			}
			if !IsRoutable(raw["highway"]) {
				continue
			}

			refs := make([]int64, len(w.Nds))
			for i, nd := range w.Nds {
				refs[i] = nd.Ref
			}

			way := Way{ID: w.ID, NodeRefs: refs, Tags: parseTags(raw)}
			select {
			case out <- way:
			case <-ctx.Done():
				errc <- corerr.Wrap(corerr.Cancelled, "osm way iteration cancelled", ctx.Err())
				return
			}
		}
	}()

	return out, errc
}

// PBFSource is declared to document the Source contract's second intended
// adapter; OSM PBF decoding needs a protobuf-generated schema this module
// does not vendor, so every method reports ErrUnsupportedFormat.
type PBFSource struct {
	path string
}

// NewPBFSource constructs a placeholder Source for a .osm.pbf extract.
func NewPBFSource(path string) *PBFSource {
	return &PBFSource{path: path}
}

func (s *PBFSource) Nodes(ctx context.Context) (<-chan Node, <-chan error) {
	out := make(chan Node)
	errc := make(chan error, 1)
	close(out)
	errc <- fmt.Errorf("%w: %s", ErrUnsupportedFormat, s.path)
	close(errc)
	return out, errc
}

func (s *PBFSource) Ways(ctx context.Context) (<-chan Way, <-chan error) {
	out := make(chan Way)
	errc := make(chan error, 1)
	close(out)
	errc <- fmt.Errorf("%w: %s", ErrUnsupportedFormat, s.path)
	close(errc)
	return out, errc
}

func (s *PBFSource) Close() error { return nil }
