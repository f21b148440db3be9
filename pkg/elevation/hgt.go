// Package elevation loads SRTM HGT digital-elevation-model tiles and
// bilinearly interpolates a metre altitude for an arbitrary coordinate.
package elevation

import (
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/hherb/hikecore/pkg/corerr"
	"github.com/hherb/hikecore/pkg/geo"
)

// Void is the HGT sentinel meaning "no data at this sample".
const Void = -32768

// srtmShape describes a recognised HGT file layout.
type srtmShape struct {
	samplesPerSide int
	fileSize       int64
}

var (
	srtm3 = srtmShape{samplesPerSide: 1201, fileSize: 2_884_802}
	srtm1 = srtmShape{samplesPerSide: 3601, fileSize: 25_934_402}
)

// hgtTile holds the decoded samples of one HGT file, keyed by its
// south-west integer corner.
type hgtTile struct {
	swLat, swLon int
	side         int
	samples      []int16 // row-major, row 0 = north
}

func (t *hgtTile) sampleAt(row, col int) int16 {
	return t.samples[row*t.side+col]
}

// tileFileName returns the canonical HGT basename for the tile whose
// south-west corner is (swLat, swLon), e.g. "N51W004".
func tileFileName(swLat, swLon int) string {
	ns := "N"
	lat := swLat
	if lat < 0 {
		ns = "S"
		lat = -lat
	}
	ew := "E"
	lon := swLon
	if lon < 0 {
		ew = "W"
		lon = -lon
	}
	return fmt.Sprintf("%s%02d%s%03d", ns, lat, ew, lon)
}

// loadTile reads and decodes the HGT file for the tile whose south-west
// corner is (swLat, swLon) from dir. It accepts a plain ".hgt" file or a
// gzip-wrapped ".hgt.gz" file.
func loadTile(dir string, swLat, swLon int) (*hgtTile, error) {
	base := tileFileName(swLat, swLon)
	plainPath := filepath.Join(dir, base+".hgt")
	gzPath := plainPath + ".gz"

	data, err := readFileAny(plainPath, gzPath)
	if err != nil {
		return nil, corerr.Wrap(corerr.MissingTile, "hgt tile "+base+" not found", err)
	}

	var shape srtmShape
	switch int64(len(data)) {
	case srtm3.fileSize:
		shape = srtm3
	case srtm1.fileSize:
		shape = srtm1
	default:
		return nil, corerr.Newf(corerr.CorruptTile, "hgt tile %s has unrecognised size %d", base, len(data))
	}

	side := shape.samplesPerSide
	samples := make([]int16, side*side)
	for i := 0; i < side*side; i++ {
		hi := data[2*i]
		lo := data[2*i+1]
		samples[i] = int16(uint16(hi)<<8 | uint16(lo))
	}

	return &hgtTile{swLat: swLat, swLon: swLon, side: side, samples: samples}, nil
}

func readFileAny(plainPath, gzPath string) ([]byte, error) {
	if data, err := os.ReadFile(plainPath); err == nil {
		return data, nil
	}
	f, err := os.Open(gzPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}

// interpolate returns the bilinearly interpolated elevation at (lat, lon)
// within the tile, and false if a void sample carries nonzero weight.
func (t *hgtTile) interpolate(lat, lon float64) (float64, bool) {
	// Fractional position within the tile: row 0 is the north edge
	// (swLat+1), the last row is the south edge (swLat).
	fracRow := (float64(t.swLat+1) - lat) * float64(t.side-1)
	fracCol := (lon - float64(t.swLon)) * float64(t.side-1)

	r0 := int(math.Floor(fracRow))
	c0 := int(math.Floor(fracCol))
	r0 = clampInt(r0, 0, t.side-2)
	c0 = clampInt(c0, 0, t.side-2)
	r1, c1 := r0+1, c0+1

	dr := fracRow - float64(r0)
	dc := fracCol - float64(c0)
	dr = clampFloat(dr, 0, 1)
	dc = clampFloat(dc, 0, 1)

	v00 := t.sampleAt(r0, c0)
	v01 := t.sampleAt(r0, c1)
	v10 := t.sampleAt(r1, c0)
	v11 := t.sampleAt(r1, c1)

	// Bilinear weights; a corner with zero weight may be void without
	// affecting the result (the query point doesn't actually depend on
	// it). A corner carrying nonzero weight that is void propagates the
	// void, rather than silently dropping that corner's contribution.
	const weightEpsilon = 1e-9
	weights := [4]float64{(1 - dr) * (1 - dc), (1 - dr) * dc, dr * (1 - dc), dr * dc}
	corners := [4]int16{v00, v01, v10, v11}

	var sum float64
	for i, v := range corners {
		if v == Void {
			if weights[i] > weightEpsilon {
				return 0, false
			}
			continue
		}
		sum += weights[i] * float64(v)
	}
	return sum, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// swCorner returns the integer floor south-west corner of the HGT tile
// containing c.
func swCorner(c geo.Coordinate) (int, int) {
	return int(math.Floor(c.Latitude)), int(math.Floor(c.Longitude))
}
