package graph

import (
	"encoding/binary"
	"math"

	"github.com/paulmach/orb"
)

// geometryPointSize is the encoded size of one (lat, lon, elevation)
// triple: a little-endian int32 of lat microdegrees, a little-endian
// int32 of lon microdegrees, and a little-endian int16 of elevation in
// metres.
const geometryPointSize = 10

const microdegPerDegree = 1e6

// EncodeGeometry serialises a line string and its per-point elevations
// (metres, same length as line) as a flat sequence of little-endian
// (lat_i32_microdeg, lon_i32_microdeg, elev_i16_metres) triples. This is
// an external interface: other applications reading the routing
// database decode edge geometry with this layout, not WKB or Google's
// polyline format.
func EncodeGeometry(line orb.LineString, elevations []float64) []byte {
	buf := make([]byte, geometryPointSize*len(line))
	for i, pt := range line {
		lat := int32(math.Round(pt[1] * microdegPerDegree))
		lon := int32(math.Round(pt[0] * microdegPerDegree))
		var elev float64
		if i < len(elevations) {
			elev = elevations[i]
		}
		binary.LittleEndian.PutUint32(buf[geometryPointSize*i:], uint32(lat))
		binary.LittleEndian.PutUint32(buf[geometryPointSize*i+4:], uint32(lon))
		binary.LittleEndian.PutUint16(buf[geometryPointSize*i+8:], uint16(int16(math.Round(elev))))
	}
	return buf
}

// DecodeGeometry is the inverse of EncodeGeometry's coordinate stream,
// discarding the per-point elevation.
func DecodeGeometry(buf []byte) orb.LineString {
	n := len(buf) / geometryPointSize
	line := make(orb.LineString, n)
	for i := 0; i < n; i++ {
		lat := int32(binary.LittleEndian.Uint32(buf[geometryPointSize*i:]))
		lon := int32(binary.LittleEndian.Uint32(buf[geometryPointSize*i+4:]))
		line[i] = orb.Point{float64(lon) / microdegPerDegree, float64(lat) / microdegPerDegree}
	}
	return line
}

// DecodeGeometryElevations returns the per-point elevations (metres)
// stored alongside buf's coordinates.
func DecodeGeometryElevations(buf []byte) []float64 {
	n := len(buf) / geometryPointSize
	elevations := make([]float64, n)
	for i := 0; i < n; i++ {
		elevations[i] = float64(int16(binary.LittleEndian.Uint16(buf[geometryPointSize*i+8:])))
	}
	return elevations
}
