package geo

import (
	"math"

	"github.com/hherb/hikecore/pkg/corerr"
)

// BoundingBox is an axis-aligned lat/lon rectangle. The core never models
// antimeridian crossing: west <= east always holds.
type BoundingBox struct {
	North, South, East, West float64
}

// NewBoundingBox validates and constructs a BoundingBox.
func NewBoundingBox(north, south, east, west float64) (BoundingBox, error) {
	bb := BoundingBox{North: north, South: south, East: east, West: west}
	if err := bb.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return bb, nil
}

// Validate reports whether bb is a well-formed, non-empty box.
func (bb BoundingBox) Validate() error {
	for _, v := range []float64{bb.North, bb.South, bb.East, bb.West} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return corerr.New(corerr.InvalidCoordinate, "bounding box contains a non-finite value")
		}
	}
	if bb.South > bb.North {
		return corerr.Newf(corerr.InvalidCoordinate, "south %f must be <= north %f", bb.South, bb.North)
	}
	if bb.West > bb.East {
		return corerr.Newf(corerr.InvalidCoordinate, "west %f must be <= east %f", bb.West, bb.East)
	}
	if bb.South == bb.North && bb.West == bb.East {
		return corerr.New(corerr.InvalidCoordinate, "bounding box is empty")
	}
	return nil
}

// Contains reports whether c lies within bb, inclusive of the edges.
func (bb BoundingBox) Contains(c Coordinate) bool {
	return c.Latitude >= bb.South && c.Latitude <= bb.North &&
		c.Longitude >= bb.West && c.Longitude <= bb.East
}

// Center returns the midpoint of bb.
func (bb BoundingBox) Center() Coordinate {
	return Coordinate{
		Latitude:  (bb.North + bb.South) / 2,
		Longitude: (bb.East + bb.West) / 2,
	}
}

// AreaKm2 returns the approximate surface area of bb in square kilometres,
// applying a cosine-of-latitude correction at the box's mean latitude.
func (bb BoundingBox) AreaKm2() float64 {
	meanLat := (bb.North + bb.South) / 2
	heightM := HaversineDistance(
		Coordinate{Latitude: bb.South, Longitude: bb.West},
		Coordinate{Latitude: bb.North, Longitude: bb.West},
	)
	widthM := HaversineDistance(
		Coordinate{Latitude: meanLat, Longitude: bb.West},
		Coordinate{Latitude: meanLat, Longitude: bb.East},
	)
	return (heightM / 1000) * (widthM / 1000)
}
