// Package geo provides the coordinate, bounding-box, and tile-math
// primitives every other hikecore package builds on: Haversine distance,
// initial bearing, destination projection, and Web Mercator tile math.
package geo

import (
	"math"

	"github.com/hherb/hikecore/pkg/corerr"
)

// EarthRadius is the mean Earth radius in metres used for all great-circle
// calculations in this package.
const EarthRadius = 6_371_000.0

// Coordinate is a point on the Earth's surface.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Validate reports whether c holds finite, in-range values.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return corerr.New(corerr.InvalidCoordinate, "latitude/longitude must be finite")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return corerr.Newf(corerr.InvalidCoordinate, "latitude %f out of range [-90,90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return corerr.Newf(corerr.InvalidCoordinate, "longitude %f out of range [-180,180]", c.Longitude)
	}
	return nil
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180.0 }
func toDegrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// HaversineDistance returns the great-circle distance between a and b in
// metres.
func HaversineDistance(a, b Coordinate) float64 {
	lat1, lat2 := toRadians(a.Latitude), toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	h = math.Min(1, math.Max(0, h))

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// InitialBearing returns the initial bearing from a to b in degrees,
// normalised to [0, 360). Coincident points return 0.
func InitialBearing(a, b Coordinate) float64 {
	if a.Latitude == b.Latitude && a.Longitude == b.Longitude {
		return 0
	}
	lat1, lat2 := toRadians(a.Latitude), toRadians(b.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	theta := math.Atan2(y, x)

	deg := math.Mod(toDegrees(theta)+360, 360)
	return deg
}

// Destination returns the coordinate reached by travelling distanceM metres
// from origin along bearingDeg (degrees, clockwise from north).
func Destination(origin Coordinate, bearingDeg, distanceM float64) Coordinate {
	angularDist := distanceM / EarthRadius
	bearing := toRadians(bearingDeg)
	lat1 := toRadians(origin.Latitude)
	lon1 := toRadians(origin.Longitude)

	sinLat2 := math.Sin(lat1)*math.Cos(angularDist) + math.Cos(lat1)*math.Sin(angularDist)*math.Cos(bearing)
	lat2 := math.Asin(sinLat2)

	y := math.Sin(bearing) * math.Sin(angularDist) * math.Cos(lat1)
	x := math.Cos(angularDist) - math.Sin(lat1)*sinLat2
	lon2 := lon1 + math.Atan2(y, x)

	lon2 = math.Mod(lon2+3*math.Pi, 2*math.Pi) - math.Pi

	return Coordinate{Latitude: toDegrees(lat2), Longitude: toDegrees(lon2)}
}

// NormalizeAngleDelta folds a bearing delta in degrees into (-180, 180].
func NormalizeAngleDelta(delta float64) float64 {
	d := math.Mod(delta, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return d
}
