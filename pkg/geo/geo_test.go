package geo

import (
	"math"
	"testing"
)

func TestHaversineDistanceEquatorOneDegree(t *testing.T) {
	a := Coordinate{Latitude: 0, Longitude: 0}
	b := Coordinate{Latitude: 0, Longitude: 1}

	d := HaversineDistance(a, b)
	const want = 111_320.0
	if math.Abs(d-want) > 1000 {
		t.Errorf("HaversineDistance(%v, %v) = %f, want within 1000m of %f", a, b, d, want)
	}
}

func TestHaversineDistanceCoincident(t *testing.T) {
	a := Coordinate{Latitude: 45, Longitude: 10}
	if d := HaversineDistance(a, a); d != 0 {
		t.Errorf("HaversineDistance of coincident points = %f, want 0", d)
	}
}

func TestInitialBearingCoincident(t *testing.T) {
	a := Coordinate{Latitude: 45, Longitude: 10}
	if b := InitialBearing(a, a); b != 0 {
		t.Errorf("InitialBearing of coincident points = %f, want 0", b)
	}
}

func TestInitialBearingCardinal(t *testing.T) {
	a := Coordinate{Latitude: 0, Longitude: 0}
	north := Coordinate{Latitude: 1, Longitude: 0}
	east := Coordinate{Latitude: 0, Longitude: 1}

	if b := InitialBearing(a, north); math.Abs(b-0) > 0.01 {
		t.Errorf("bearing to due north = %f, want ~0", b)
	}
	if b := InitialBearing(a, east); math.Abs(b-90) > 0.01 {
		t.Errorf("bearing to due east = %f, want ~90", b)
	}
}

func TestDestinationRoundTrip(t *testing.T) {
	origin := Coordinate{Latitude: 51.5, Longitude: -0.1}
	dest := Destination(origin, 45, 10_000)

	d := HaversineDistance(origin, dest)
	if math.Abs(d-10_000) > 5 {
		t.Errorf("Destination distance = %f, want ~10000", d)
	}

	b := InitialBearing(origin, dest)
	if math.Abs(b-45) > 0.5 {
		t.Errorf("Destination bearing = %f, want ~45", b)
	}
}

func TestCoordinateValidate(t *testing.T) {
	cases := []struct {
		c    Coordinate
		want bool
	}{
		{Coordinate{0, 0}, true},
		{Coordinate{90, 180}, true},
		{Coordinate{-90, -180}, true},
		{Coordinate{91, 0}, false},
		{Coordinate{0, 181}, false},
		{Coordinate{math.NaN(), 0}, false},
	}
	for _, tc := range cases {
		err := tc.c.Validate()
		if (err == nil) != tc.want {
			t.Errorf("Validate(%v) err=%v, want valid=%v", tc.c, err, tc.want)
		}
	}
}

func TestBoundingBoxValidate(t *testing.T) {
	if _, err := NewBoundingBox(10, 20, 5, 0); err == nil {
		t.Error("expected error for south > north")
	}
	if _, err := NewBoundingBox(10, 0, 0, 5); err == nil {
		t.Error("expected error for west > east")
	}
	if _, err := NewBoundingBox(10, 0, 5, 0); err != nil {
		t.Errorf("unexpected error for valid box: %v", err)
	}
}

func TestTileTMSRoundTrip(t *testing.T) {
	orig := TileCoordinate{X: 3, Y: 5, Z: 4}
	tmsY := orig.ToTMS()
	back := FromTMS(orig.X, tmsY, orig.Z)
	if back != orig {
		t.Errorf("TMS round trip: got %v, want %v", back, orig)
	}
}

func TestMetresPerPixelHalvesPerZoom(t *testing.T) {
	mpp4 := MetresPerPixel(0, 4)
	mpp5 := MetresPerPixel(0, 5)
	ratio := mpp4 / mpp5
	if math.Abs(ratio-2) > 1e-9 {
		t.Errorf("metres-per-pixel ratio across zoom = %f, want 2", ratio)
	}
}

func TestCoordinateToTileZeroZoom(t *testing.T) {
	tc := CoordinateToTile(Coordinate{Latitude: 0, Longitude: 0}, 0)
	if tc.X != 0 || tc.Y != 0 || tc.Z != 0 {
		t.Errorf("CoordinateToTile at zoom 0 = %v, want {0,0,0}", tc)
	}
}

func TestTileRangeCount(t *testing.T) {
	bbox, err := NewBoundingBox(1, -1, 1, -1)
	if err != nil {
		t.Fatalf("NewBoundingBox: %v", err)
	}
	r, err := NewTileRange(bbox, 2)
	if err != nil {
		t.Fatalf("NewTileRange: %v", err)
	}
	if r.Count() < 1 {
		t.Errorf("TileRange.Count() = %d, want >= 1", r.Count())
	}
}

func TestEstimateTileCountSumsZooms(t *testing.T) {
	bbox, err := NewBoundingBox(1, -1, 1, -1)
	if err != nil {
		t.Fatalf("NewBoundingBox: %v", err)
	}
	total, err := EstimateTileCount(bbox, 0, 2)
	if err != nil {
		t.Fatalf("EstimateTileCount: %v", err)
	}
	r0, _ := NewTileRange(bbox, 0)
	r1, _ := NewTileRange(bbox, 1)
	r2, _ := NewTileRange(bbox, 2)
	want := r0.Count() + r1.Count() + r2.Count()
	if total != want {
		t.Errorf("EstimateTileCount = %d, want %d", total, want)
	}
}

func TestNormalizeAngleDelta(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{180, 180},
		{-180, 180},
		{270, -90},
		{-270, 90},
	}
	for _, tc := range cases {
		got := NormalizeAngleDelta(tc.in)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("NormalizeAngleDelta(%f) = %f, want %f", tc.in, got, tc.want)
		}
	}
}
