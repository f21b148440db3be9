package geo

import (
	"math"

	"github.com/hherb/hikecore/pkg/corerr"
)

// TileSize is the pixel width/height of a single map tile.
const TileSize = 256

// mercatorLatLimit is the maximum latitude representable in Web Mercator.
const mercatorLatLimit = 85.05112878

// TileCoordinate identifies a tile in slippy-map convention: y=0 is the
// northernmost row at zoom z. MBTiles storage uses TMS (y=0 south); convert
// at the storage boundary with ToTMS/FromTMS.
type TileCoordinate struct {
	X, Y uint32
	Z    uint8
}

// clampMercatorLat clamps lat to the Web Mercator projection limit.
func clampMercatorLat(lat float64) float64 {
	if lat > mercatorLatLimit {
		return mercatorLatLimit
	}
	if lat < -mercatorLatLimit {
		return -mercatorLatLimit
	}
	return lat
}

// CoordinateToPixel projects c to pixel coordinates at zoom, with the
// origin at the top-left of the world map and y increasing southward.
func CoordinateToPixel(c Coordinate, zoom int) (x, y float64) {
	lat := clampMercatorLat(c.Latitude)
	n := math.Pow(2, float64(zoom)) * TileSize

	x = (c.Longitude + 180.0) / 360.0 * n

	latRad := toRadians(lat)
	y = (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n
	return x, y
}

// PixelToCoordinate is the inverse of CoordinateToPixel.
func PixelToCoordinate(x, y float64, zoom int) Coordinate {
	n := math.Pow(2, float64(zoom)) * TileSize

	lon := x/n*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/n)))
	return Coordinate{Latitude: toDegrees(latRad), Longitude: lon}
}

// MetresPerPixel returns the ground resolution at lat and zoom.
func MetresPerPixel(lat float64, zoom int) float64 {
	lat = clampMercatorLat(lat)
	return 156_543.03392 * math.Cos(toRadians(lat)) / math.Pow(2, float64(zoom))
}

// CoordinateToTile returns the tile that contains c at zoom, in slippy
// convention.
func CoordinateToTile(c Coordinate, zoom int) TileCoordinate {
	x, y := CoordinateToPixel(c, zoom)
	n := uint32(1) << uint(zoom)

	tx := uint32(x / TileSize)
	ty := uint32(y / TileSize)
	if tx >= n {
		tx = n - 1
	}
	if ty >= n {
		ty = n - 1
	}
	return TileCoordinate{X: tx, Y: ty, Z: uint8(zoom)}
}

// Bounds returns the geographic bounding box covered by t.
func (t TileCoordinate) Bounds() BoundingBox {
	nw := PixelToCoordinate(float64(t.X)*TileSize, float64(t.Y)*TileSize, int(t.Z))
	se := PixelToCoordinate(float64(t.X+1)*TileSize, float64(t.Y+1)*TileSize, int(t.Z))
	return BoundingBox{North: nw.Latitude, South: se.Latitude, East: se.Longitude, West: nw.Longitude}
}

// ToTMS converts a slippy-map row to the TMS row used on disk in MBTiles:
// tms_y = (2^z - 1) - y.
func (t TileCoordinate) ToTMS() uint32 {
	n := uint32(1)<<uint(t.Z) - 1
	return n - t.Y
}

// FromTMS constructs a slippy-map TileCoordinate from a TMS row read off
// disk.
func FromTMS(x, tmsY uint32, z uint8) TileCoordinate {
	n := uint32(1)<<uint(z) - 1
	return TileCoordinate{X: x, Y: n - tmsY, Z: z}
}

// TileRange is the rectangular set of tiles at a single zoom covering a
// bounding box, inclusive on all edges.
type TileRange struct {
	Zoom                   uint8
	MinX, MaxX, MinY, MaxY uint32
}

// NewTileRange computes the tile range covering bbox at zoom.
func NewTileRange(bbox BoundingBox, zoom uint8) (TileRange, error) {
	if err := bbox.Validate(); err != nil {
		return TileRange{}, err
	}
	nw := CoordinateToTile(Coordinate{Latitude: bbox.North, Longitude: bbox.West}, int(zoom))
	se := CoordinateToTile(Coordinate{Latitude: bbox.South, Longitude: bbox.East}, int(zoom))
	return TileRange{Zoom: zoom, MinX: nw.X, MaxX: se.X, MinY: nw.Y, MaxY: se.Y}, nil
}

// Count returns the number of tiles in the range.
func (r TileRange) Count() int64 {
	width := int64(r.MaxX) - int64(r.MinX) + 1
	height := int64(r.MaxY) - int64(r.MinY) + 1
	return width * height
}

// EstimateTileCount sums Count across every zoom in [minZoom, maxZoom].
func EstimateTileCount(bbox BoundingBox, minZoom, maxZoom uint8) (int64, error) {
	if minZoom > maxZoom {
		return 0, corerr.Newf(corerr.InvalidCoordinate, "minZoom %d exceeds maxZoom %d", minZoom, maxZoom)
	}
	var total int64
	for z := minZoom; ; z++ {
		r, err := NewTileRange(bbox, z)
		if err != nil {
			return 0, err
		}
		total += r.Count()
		if z == maxZoom {
			break
		}
	}
	return total, nil
}
