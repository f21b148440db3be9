package elevation

import (
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hherb/hikecore/pkg/corelog"
	"github.com/hherb/hikecore/pkg/geo"
	"github.com/hherb/hikecore/pkg/metrics"
)

// DefaultCacheSize is a reasonable tile-cache capacity for a continental
// graph build.
const DefaultCacheSize = 32

// Provider maps coordinates to metre altitudes from a directory of HGT
// files, holding an in-memory LRU of decoded tiles.
type Provider struct {
	dir    string
	cache  *lru.Cache[string, *hgtTile]
	logger *slog.Logger
}

// NewProvider constructs a Provider reading HGT files from dir, caching up
// to cacheSize decoded tiles. cacheSize <= 0 uses DefaultCacheSize.
func NewProvider(dir string, cacheSize int) (*Provider, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *hgtTile](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("elevation: create tile cache: %w", err)
	}
	return &Provider{
		dir:    dir,
		cache:  cache,
		logger: corelog.Named("elevation"),
	}, nil
}

func tileCacheKey(swLat, swLon int) string {
	return tileFileName(swLat, swLon)
}

func (p *Provider) loadCached(swLat, swLon int) (*hgtTile, error) {
	key := tileCacheKey(swLat, swLon)
	if t, ok := p.cache.Get(key); ok {
		metrics.ElevationCacheHits.Inc()
		return t, nil
	}
	metrics.ElevationCacheMisses.Inc()

	t, err := loadTile(p.dir, swLat, swLon)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, t)
	p.logger.Debug("loaded hgt tile", "tile", key, "samples", t.side*t.side)
	return t, nil
}

// ElevationAt returns the bilinearly interpolated elevation in metres at
// c. ok is false as soon as any of the four surrounding samples that
// carries a nonzero interpolation weight is void; no fallback to the
// nearest valid sample is made. Missing or corrupt
// tiles return an error; callers performing graph builds should treat
// that error as "unknown elevation" (zero climb contribution) per the
// elevation provider's documented failure mode.
func (p *Provider) ElevationAt(c geo.Coordinate) (elevation float64, ok bool, err error) {
	if err := c.Validate(); err != nil {
		return 0, false, err
	}

	swLat, swLon := swCorner(c)
	tile, err := p.loadCached(swLat, swLon)
	if err != nil {
		return 0, false, err
	}

	v, valid := tile.interpolate(c.Latitude, c.Longitude)
	return v, valid, nil
}

// ElevationOrZero returns ElevationAt's value, collapsing any error or
// void result to 0, matching the "unknown elevation contributes zero
// climb" rule used by the graph builder.
func (p *Provider) ElevationOrZero(c geo.Coordinate) float64 {
	v, ok, err := p.ElevationAt(c)
	if err != nil || !ok {
		return 0
	}
	return v
}
