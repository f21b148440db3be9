package routing

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/hherb/hikecore/pkg/corerr"
	"github.com/hherb/hikecore/pkg/geo"
	"github.com/hherb/hikecore/pkg/graph"
)

// snapRadiiMetres are the successively widening search radii tried by
// snapNearest. The first is the minimum bounded radius the snap contract
// requires; later radii accommodate sparse graphs.
var snapRadiiMetres = []float64{200, 500, 1000, 2000, 5000}

// metresPerDegreeLat is the (near-constant) distance a degree of latitude
// spans, used to size the latitude-index window.
const metresPerDegreeLat = 111_320.0

// snapNearest finds the routing node closest to c, scanning the
// latitude-indexed node table in successively wider windows. It fails
// with corerr.NoNearbyNode once every radius in snapRadiiMetres has been
// exhausted.
func snapNearest(ctx context.Context, db *sql.DB, c geo.Coordinate) (graph.RoutingNode, error) {
	var best graph.RoutingNode
	bestDist := math.MaxFloat64
	found := false

	for _, radius := range snapRadiiMetres {
		latDelta := radius / metresPerDegreeLat
		cosLat := math.Cos(c.Latitude * math.Pi / 180)
		if cosLat < 1e-6 {
			cosLat = 1e-6
		}
		lonDelta := radius / (metresPerDegreeLat * cosLat)

		rows, err := db.QueryContext(ctx,
			`SELECT id, latitude, longitude, elevation FROM routing_nodes
			 WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`,
			c.Latitude-latDelta, c.Latitude+latDelta,
			c.Longitude-lonDelta, c.Longitude+lonDelta)
		if err != nil {
			return graph.RoutingNode{}, fmt.Errorf("routing: query nodes near %v: %w", c, err)
		}

		for rows.Next() {
			var n graph.RoutingNode
			var elev sql.NullFloat64
			if err := rows.Scan(&n.ID, &n.Latitude, &n.Longitude, &elev); err != nil {
				rows.Close()
				return graph.RoutingNode{}, fmt.Errorf("routing: scan node: %w", err)
			}
			if elev.Valid {
				n.HasElevation = true
				n.Elevation = elev.Float64
			}
			d := geo.HaversineDistance(c, geo.Coordinate{Latitude: n.Latitude, Longitude: n.Longitude})
			if d < bestDist {
				bestDist = d
				best = n
				found = true
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return graph.RoutingNode{}, fmt.Errorf("routing: iterate nodes: %w", err)
		}
		rows.Close()

		if found && bestDist <= radius {
			return best, nil
		}
	}

	maxRadius := snapRadiiMetres[len(snapRadiiMetres)-1]
	if found && bestDist <= maxRadius {
		return best, nil
	}
	return graph.RoutingNode{}, corerr.Newf(corerr.NoNearbyNode, "no routing node within %.0fm of %v", maxRadius, c)
}
