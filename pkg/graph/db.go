package graph

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS routing_nodes (
	id INTEGER PRIMARY KEY,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	elevation REAL
);
CREATE TABLE IF NOT EXISTS routing_edges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	from_node INTEGER NOT NULL,
	to_node INTEGER NOT NULL,
	distance REAL NOT NULL,
	elevation_gain REAL NOT NULL,
	elevation_loss REAL NOT NULL,
	surface TEXT,
	highway_type TEXT,
	sac_scale TEXT,
	trail_visibility TEXT,
	name TEXT,
	osm_way_id INTEGER NOT NULL,
	cost REAL NOT NULL,
	reverse_cost REAL NOT NULL,
	is_oneway INTEGER NOT NULL,
	geometry BLOB
);
CREATE TABLE IF NOT EXISTS routing_metadata (
	key TEXT PRIMARY KEY,
	value TEXT
);
`

func createSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("graph: create schema: %w", err)
	}
	return nil
}

// createIndices builds the indices required before a build is considered
// complete: from_node/to_node for edge expansion, latitude for
// nearest-node spatial pruning.
func createIndices(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_edges_from ON routing_edges(from_node)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_to ON routing_edges(to_node)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_latitude ON routing_nodes(latitude)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("graph: create index: %w", err)
		}
	}
	return nil
}

func writeMetadata(ctx context.Context, tx *sql.Tx, kv map[string]string) error {
	for k, v := range kv {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO routing_metadata(key, value) VALUES(?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return fmt.Errorf("graph: write metadata %s: %w", k, err)
		}
	}
	return nil
}

func insertNode(ctx context.Context, tx *sql.Tx, n RoutingNode) error {
	var elev any
	if n.HasElevation {
		elev = n.Elevation
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO routing_nodes(id, latitude, longitude, elevation) VALUES(?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude, elevation = excluded.elevation`,
		n.ID, n.Latitude, n.Longitude, elev)
	if err != nil {
		return fmt.Errorf("graph: insert node %d: %w", n.ID, err)
	}
	return nil
}

func insertEdge(ctx context.Context, tx *sql.Tx, e RoutingEdge) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO routing_edges(from_node, to_node, distance, elevation_gain, elevation_loss,
			surface, highway_type, sac_scale, trail_visibility, name, osm_way_id, cost, reverse_cost, is_oneway, geometry)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FromNode, e.ToNode, e.Distance, e.ElevationGain, e.ElevationLoss,
		e.Surface, e.HighwayType, e.SacScale, e.TrailVisibility, e.Name, e.OSMWayID,
		e.Cost, e.ReverseCost, e.IsOneway, e.Geometry)
	if err != nil {
		return 0, fmt.Errorf("graph: insert edge from %d to %d: %w", e.FromNode, e.ToNode, err)
	}
	return res.LastInsertId()
}
