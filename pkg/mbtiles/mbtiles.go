// Package mbtiles implements a reader/writer for the MBTiles 1.3 SQLite
// schema: a metadata key/value table and a tile BLOB table addressed in
// TMS row order.
package mbtiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hherb/hikecore/internal/cache"
	"github.com/hherb/hikecore/pkg/corelog"
	"github.com/hherb/hikecore/pkg/corerr"
	"github.com/hherb/hikecore/pkg/geo"
)

// BatchSize is how many inserted tiles the downloader collaborator commits
// per transaction.
const BatchSize = 150

const schemaDDL = `
CREATE TABLE IF NOT EXISTS metadata (
	name TEXT PRIMARY KEY,
	value TEXT
);
CREATE TABLE IF NOT EXISTS tiles (
	zoom_level INTEGER,
	tile_column INTEGER,
	tile_row INTEGER,
	tile_data BLOB
);
CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row);
`

// Store is a handle on one MBTiles file. At most one writer per file is
// supported; readers opened on a file under concurrent write must
// tolerate BusyRetry and back off, which Store does internally.
type Store struct {
	db     *sql.DB
	cache  *cache.TTLCache[string, []byte]
	mu     sync.Mutex // guards tx
	tx     *sql.Tx
	logger *slog.Logger
}

// Open opens (or creates) an MBTiles file at path for reading and writing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("mbtiles: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("mbtiles: ping %s: %w", path, err)
	}
	return &Store{
		db:     db,
		cache:  cache.NewTTLCache[string, []byte](10*time.Minute, time.Minute, 500),
		logger: corelog.Named("mbtiles"),
	}, nil
}

// Close releases the underlying database handle and stops the read
// cache's cleanup goroutine.
func (s *Store) Close() error {
	s.cache.Stop()
	return s.db.Close()
}

// Create initialises the schema and writes the required metadata rows.
func (s *Store) Create(ctx context.Context, name string, bbox geo.BoundingBox, minZoom, maxZoom int) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("mbtiles: create schema: %w", err)
	}

	center := bbox.Center()
	meta := map[string]string{
		"name":    name,
		"format":  "png",
		"minzoom": strconv.Itoa(minZoom),
		"maxzoom": strconv.Itoa(maxZoom),
		"bounds":  fmt.Sprintf("%f,%f,%f,%f", bbox.West, bbox.South, bbox.East, bbox.North),
		"center":  fmt.Sprintf("%f,%f,%d", center.Longitude, center.Latitude, minZoom),
	}
	for k, v := range meta {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO metadata(name, value) VALUES(?, ?)
			 ON CONFLICT(name) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return fmt.Errorf("mbtiles: write metadata %s: %w", k, err)
		}
	}
	return nil
}

func tileCacheKey(x, y uint32, z uint8) string {
	return fmt.Sprintf("%d/%d/%d", z, x, y)
}

// GetTile reads the tile at the given slippy-map coordinates, converting
// to TMS row order for the on-disk lookup. A nil slice with no error
// means the tile is absent.
func (s *Store) GetTile(ctx context.Context, x, y uint32, z uint8) ([]byte, error) {
	key := tileCacheKey(x, y, z)
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}

	tc := geo.TileCoordinate{X: x, Y: y, Z: z}
	tmsY := tc.ToTMS()

	var data []byte
	err := withRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
			z, x, tmsY)
		scanErr := row.Scan(&data)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil
		}
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	if data != nil {
		s.cache.Set(key, data)
	}
	return data, nil
}

// InsertTile upserts a tile at the given slippy-map coordinates. Callers
// must call Begin first; InsertTile writes within the open transaction.
func (s *Store) InsertTile(ctx context.Context, x, y uint32, z uint8, blob []byte) error {
	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()
	if tx == nil {
		return corerr.New(corerr.BusyRetry, "InsertTile called outside an open transaction")
	}

	tc := geo.TileCoordinate{X: x, Y: y, Z: z}
	tmsY := tc.ToTMS()

	_, err := tx.ExecContext(ctx,
		`INSERT INTO tiles(zoom_level, tile_column, tile_row, tile_data) VALUES(?, ?, ?, ?)
		 ON CONFLICT(zoom_level, tile_column, tile_row) DO UPDATE SET tile_data = excluded.tile_data`,
		z, x, tmsY, blob)
	if err != nil {
		return fmt.Errorf("mbtiles: insert tile %d/%d/%d: %w", z, x, y, err)
	}
	s.cache.Delete(tileCacheKey(x, y, z))
	return nil
}

// Begin starts a write transaction. Only one may be open at a time.
func (s *Store) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return corerr.New(corerr.BusyRetry, "a transaction is already open")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mbtiles: begin: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit commits the open transaction, leaving any previously committed
// batches intact.
func (s *Store) Commit() error {
	s.mu.Lock()
	tx := s.tx
	s.tx = nil
	s.mu.Unlock()
	if tx == nil {
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mbtiles: commit: %w", err)
	}
	return nil
}

// Rollback aborts the open transaction. Previously committed batches are
// unaffected, so the file remains a valid partial dataset.
func (s *Store) Rollback() error {
	s.mu.Lock()
	tx := s.tx
	s.tx = nil
	s.mu.Unlock()
	if tx == nil {
		return nil
	}
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("mbtiles: rollback: %w", err)
	}
	return nil
}

// withRetry runs op, retrying with backoff on SQLITE_BUSY-style errors
// until ctx is done.
func withRetry(ctx context.Context, op func() error) error {
	backoff := 10 * time.Millisecond
	for {
		err := op()
		if err == nil {
			return nil
		}
		if !isBusyErr(err) {
			return fmt.Errorf("mbtiles: query: %w", err)
		}
		select {
		case <-ctx.Done():
			return corerr.Wrap(corerr.Cancelled, "mbtiles query cancelled while busy", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

func isBusyErr(err error) bool {
	return strings.Contains(err.Error(), "busy") || strings.Contains(err.Error(), "locked")
}
