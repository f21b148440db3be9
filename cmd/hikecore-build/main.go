// Command hikecore-build drives an OSM extract and a directory of HGT
// elevation tiles through the graph builder, producing a routing
// database ready for pkg/routing. It is a thin example wiring the core
// library together, not part of the library itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/hherb/hikecore/pkg/corerr"
	"github.com/hherb/hikecore/pkg/cost"
	"github.com/hherb/hikecore/pkg/elevation"
	"github.com/hherb/hikecore/pkg/graph"
	"github.com/hherb/hikecore/pkg/osmdata"
)

var (
	osmPath       string
	demDir        string
	dbPath        string
	mode          string
	osmSnapshotID string
	debug         bool

	elevationRPS     float64
	elevationWorkers int
	commitBatchSize  int
	elevationCache   int
)

func init() {
	flag.StringVar(&osmPath, "osm", "", "path to an OSM XML extract")
	flag.StringVar(&demDir, "dem-dir", "", "directory of HGT elevation tiles")
	flag.StringVar(&dbPath, "out", "", "path to write the routing database")
	flag.StringVar(&mode, "mode", "hiking", "activity mode: hiking or cycling")
	flag.StringVar(&osmSnapshotID, "osm-snapshot-id", "", "identifier recorded in the routing database metadata")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")

	flag.Float64Var(&elevationRPS, "elevation-rps", 0, "elevation query rate limit, <= 0 disables limiting")
	flag.IntVar(&elevationWorkers, "elevation-workers", graph.DefaultElevationWorkers, "concurrent elevation lookup workers")
	flag.IntVar(&commitBatchSize, "commit-batch-size", graph.DefaultCommitBatchSize, "edges written per transaction")
	flag.IntVar(&elevationCache, "elevation-cache-tiles", elevation.DefaultCacheSize, "decoded HGT tiles held in memory")
}

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("build failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	if osmPath == "" || demDir == "" || dbPath == "" {
		flag.Usage()
		return fmt.Errorf("hikecore-build: -osm, -dem-dir, and -out are required")
	}

	buildMode, err := parseMode(mode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src := osmdata.NewXMLSource(osmPath)
	defer src.Close()

	elev, err := elevation.NewProvider(demDir, elevationCache)
	if err != nil {
		return fmt.Errorf("hikecore-build: open elevation provider: %w", err)
	}

	opts := graph.Options{
		DBPath:             dbPath,
		Mode:               buildMode,
		OSMSnapshotID:      osmSnapshotID,
		DEMSource:          demDir,
		CommitBatchSize:    commitBatchSize,
		ElevationRateLimit: rate.Limit(elevationRPS),
		ElevationWorkers:   elevationWorkers,
		Logger:             logger,
	}

	start := time.Now()
	progress, errc := graph.Build(ctx, src, elev, opts)

	for p := range progress {
		logger.Info("build progress", "stage", p.Stage, "done", p.UnitsDone, "total", p.UnitsTotal)
	}

	if err := <-errc; err != nil {
		if corerr.Of(err, corerr.MissingTile) {
			return fmt.Errorf("hikecore-build: build: %w (check -dem-dir covers the extract's bounding box)", err)
		}
		return fmt.Errorf("hikecore-build: build: %w", err)
	}

	logger.Info("build complete", "db", dbPath, "elapsed", time.Since(start))
	return nil
}

func parseMode(s string) (cost.Mode, error) {
	switch cost.Mode(s) {
	case cost.Hiking, cost.Cycling:
		return cost.Mode(s), nil
	default:
		return "", fmt.Errorf("hikecore-build: unknown mode %q (want hiking or cycling)", s)
	}
}
