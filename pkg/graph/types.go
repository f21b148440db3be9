// Package graph builds and persists the routing database: a directed
// graph of junction nodes and split edges, derived from parsed OSM data
// and an elevation provider, costed by pkg/cost.
package graph

// RoutingNode is a junction retained in the routing database. ID is the
// original OSM node id, preserved so two builds of overlapping regions
// can be diffed.
type RoutingNode struct {
	ID              int64
	Latitude        float64
	Longitude       float64
	HasElevation    bool
	Elevation       float64
}

// RoutingEdge is one directed row of the routing database.
type RoutingEdge struct {
	ID              int64
	FromNode        int64
	ToNode          int64
	Distance        float64
	ElevationGain   float64
	ElevationLoss   float64
	Surface         string
	HighwayType     string
	SacScale        string
	TrailVisibility string
	Name            string
	OSMWayID        int64
	Cost            float64
	ReverseCost     float64
	IsOneway        bool
	Geometry        []byte // internal polyline from FromNode to ToNode, encoded by EncodeGeometry
}

// Stage names reported via Progress during a build.
const (
	StageFilter    = "FILTER"
	StageJunctions = "JUNCTIONS"
	StageElevation = "ELEVATION"
	StageEdges     = "EDGES"
	StageWrite     = "WRITE"
)

// Progress is one record in the builder's progress sequence.
type Progress struct {
	Stage      string
	UnitsDone  int
	UnitsTotal int
}
