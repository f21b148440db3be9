package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for graph-build and routing spans.
const (
	// Graph build attributes
	AttrBuildStage     = "hikecore.build.stage"
	AttrBuildNodes     = "hikecore.build.nodes"
	AttrBuildEdges     = "hikecore.build.edges"
	AttrBuildDurationMs = "hikecore.build.duration_ms"

	// Routing attributes
	AttrRouteMode       = "hikecore.route.mode"
	AttrRouteNodes      = "hikecore.route.nodes_expanded"
	AttrRouteDurationMs = "hikecore.route.duration_ms"

	// Cache attributes
	AttrCacheType = "hikecore.cache.type"
	AttrCacheHit  = "hikecore.cache.hit"
	AttrCacheKey  = "hikecore.cache.key"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values used alongside the attributes above.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Cache types
const (
	CacheTypeElevation = "elevation"
	CacheTypeTile      = "tile"
)

// BuildAttributes returns attributes describing a graph-build stage.
func BuildAttributes(stage string, nodes, edges int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrBuildStage, stage),
		attribute.Int(AttrBuildNodes, nodes),
		attribute.Int(AttrBuildEdges, edges),
	}
}

// RouteAttributes returns attributes describing an A* search.
func RouteAttributes(mode string, nodesExpanded int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRouteMode, mode),
		attribute.Int(AttrRouteNodes, nodesExpanded),
	}
}

// CacheAttributes returns attributes for cache operations.
func CacheAttributes(cacheType string, hit bool, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCacheType, cacheType),
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheKey, key),
	}
}

// ErrorAttributes returns attributes for errors.
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, "error"),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
