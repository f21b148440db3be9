// Package corelog centralises the logger-construction idiom the I/O and
// long-running components (pkg/elevation, pkg/mbtiles, pkg/graph,
// pkg/routing) share: a component-scoped child of slog.Default,
// overridable by callers who pass their own *slog.Logger.
package corelog

import "log/slog"

// Named returns slog.Default() scoped with a "component" attribute,
// matching the teacher's "logger := slog.Default().With(...)" idiom at
// the top of each long-running operation.
func Named(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// OrDefault returns logger if non-nil, otherwise Named(component). Every
// constructor that accepts an optional *slog.Logger argument uses this
// to fall back to a sensible default rather than requiring callers to
// thread a logger through code paths that don't care about one.
func OrDefault(logger *slog.Logger, component string) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Named(component)
}
