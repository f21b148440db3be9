package osmdata

import (
	"context"
	"errors"
)

// ErrUnsupportedFormat is returned by adapters that recognise an input's
// container format but cannot decode it (e.g. the PBF adapter, which
// exists to satisfy Source's contract but has no decoder wired in).
var ErrUnsupportedFormat = errors.New("osmdata: unsupported source format")

// Source iterates the nodes and ways of an OSM extract. Implementations
// own the resources (open files, buffers) they read from and release them
// on Close.
type Source interface {
	// Nodes streams every node in the extract. The returned channel is
	// closed when iteration completes or ctx is cancelled.
	Nodes(ctx context.Context) (<-chan Node, <-chan error)

	// Ways streams every routable way in the extract (see IsRoutable);
	// non-routable ways are filtered out before they reach the caller.
	Ways(ctx context.Context) (<-chan Way, <-chan error)

	// Close releases the source's underlying resources.
	Close() error
}
