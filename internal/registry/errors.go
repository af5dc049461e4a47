package registry

import "github.com/payneio/castle/internal/catalog"

// Re-exported so callers can use registry.ErrNotFound /
// registry.ErrUnsupportedRunner without importing internal/catalog
// directly for error checks.
var (
	ErrNotFound          = catalog.ErrNotFound
	ErrUnsupportedRunner = catalog.ErrUnsupportedRunner
)
