package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths (files or directories),
	// overlays it on the defaults, and returns the unified model. Paths that
	// do not exist are skipped; with no paths at all, Load returns Default().
	Load(ctx context.Context, paths ...string) (*Model, error)
}
