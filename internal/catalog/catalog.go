// Package catalog holds the product data model and the attribute/asset
// lookup capability consumed by the decision pipeline. The pipeline only
// ever reads through the Lookup interface; the SQLite store in this package
// is one implementation of it.
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist.
// Note that Lookup methods never return it: an unknown product id yields
// an empty attribute map or asset list, which downstream code treats as a
// valid degraded input.
var ErrNotFound = errors.New("not found")

// Lookup is the read-only capability the decision pipeline needs from the
// catalog. Implementations must be safe for concurrent reads.
type Lookup interface {
	// Attributes returns the attribute map for a product.
	// Unknown ids yield an empty map, not an error.
	Attributes(ctx context.Context, productID string) (map[string]Value, error)

	// AttributesBatch returns attribute maps for several products at once.
	// The result has an entry for every requested id, empty for unknown ones.
	AttributesBatch(ctx context.Context, productIDs []string) (map[string]map[string]Value, error)

	// VisualAssets returns the visual asset records for a product.
	// Unknown ids yield an empty slice, not an error.
	VisualAssets(ctx context.Context, productID string) ([]VisualAsset, error)
}
