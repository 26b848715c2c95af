// Package feed supplies competitor price observations to the alert engine.
// Two sources exist: a deterministic synthetic stub standing in for the real
// scraping pipeline, and an HTTP client for a deployed price feed. Either
// way the engine just receives a price list; a feed outage costs the
// competitor-threat pass, never the primary alerts.
package feed

import (
	"context"

	"github.com/openshelf/stock-sentinel/pkg/model"
)

// Source fetches competitor prices for the given products. Implementations
// must respect ctx and may return fewer products than asked for.
type Source interface {
	// Name returns the source identifier.
	Name() string

	// Fetch returns competitor price observations for the products.
	Fetch(ctx context.Context, products []model.InventorySignal) ([]model.CompetitorPrice, error)
}
