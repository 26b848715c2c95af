// Package engine generates severity-ranked, financially quantified alerts
// from per-product inventory signals. Generation is a pure per-product
// computation: the engine keeps no state between passes, and lifecycle flags
// are owned by the caller and only merged here.
package engine

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/openshelf/stock-sentinel/pkg/model"
	"github.com/openshelf/stock-sentinel/pkg/rules"
)

// ExtractSignals validates raw inventory records and derives per-product
// metrics. Records missing a product key, price, or stock level are skipped
// with a warning; a bad row never fails the batch. The second return value
// is the number of skipped records.
func ExtractSignals(records []model.RawRecord, rs *rules.Ruleset, logger *slog.Logger) ([]model.InventorySignal, int) {
	signals := make([]model.InventorySignal, 0, len(records))
	skipped := 0

	for _, rec := range records {
		sig, ok := extractOne(rec, rs)
		if !ok {
			skipped++
			logger.Warn("skipping record with invalid fields", "product_key", rec.ProductKey)
			continue
		}
		signals = append(signals, sig)
	}

	return signals, skipped
}

func extractOne(rec model.RawRecord, rs *rules.Ruleset) (model.InventorySignal, bool) {
	if strings.TrimSpace(rec.ProductKey) == "" {
		return model.InventorySignal{}, false
	}

	price, ok := toFloat(rec.Price)
	if !ok || price < 0 {
		return model.InventorySignal{}, false
	}

	stock, ok := toFloat(rec.Stock)
	if !ok || stock < 0 {
		return model.InventorySignal{}, false
	}

	// Weekly sales may legitimately be absent for a product that never
	// sold; treat missing or negative values as zero movement.
	weekly, ok := toFloat(rec.WeeklySales)
	if !ok || weekly < 0 {
		weekly = 0
	}

	wos := rs.WeeksOfStockSentinel
	if weekly > rs.SalesFloor {
		wos = stock / weekly
	}

	return model.InventorySignal{
		ProductKey:   rec.ProductKey,
		Category:     rec.Category,
		Price:        price,
		WeeklySales:  weekly,
		Stock:        stock,
		WeeksOfStock: wos,
	}, true
}

// toFloat coerces the loosely typed feed values. JSON decoding yields
// float64 or string; direct construction may hand us ints.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
