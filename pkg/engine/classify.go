package engine

import (
	"github.com/openshelf/stock-sentinel/pkg/model"
	"github.com/openshelf/stock-sentinel/pkg/rules"
)

// Classify runs the ordered rule chain over one signal. Rules are mutually
// exclusive by construction: evaluation stops at the first match, so a
// product yields at most one primary alert per pass. The bool is false when
// no rule matches.
//
// Priority order: stockout, overstock, dead stock, price opportunity.
func Classify(sig model.InventorySignal, rs *rules.Ruleset) (model.AlertType, bool) {
	t := rs.Thresholds
	wos := sig.WeeksOfStock

	switch {
	case wos < t.StockoutMaxWeeks && sig.WeeklySales > t.StockoutMinWeeklySale:
		return model.TypeStockout, true

	case wos > t.OverstockMinWeeks && sig.Stock > t.OverstockMinStock && sig.Price > t.OverstockMinPrice:
		return model.TypeOverstock, true

	case wos > t.DeadStockMinWeeks && sig.WeeklySales < t.DeadStockMaxWeeklySale && sig.Stock > t.DeadStockMinStock:
		return model.TypeDeadStock, true

	case sig.WeeklySales > t.PriceOppMinWeeklySales && sig.Price > t.PriceOppMinPrice &&
		wos > t.PriceOppMinWeeks && wos < t.PriceOppMaxWeeks:
		return model.TypePriceOpportunity, true

	default:
		return "", false
	}
}
