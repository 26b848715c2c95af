package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/openshelf/stock-sentinel/pkg/model"
	"github.com/openshelf/stock-sentinel/pkg/rules"
)

// Build assembles the complete alert for a classified signal: financial
// projections, action plans, urgency, and the confidence prior. The same
// signal, type, ruleset, and timestamp always produce the same alert.
// An unrecognized type is an internal invariant violation and returns an
// error so the caller can skip the product rather than emit an inconsistent
// alert.
func Build(sig model.InventorySignal, alertType model.AlertType, rs *rules.Ruleset, now time.Time) (model.Alert, error) {
	switch alertType {
	case model.TypeStockout:
		return buildStockout(sig, rs, now), nil
	case model.TypeOverstock:
		return buildOverstock(sig, rs, now), nil
	case model.TypeDeadStock:
		return buildDeadStock(sig, rs, now), nil
	case model.TypePriceOpportunity:
		return buildPriceOpportunity(sig, rs, now), nil
	default:
		return model.Alert{}, fmt.Errorf("no builder for alert type %q", alertType)
	}
}

func buildStockout(sig model.InventorySignal, rs *rules.Ruleset, now time.Time) model.Alert {
	f := rs.Financials

	days := int(math.Floor(sig.WeeksOfStock * 7))
	reorderQty := math.Ceil(sig.WeeklySales * f.ReorderWeeks)
	revenueAtRisk := floorMoney(sig.Price * sig.WeeklySales * f.StockoutRiskWeeks)
	costToResolve := floorMoney(sig.Price * reorderQty * f.ReorderCostRatio)

	severity := model.SeverityMedium
	switch {
	case days <= f.StockoutCriticalDays:
		severity = model.SeverityCritical
	case days <= f.StockoutHighDays:
		severity = model.SeverityHigh
	}

	deadline := now.AddDate(0, 0, max(1, days-f.StockoutLeadDays))

	primary := model.ActionPlan{
		Title: "Emergency reorder",
		Steps: []string{
			fmt.Sprintf("Contact the supplier and order %.0f units", reorderQty),
			"Request expedited shipping",
			fmt.Sprintf("Confirm delivery lands before %s", deadline.Format("Jan 2")),
			fmt.Sprintf("Prepare payment of $%.0f", costToResolve),
		},
		Deadline:        deadline,
		ExpectedOutcome: fmt.Sprintf("Shelf availability held; $%.0f of revenue protected", revenueAtRisk),
		Automatable:     true,
		AutomationRule:  "Place the reorder automatically when a confirmed supplier price is on file and the order value is within the purchasing limit",
	}

	alternatives := []model.ActionPlan{
		{
			Title: "Source from an alternate supplier",
			Steps: []string{
				"Request quotes from backup suppliers",
				"Compare landed cost and lead time against the primary",
				"Split the order if no single supplier can cover the quantity",
			},
			Deadline:        deadline,
			ExpectedOutcome: "Stock arrives even if the primary supplier cannot deliver in time",
		},
		{
			Title: "Pre-sell with delayed delivery",
			Steps: []string{
				"Switch the listing to pre-order",
				"Offer a small discount for customers accepting delayed delivery",
				"Cap pre-orders at the incoming reorder quantity",
			},
			Deadline:        deadline,
			ExpectedOutcome: "Demand captured while replenishment is in transit",
		},
	}

	return model.Alert{
		Key:      model.AlertKey(sig.ProductKey, model.TypeStockout),
		Type:     model.TypeStockout,
		Severity: severity,
		Title:    fmt.Sprintf("Critical stockout: %s", sig.ProductKey),
		Message: fmt.Sprintf(
			"%s sells %.1f units/week with %.0f on hand (%.1f weeks of cover). Projected stockout in %d days puts $%.0f of revenue at risk.",
			sig.ProductKey, sig.WeeklySales, sig.Stock, sig.WeeksOfStock, days, revenueAtRisk),
		Summary:         fmt.Sprintf("Stockout in %d days, $%.0f at risk", days, revenueAtRisk),
		RevenueAtRisk:   revenueAtRisk,
		CostToResolve:   costToResolve,
		EstimatedImpact: revenueAtRisk,
		UrgencyScore:    urgencyScore(severity, deadline, now),
		TimeToCritical:  humanDays(days),
		PrimaryAction:   primary,
		Alternatives:    alternatives,
		Confidence:      rs.Confidence.Stockout,
		Product:         sig,
		AutoResolve:     fmt.Sprintf("Close once weeks of cover rises above %.1f", rs.Thresholds.StockoutMaxWeeks),
		CreatedAt:       now,
	}
}

func buildOverstock(sig model.InventorySignal, rs *rules.Ruleset, now time.Time) model.Alert {
	f := rs.Financials

	excess := sig.Stock - sig.WeeklySales*f.TargetCoverWeeks
	cashTiedUp := floorMoney(excess * sig.Price * f.CashCostBasis)
	holdingPerMonth := floorMoney(cashTiedUp * f.MonthlyHoldingRate)
	unitsToMove := math.Min(excess, math.Ceil(sig.WeeklySales*f.ClearanceVelocityMult*f.ClearanceWeeks))
	cashRecovery := floorMoney(unitsToMove * sig.Price * f.ClearancePriceRatio)
	markdownCost := floorMoney(unitsToMove * sig.Price * f.OverstockDiscountPct / 100)

	severity := model.SeverityMedium
	if sig.WeeksOfStock > f.OverstockHighWeeks {
		severity = model.SeverityHigh
	}

	deadline := now.AddDate(0, 0, f.OverstockWindowDays)

	primary := model.ActionPlan{
		Title: fmt.Sprintf("Run a %.0f%% markdown for %d days", f.OverstockDiscountPct, f.OverstockWindowDays),
		Steps: []string{
			fmt.Sprintf("Cut the price by %.0f%% on shelf and online", f.OverstockDiscountPct),
			fmt.Sprintf("Feature the product in promotion slots to move %.0f units", unitsToMove),
			"Check sell-through weekly and deepen the discount if it lags",
			fmt.Sprintf("End the promotion on %s", deadline.Format("Jan 2")),
		},
		Deadline:        deadline,
		ExpectedOutcome: fmt.Sprintf("About $%.0f of tied-up cash recovered", cashRecovery),
		Automatable:     true,
		AutomationRule:  fmt.Sprintf("Apply the markdown automatically when cover stays above %.0f weeks for two consecutive passes", f.TargetCoverWeeks),
	}

	alternatives := []model.ActionPlan{
		{
			Title: "Bundle with fast movers",
			Steps: []string{
				"Pair the product with top sellers in the same category",
				"Price the bundle below combined retail",
				"Feature bundles at checkout",
			},
			Deadline:        deadline,
			ExpectedOutcome: "Excess moves without a visible markdown on the product",
		},
		{
			Title: "Liquidate wholesale",
			Steps: []string{
				"Collect bids from liquidation buyers",
				"Accept offers above the cost basis",
				"Ship the excess in one lot",
			},
			Deadline:        deadline,
			ExpectedOutcome: "Immediate cash with no further holding cost",
		},
	}

	return model.Alert{
		Key:      model.AlertKey(sig.ProductKey, model.TypeOverstock),
		Type:     model.TypeOverstock,
		Severity: severity,
		Title:    fmt.Sprintf("Overstock cash drain: %s", sig.ProductKey),
		Message: fmt.Sprintf(
			"%s holds %.0f units, %.1f weeks of cover. $%.0f is tied up in excess stock and holding it costs about $%.0f per month.",
			sig.ProductKey, sig.Stock, sig.WeeksOfStock, cashTiedUp, holdingPerMonth),
		Summary:         fmt.Sprintf("$%.0f tied up, $%.0f/month holding cost", cashTiedUp, holdingPerMonth),
		RevenueAtRisk:   cashTiedUp,
		CostToResolve:   markdownCost,
		EstimatedImpact: cashRecovery,
		UrgencyScore:    urgencyScore(severity, deadline, now),
		TimeToCritical:  humanDays(f.OverstockWindowDays),
		PrimaryAction:   primary,
		Alternatives:    alternatives,
		Confidence:      rs.Confidence.Overstock,
		Product:         sig,
		AutoResolve:     fmt.Sprintf("Close once weeks of cover falls below %.0f", f.TargetCoverWeeks),
		CreatedAt:       now,
	}
}

func buildDeadStock(sig model.InventorySignal, rs *rules.Ruleset, now time.Time) model.Alert {
	f := rs.Financials

	totalValue := floorMoney(sig.Stock * sig.Price)
	expectedRecovery := floorMoney(totalValue * f.DeadStockRecoveryRatio)
	markdownCost := floorMoney(totalValue * f.DeadStockMarkdownPct / 100)

	deadline := now.AddDate(0, 0, f.DeadStockWindowDays)

	primary := model.ActionPlan{
		Title: fmt.Sprintf("Clear at %.0f%% off", f.DeadStockMarkdownPct),
		Steps: []string{
			fmt.Sprintf("Mark the product down %.0f%% storewide", f.DeadStockMarkdownPct),
			"Move remaining units to the clearance section",
			fmt.Sprintf("Donate or write off whatever is left after %s", deadline.Format("Jan 2")),
		},
		Deadline:        deadline,
		ExpectedOutcome: fmt.Sprintf("Up to $%.0f recovered before the value is written off", expectedRecovery),
	}

	alternatives := []model.ActionPlan{
		{
			Title: "Return to supplier",
			Steps: []string{
				"Check the supplier agreement for return terms",
				"Negotiate the restocking fee",
				"Return every eligible unit",
			},
			Deadline:        deadline,
			ExpectedOutcome: "Credit recovered without discounting",
		},
		{
			Title: "Sell to a liquidation partner",
			Steps: []string{
				"Get quotes from liquidation partners",
				"Compare the offers against clearance recovery",
				"Release the full lot to the best bidder",
			},
			Deadline:        deadline,
			ExpectedOutcome: "One-shot recovery with zero further effort",
		},
	}

	return model.Alert{
		Key:      model.AlertKey(sig.ProductKey, model.TypeDeadStock),
		Type:     model.TypeDeadStock,
		Severity: model.SeverityHigh,
		Title:    fmt.Sprintf("Dead stock: %s", sig.ProductKey),
		Message: fmt.Sprintf(
			"%s has barely moved at %.1f units/week; %.0f units worth $%.0f are headed for a write-off.",
			sig.ProductKey, sig.WeeklySales, sig.Stock, totalValue),
		Summary:         fmt.Sprintf("$%.0f in stock value at write-off risk", totalValue),
		RevenueAtRisk:   totalValue,
		CostToResolve:   markdownCost,
		EstimatedImpact: expectedRecovery,
		UrgencyScore:    urgencyScore(model.SeverityHigh, deadline, now),
		TimeToCritical:  humanDays(f.DeadStockWindowDays),
		PrimaryAction:   primary,
		Alternatives:    alternatives,
		Confidence:      rs.Confidence.DeadStock,
		Product:         sig,
		AutoResolve:     fmt.Sprintf("Close once stock drops below %.0f units", rs.Thresholds.DeadStockMinStock),
		CreatedAt:       now,
	}
}

func buildPriceOpportunity(sig model.InventorySignal, rs *rules.Ruleset, now time.Time) model.Alert {
	f := rs.Financials

	newPrice := sig.Price * (1 + f.PriceIncreasePct/100)
	newWeekly := sig.WeeklySales * (1 - f.ElasticityDropPct/100)
	monthlyGain := floorMoney(newPrice*newWeekly*f.WeeksPerMonth - sig.Price*sig.WeeklySales*f.WeeksPerMonth)
	annualGain := monthlyGain * 12

	deadline := now.AddDate(0, 0, f.PriceTestWindowDays)

	primary := model.ActionPlan{
		Title: fmt.Sprintf("Test a %.0f%% price increase", f.PriceIncreasePct),
		Steps: []string{
			fmt.Sprintf("Raise the price from $%.2f to $%.2f", sig.Price, newPrice),
			fmt.Sprintf("Monitor weekly volume for %d days", f.PriceTestWindowDays),
			fmt.Sprintf("Roll back if volume drops more than %.0f%%", f.RollbackDropPct),
			"Keep the new price if volume holds",
		},
		Deadline:        deadline,
		ExpectedOutcome: fmt.Sprintf("$%.0f projected revenue change per month after elasticity", monthlyGain),
		Automatable:     true,
		AutomationRule: fmt.Sprintf("Revert the price automatically when weekly volume falls more than %.0f%% below %.1f units",
			f.RollbackDropPct, sig.WeeklySales),
	}

	alternatives := []model.ActionPlan{
		{
			Title: "Introduce a premium variant",
			Steps: []string{
				"Launch a premium variant at the higher price point",
				"Keep the current item as the value option",
				"Compare attach rates after the test window",
			},
			Deadline:        deadline,
			ExpectedOutcome: "Upside captured without touching the existing price",
		},
		{
			Title: "Anchor a bundle on this product",
			Steps: []string{
				"Create a bundle with complementary items",
				"Price the bundle to lift average order value",
				"Review margin at the end of the test window",
			},
			Deadline:        deadline,
			ExpectedOutcome: "Higher revenue per basket at the current list price",
		},
	}

	return model.Alert{
		Key:      model.AlertKey(sig.ProductKey, model.TypePriceOpportunity),
		Type:     model.TypePriceOpportunity,
		Severity: model.SeverityMedium,
		Title:    fmt.Sprintf("Price opportunity: %s", sig.ProductKey),
		Message: fmt.Sprintf(
			"%s sells %.1f units/week at $%.2f with %.1f weeks of cover. A %.0f%% increase projects $%.0f per month after an assumed %.0f%% volume drop.",
			sig.ProductKey, sig.WeeklySales, sig.Price, sig.WeeksOfStock, f.PriceIncreasePct, monthlyGain, f.ElasticityDropPct),
		Summary:         fmt.Sprintf("$%.0f annual revenue change from a %.0f%% price test", annualGain, f.PriceIncreasePct),
		RevenueAtRisk:   0,
		CostToResolve:   0,
		EstimatedImpact: annualGain,
		UrgencyScore:    urgencyScore(model.SeverityMedium, deadline, now),
		TimeToCritical:  humanDays(f.PriceTestWindowDays),
		PrimaryAction:   primary,
		Alternatives:    alternatives,
		Confidence:      rs.Confidence.PriceOpportunity,
		Product:         sig,
		AutoResolve:     "Close when the price test window ends",
		CreatedAt:       now,
	}
}

// floorMoney truncates a currency amount to whole units.
func floorMoney(v float64) float64 {
	return math.Floor(v)
}

// urgencyScore grades 1-10, monotonic in severity with a bump for imminent
// deadlines.
func urgencyScore(sev model.Severity, deadline, now time.Time) int {
	var base int
	switch sev {
	case model.SeverityCritical:
		base = 8
	case model.SeverityHigh:
		base = 6
	case model.SeverityMedium:
		base = 4
	default:
		base = 2
	}

	daysLeft := int(deadline.Sub(now).Hours() / 24)
	switch {
	case daysLeft <= 1:
		base += 2
	case daysLeft <= 3:
		base++
	}

	if base > 10 {
		base = 10
	}
	if base < 1 {
		base = 1
	}
	return base
}

// humanDays renders a day count the way the dashboard shows it.
func humanDays(n int) string {
	switch {
	case n <= 0:
		return "now"
	case n == 1:
		return "1 day"
	case n < 14:
		return fmt.Sprintf("%d days", n)
	case n < 70:
		return fmt.Sprintf("%d weeks", int(math.Round(float64(n)/7)))
	default:
		return fmt.Sprintf("%d months", int(math.Round(float64(n)/30)))
	}
}
