package engine

import (
	"fmt"
	"time"

	"github.com/openshelf/stock-sentinel/pkg/model"
	"github.com/openshelf/stock-sentinel/pkg/rules"
)

// AnalyzeCompetitors cross-references competitor prices and flags products
// priced above the market average by more than the configured margin. It
// runs independently of the primary classification, so a product can carry
// both a primary alert and a competitor threat.
func AnalyzeCompetitors(signals []model.InventorySignal, prices []model.CompetitorPrice, rs *rules.Ruleset, now time.Time) []model.Alert {
	if len(prices) == 0 {
		return nil
	}

	byProduct := make(map[string][]float64)
	for _, p := range prices {
		if p.Price > 0 {
			byProduct[p.ProductKey] = append(byProduct[p.ProductKey], p.Price)
		}
	}

	var alerts []model.Alert
	for _, sig := range signals {
		observed := byProduct[sig.ProductKey]
		if len(observed) == 0 {
			continue
		}
		if sig.Price <= rs.Thresholds.CompetitorMinPrice {
			continue
		}

		var sum float64
		for _, p := range observed {
			sum += p
		}
		avg := sum / float64(len(observed))

		gapPct := (sig.Price - avg) / avg * 100
		if gapPct <= rs.Thresholds.CompetitorMarginPct {
			continue
		}

		alerts = append(alerts, buildCompetitorThreat(sig, avg, gapPct, len(observed), rs, now))
	}

	return alerts
}

func buildCompetitorThreat(sig model.InventorySignal, avg, gapPct float64, observed int, rs *rules.Ruleset, now time.Time) model.Alert {
	t := rs.Thresholds
	f := rs.Financials

	// The revenue share exposed grows with the price gap, capped at the
	// full monthly revenue of the product.
	monthlyRevenue := sig.Price * sig.WeeklySales * f.WeeksPerMonth
	exposure := min(gapPct/100, 1)
	revenueAtRisk := floorMoney(monthlyRevenue * exposure)

	// Cost of repricing into the acceptable band: margin given up per unit
	// over one month of sales.
	competitiveCeiling := avg * (1 + t.CompetitorMarginPct/100)
	costToResolve := floorMoney((sig.Price - competitiveCeiling) * sig.WeeklySales * f.WeeksPerMonth)
	if costToResolve < 0 {
		costToResolve = 0
	}

	severity := model.SeverityMedium
	if gapPct >= 2*t.CompetitorMarginPct {
		severity = model.SeverityHigh
	}

	deadline := now.AddDate(0, 0, f.CompetitorWindowDays)

	primary := model.ActionPlan{
		Title: "Reprice toward the market",
		Steps: []string{
			fmt.Sprintf("Review the %d competitor prices behind the $%.2f average", observed, avg),
			fmt.Sprintf("Bring the price within %.0f%% of the market average", t.CompetitorMarginPct),
			"Watch conversion for a week after the change",
		},
		Deadline:        deadline,
		ExpectedOutcome: fmt.Sprintf("Price gap closed before an estimated $%.0f of monthly revenue walks", revenueAtRisk),
		Automatable:     true,
		AutomationRule: fmt.Sprintf("Match down to %.0f%% above the market average when the gap exceeds twice the threshold",
			t.CompetitorMarginPct),
	}

	alternatives := []model.ActionPlan{
		{
			Title: "Differentiate instead of discounting",
			Steps: []string{
				"Highlight quality, warranty, or service advantages on the listing",
				"Add value (bundled extras, loyalty points) instead of cutting price",
				"Test the messaging for a week before deciding on price",
			},
			Deadline:        deadline,
			ExpectedOutcome: "Premium position defended without margin loss",
		},
		{
			Title: "Run a targeted promotion",
			Steps: []string{
				"Offer a limited-time promotion at a competitive price",
				"Keep the list price unchanged",
				"Measure the uplift against the margin cost",
			},
			Deadline:        deadline,
			ExpectedOutcome: "Competitiveness tested without a permanent reprice",
		},
	}

	return model.Alert{
		Key:      model.AlertKey(sig.ProductKey, model.TypeCompetitorThreat),
		Type:     model.TypeCompetitorThreat,
		Severity: severity,
		Title:    fmt.Sprintf("Competitor threat: %s", sig.ProductKey),
		Message: fmt.Sprintf(
			"%s is priced at $%.2f, %.0f%% above the $%.2f average across %d competitors.",
			sig.ProductKey, sig.Price, gapPct, avg, observed),
		Summary:         fmt.Sprintf("%.0f%% above market, $%.0f/month exposed", gapPct, revenueAtRisk),
		RevenueAtRisk:   revenueAtRisk,
		CostToResolve:   costToResolve,
		EstimatedImpact: revenueAtRisk,
		UrgencyScore:    urgencyScore(severity, deadline, now),
		TimeToCritical:  humanDays(f.CompetitorWindowDays),
		PrimaryAction:   primary,
		Alternatives:    alternatives,
		Confidence:      rs.Confidence.CompetitorThreat,
		Product:         sig,
		AutoResolve:     fmt.Sprintf("Close once own price is within %.0f%% of the market average", t.CompetitorMarginPct),
		CreatedAt:       now,
	}
}
