// Package rules holds the classification thresholds and financial constants
// used by the alert engine. Every number the engine applies lives here so
// operators can tune rules without touching logic; values load from a YAML
// file layered over the shipped defaults and are validated before use.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Thresholds are the classification cutoffs, evaluated in priority order:
// stockout, overstock, dead stock, price opportunity.
type Thresholds struct {
	// Stockout fires when cover drops below StockoutMaxWeeks while the
	// product still sells at least StockoutMinWeeklySale units per week.
	StockoutMaxWeeks      float64 `yaml:"stockout_max_weeks" json:"stockout_max_weeks"`
	StockoutMinWeeklySale float64 `yaml:"stockout_min_weekly_sales" json:"stockout_min_weekly_sales"`

	// Overstock fires above OverstockMinWeeks of cover when both the unit
	// count and the unit price are large enough to matter.
	OverstockMinWeeks float64 `yaml:"overstock_min_weeks" json:"overstock_min_weeks"`
	OverstockMinStock float64 `yaml:"overstock_min_stock" json:"overstock_min_stock"`
	OverstockMinPrice float64 `yaml:"overstock_min_price" json:"overstock_min_price"`

	// Dead stock is near-zero movement on a meaningful pile of units.
	DeadStockMinWeeks      float64 `yaml:"dead_stock_min_weeks" json:"dead_stock_min_weeks"`
	DeadStockMaxWeeklySale float64 `yaml:"dead_stock_max_weekly_sales" json:"dead_stock_max_weekly_sales"`
	DeadStockMinStock      float64 `yaml:"dead_stock_min_stock" json:"dead_stock_min_stock"`

	// Price opportunity: healthy velocity, a price worth testing upward,
	// and cover strictly inside the (min, max) weeks window.
	PriceOppMinWeeklySales float64 `yaml:"price_opp_min_weekly_sales" json:"price_opp_min_weekly_sales"`
	PriceOppMinPrice       float64 `yaml:"price_opp_min_price" json:"price_opp_min_price"`
	PriceOppMinWeeks       float64 `yaml:"price_opp_min_weeks" json:"price_opp_min_weeks"`
	PriceOppMaxWeeks       float64 `yaml:"price_opp_max_weeks" json:"price_opp_max_weeks"`

	// Competitor threat: own price above the competitor average by more
	// than CompetitorMarginPct percent, and above CompetitorMinPrice.
	CompetitorMarginPct float64 `yaml:"competitor_margin_pct" json:"competitor_margin_pct"`
	CompetitorMinPrice  float64 `yaml:"competitor_min_price" json:"competitor_min_price"`
}

// Financials are the projection constants consumed by the alert builder.
// Percentages are whole numbers (15 means 15%), ratios are fractions of 1.
type Financials struct {
	// Stockout: a reorder covers ReorderWeeks of sales, revenue at risk
	// spans StockoutRiskWeeks of lost sales, and reorder spend is retail
	// price discounted by ReorderCostRatio (wholesale cost). The reorder
	// deadline sits StockoutLeadDays before the projected stockout day,
	// never under one day out. Severity escalates to high at
	// StockoutHighDays of remaining cover and critical at
	// StockoutCriticalDays.
	ReorderWeeks         float64 `yaml:"reorder_weeks" json:"reorder_weeks"`
	StockoutRiskWeeks    float64 `yaml:"stockout_risk_weeks" json:"stockout_risk_weeks"`
	ReorderCostRatio     float64 `yaml:"reorder_cost_ratio" json:"reorder_cost_ratio"`
	StockoutLeadDays     int     `yaml:"stockout_lead_days" json:"stockout_lead_days"`
	StockoutCriticalDays int     `yaml:"stockout_critical_days" json:"stockout_critical_days"`
	StockoutHighDays     int     `yaml:"stockout_high_days" json:"stockout_high_days"`

	// Overstock: excess is stock beyond TargetCoverWeeks of sales, valued
	// at CashCostBasis of retail; holding cost accrues at
	// MonthlyHoldingRate of the tied-up cash per month. The markdown
	// campaign discounts by OverstockDiscountPct, expects sales velocity
	// times ClearanceVelocityMult over ClearanceWeeks, recovers
	// ClearancePriceRatio of retail per unit, and runs for
	// OverstockWindowDays. Cover beyond OverstockHighWeeks escalates
	// severity.
	TargetCoverWeeks      float64 `yaml:"target_cover_weeks" json:"target_cover_weeks"`
	CashCostBasis         float64 `yaml:"cash_cost_basis" json:"cash_cost_basis"`
	MonthlyHoldingRate    float64 `yaml:"monthly_holding_rate" json:"monthly_holding_rate"`
	OverstockDiscountPct  float64 `yaml:"overstock_discount_pct" json:"overstock_discount_pct"`
	ClearanceVelocityMult float64 `yaml:"clearance_velocity_mult" json:"clearance_velocity_mult"`
	ClearanceWeeks        float64 `yaml:"clearance_weeks" json:"clearance_weeks"`
	ClearancePriceRatio   float64 `yaml:"clearance_price_ratio" json:"clearance_price_ratio"`
	OverstockWindowDays   int     `yaml:"overstock_window_days" json:"overstock_window_days"`
	OverstockHighWeeks    float64 `yaml:"overstock_high_weeks" json:"overstock_high_weeks"`

	// Dead stock: recovery tops out at DeadStockRecoveryRatio of full
	// retail value; the clearance markdown is DeadStockMarkdownPct and the
	// window runs DeadStockWindowDays.
	DeadStockRecoveryRatio float64 `yaml:"dead_stock_recovery_ratio" json:"dead_stock_recovery_ratio"`
	DeadStockMarkdownPct   float64 `yaml:"dead_stock_markdown_pct" json:"dead_stock_markdown_pct"`
	DeadStockWindowDays    int     `yaml:"dead_stock_window_days" json:"dead_stock_window_days"`

	// Price opportunity: raise price by PriceIncreasePct, assume volume
	// drops ElasticityDropPct, project monthly revenue over WeeksPerMonth
	// weeks, monitor for PriceTestWindowDays, roll back if volume falls
	// more than RollbackDropPct.
	PriceIncreasePct    float64 `yaml:"price_increase_pct" json:"price_increase_pct"`
	ElasticityDropPct   float64 `yaml:"elasticity_drop_pct" json:"elasticity_drop_pct"`
	WeeksPerMonth       float64 `yaml:"weeks_per_month" json:"weeks_per_month"`
	PriceTestWindowDays int     `yaml:"price_test_window_days" json:"price_test_window_days"`
	RollbackDropPct     float64 `yaml:"rollback_drop_pct" json:"rollback_drop_pct"`

	// Competitor threat: review window for the pricing response.
	CompetitorWindowDays int `yaml:"competitor_window_days" json:"competitor_window_days"`
}

// Confidence holds the fixed prior per alert type, before any enhancement
// adjustment.
type Confidence struct {
	Stockout         float64 `yaml:"stockout" json:"stockout"`
	Overstock        float64 `yaml:"overstock" json:"overstock"`
	DeadStock        float64 `yaml:"dead_stock" json:"dead_stock"`
	PriceOpportunity float64 `yaml:"price_opportunity" json:"price_opportunity"`
	CompetitorThreat float64 `yaml:"competitor_threat" json:"competitor_threat"`
}

// Ruleset is the complete tunable surface of the engine.
type Ruleset struct {
	// WeeksOfStockSentinel stands in for weeks of stock when weekly sales
	// sit at or below SalesFloor, avoiding division by near-zero.
	WeeksOfStockSentinel float64 `yaml:"weeks_of_stock_sentinel" json:"weeks_of_stock_sentinel"`
	SalesFloor           float64 `yaml:"sales_floor" json:"sales_floor"`

	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
	Financials Financials `yaml:"financials" json:"financials"`
	Confidence Confidence `yaml:"confidence" json:"confidence"`
}

// Default returns the shipped ruleset.
func Default() *Ruleset {
	return &Ruleset{
		WeeksOfStockSentinel: 999,
		SalesFloor:           0.01,
		Thresholds: Thresholds{
			StockoutMaxWeeks:      1.5,
			StockoutMinWeeklySale: 0.5,

			OverstockMinWeeks: 16,
			OverstockMinStock: 30,
			OverstockMinPrice: 20,

			DeadStockMinWeeks:      26,
			DeadStockMaxWeeklySale: 0.3,
			DeadStockMinStock:      20,

			PriceOppMinWeeklySales: 2,
			PriceOppMinPrice:       30,
			PriceOppMinWeeks:       4,
			PriceOppMaxWeeks:       12,

			CompetitorMarginPct: 15,
			CompetitorMinPrice:  10,
		},
		Financials: Financials{
			ReorderWeeks:         8,
			StockoutRiskWeeks:    4,
			ReorderCostRatio:     0.6,
			StockoutLeadDays:     2,
			StockoutCriticalDays: 3,
			StockoutHighDays:     7,

			TargetCoverWeeks:      12,
			CashCostBasis:         0.7,
			MonthlyHoldingRate:    0.02,
			OverstockDiscountPct:  15,
			ClearanceVelocityMult: 2.5,
			ClearanceWeeks:        4,
			ClearancePriceRatio:   0.85,
			OverstockWindowDays:   14,
			OverstockHighWeeks:    30,

			DeadStockRecoveryRatio: 0.7,
			DeadStockMarkdownPct:   50,
			DeadStockWindowDays:    28,

			PriceIncreasePct:    8,
			ElasticityDropPct:   15,
			WeeksPerMonth:       4.33,
			PriceTestWindowDays: 14,
			RollbackDropPct:     20,

			CompetitorWindowDays: 7,
		},
		Confidence: Confidence{
			Stockout:         0.9,
			Overstock:        0.85,
			DeadStock:        0.9,
			PriceOpportunity: 0.7,
			CompetitorThreat: 0.75,
		},
	}
}

// Load reads a YAML ruleset file layered over the defaults, so a file only
// needs the keys it changes. The result is validated before return.
func Load(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset file %s: %w", path, err)
	}

	rs := Default()
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("parse ruleset file %s: %w", path, err)
	}

	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("ruleset file %s: %w", path, err)
	}
	return rs, nil
}

// Validate rejects rulesets that would make the engine misbehave. It runs
// once at load time; the engine assumes a valid ruleset afterwards.
func (r *Ruleset) Validate() error {
	var err error

	positive := func(name string, v float64) {
		if err == nil && v <= 0 {
			err = fmt.Errorf("%s must be positive, got %v", name, v)
		}
	}
	nonNegative := func(name string, v float64) {
		if err == nil && v < 0 {
			err = fmt.Errorf("%s must not be negative, got %v", name, v)
		}
	}
	ratio := func(name string, v float64) {
		if err == nil && (v <= 0 || v > 1) {
			err = fmt.Errorf("%s must be in (0, 1], got %v", name, v)
		}
	}
	percent := func(name string, v float64) {
		if err == nil && (v <= 0 || v >= 100) {
			err = fmt.Errorf("%s must be between 0 and 100, got %v", name, v)
		}
	}
	days := func(name string, v int) {
		if err == nil && v <= 0 {
			err = fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}

	t := r.Thresholds
	f := r.Financials
	c := r.Confidence

	positive("weeks_of_stock_sentinel", r.WeeksOfStockSentinel)
	nonNegative("sales_floor", r.SalesFloor)

	positive("thresholds.stockout_max_weeks", t.StockoutMaxWeeks)
	positive("thresholds.stockout_min_weekly_sales", t.StockoutMinWeeklySale)
	positive("thresholds.overstock_min_weeks", t.OverstockMinWeeks)
	positive("thresholds.overstock_min_stock", t.OverstockMinStock)
	positive("thresholds.overstock_min_price", t.OverstockMinPrice)
	positive("thresholds.dead_stock_min_weeks", t.DeadStockMinWeeks)
	nonNegative("thresholds.dead_stock_max_weekly_sales", t.DeadStockMaxWeeklySale)
	positive("thresholds.dead_stock_min_stock", t.DeadStockMinStock)
	positive("thresholds.price_opp_min_weekly_sales", t.PriceOppMinWeeklySales)
	positive("thresholds.price_opp_min_price", t.PriceOppMinPrice)
	positive("thresholds.price_opp_min_weeks", t.PriceOppMinWeeks)
	positive("thresholds.price_opp_max_weeks", t.PriceOppMaxWeeks)
	positive("thresholds.competitor_margin_pct", t.CompetitorMarginPct)
	nonNegative("thresholds.competitor_min_price", t.CompetitorMinPrice)

	positive("financials.reorder_weeks", f.ReorderWeeks)
	positive("financials.stockout_risk_weeks", f.StockoutRiskWeeks)
	ratio("financials.reorder_cost_ratio", f.ReorderCostRatio)
	days("financials.stockout_lead_days", f.StockoutLeadDays)
	days("financials.stockout_critical_days", f.StockoutCriticalDays)
	days("financials.stockout_high_days", f.StockoutHighDays)
	positive("financials.target_cover_weeks", f.TargetCoverWeeks)
	ratio("financials.cash_cost_basis", f.CashCostBasis)
	ratio("financials.monthly_holding_rate", f.MonthlyHoldingRate)
	percent("financials.overstock_discount_pct", f.OverstockDiscountPct)
	positive("financials.clearance_velocity_mult", f.ClearanceVelocityMult)
	positive("financials.clearance_weeks", f.ClearanceWeeks)
	ratio("financials.clearance_price_ratio", f.ClearancePriceRatio)
	days("financials.overstock_window_days", f.OverstockWindowDays)
	positive("financials.overstock_high_weeks", f.OverstockHighWeeks)
	ratio("financials.dead_stock_recovery_ratio", f.DeadStockRecoveryRatio)
	percent("financials.dead_stock_markdown_pct", f.DeadStockMarkdownPct)
	days("financials.dead_stock_window_days", f.DeadStockWindowDays)
	percent("financials.price_increase_pct", f.PriceIncreasePct)
	nonNegative("financials.elasticity_drop_pct", f.ElasticityDropPct)
	positive("financials.weeks_per_month", f.WeeksPerMonth)
	days("financials.price_test_window_days", f.PriceTestWindowDays)
	nonNegative("financials.rollback_drop_pct", f.RollbackDropPct)
	days("financials.competitor_window_days", f.CompetitorWindowDays)

	ratio("confidence.stockout", c.Stockout)
	ratio("confidence.overstock", c.Overstock)
	ratio("confidence.dead_stock", c.DeadStock)
	ratio("confidence.price_opportunity", c.PriceOpportunity)
	ratio("confidence.competitor_threat", c.CompetitorThreat)

	if err != nil {
		return err
	}

	if t.PriceOppMinWeeks >= t.PriceOppMaxWeeks {
		return fmt.Errorf("thresholds.price_opp_min_weeks (%v) must be below price_opp_max_weeks (%v)",
			t.PriceOppMinWeeks, t.PriceOppMaxWeeks)
	}
	if f.StockoutCriticalDays >= f.StockoutHighDays {
		return fmt.Errorf("financials.stockout_critical_days (%d) must be below stockout_high_days (%d)",
			f.StockoutCriticalDays, f.StockoutHighDays)
	}
	if r.WeeksOfStockSentinel <= t.OverstockMinWeeks || r.WeeksOfStockSentinel <= t.DeadStockMinWeeks {
		return fmt.Errorf("weeks_of_stock_sentinel (%v) must exceed every weeks-of-stock threshold",
			r.WeeksOfStockSentinel)
	}

	return nil
}
