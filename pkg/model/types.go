package model

import "time"

// Severity is the ordinal alert priority driving sort order and escalation.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank maps a severity to its sort weight. Higher sorts first; unknown
// severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AlertType identifies one of the closed set of alert variants.
type AlertType string

const (
	TypeStockout         AlertType = "critical_stockout"
	TypeOverstock        AlertType = "overstock_cash_drain"
	TypeDeadStock        AlertType = "dead_stock"
	TypePriceOpportunity AlertType = "price_opportunity"
	TypeCompetitorThreat AlertType = "competitor_threat"
)

// AlertKey builds the stable identity for an alert: product key plus alert
// type. It is content-derived so that regenerating from unchanged inputs
// reproduces the same key, letting lifecycle state follow the alert across
// generation runs.
func AlertKey(productKey string, t AlertType) string {
	return productKey + ":" + string(t)
}

// RawRecord is an inventory row as delivered by the upstream source.
// Numeric fields are untyped because feeds deliver them inconsistently:
// numbers, numeric strings, or missing entirely.
type RawRecord struct {
	ProductKey  string `json:"product_key"`
	Category    string `json:"category,omitempty"`
	Price       any    `json:"price"`
	WeeklySales any    `json:"weekly_sales"`
	Stock       any    `json:"stock"`
}

// InventorySignal is a validated per-product snapshot with derived metrics.
type InventorySignal struct {
	ProductKey   string  `json:"product_key"`
	Category     string  `json:"category,omitempty"`
	Price        float64 `json:"price"`
	WeeklySales  float64 `json:"weekly_sales"`
	Stock        float64 `json:"stock"`
	WeeksOfStock float64 `json:"weeks_of_stock"`
}

// CompetitorPrice is one observed price for a product at a competitor.
type CompetitorPrice struct {
	ProductKey string    `json:"product_key"`
	Competitor string    `json:"competitor"`
	Price      float64   `json:"price"`
	SeenAt     time.Time `json:"seen_at"`
}

// ActionPlan is a recommended remedy. The engine never executes anything;
// Automatable and AutomationRule describe when an external automation layer
// could act, as advice only.
type ActionPlan struct {
	Title           string    `json:"title"`
	Steps           []string  `json:"steps"`
	Deadline        time.Time `json:"deadline"`
	ExpectedOutcome string    `json:"expected_outcome"`
	Automatable     bool      `json:"automatable"`
	AutomationRule  string    `json:"automation_rule,omitempty"`
}

// Alert is one generated, financially quantified alert.
type Alert struct {
	Key             string          `json:"key"`
	Type            AlertType       `json:"type"`
	Severity        Severity        `json:"severity"`
	Title           string          `json:"title"`
	Message         string          `json:"message"`
	Summary         string          `json:"summary"`
	RevenueAtRisk   float64         `json:"revenue_at_risk"`
	CostToResolve   float64         `json:"cost_to_resolve"`
	EstimatedImpact float64         `json:"estimated_impact"`
	UrgencyScore    int             `json:"urgency_score"`
	TimeToCritical  string          `json:"time_to_critical"`
	PrimaryAction   ActionPlan      `json:"primary_action"`
	Alternatives    []ActionPlan    `json:"alternative_actions"`
	Narrative       string          `json:"narrative,omitempty"`
	Confidence      float64         `json:"confidence_level"`
	Product         InventorySignal `json:"product"`
	AutoResolve     string          `json:"auto_resolve,omitempty"`
	Acknowledged    bool            `json:"acknowledged"`
	Resolved        bool            `json:"resolved"`
	Snoozed         bool            `json:"snoozed"`
	CreatedAt       time.Time       `json:"created_at"`
}

// AlertState is the caller-owned lifecycle state for one alert identity.
// The engine receives these as input and merges them onto freshly generated
// alerts; it never invents or mutates them.
type AlertState struct {
	Key          string    `json:"key"`
	Acknowledged bool      `json:"acknowledged"`
	Resolved     bool      `json:"resolved"`
	Snoozed      bool      `json:"snoozed"`
	SnoozedUntil time.Time `json:"snoozed_until"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GenerationRun summarizes one pipeline pass for the run history.
type GenerationRun struct {
	ID         string    `json:"id"`
	Tenant     string    `json:"tenant"`
	Signals    int       `json:"signals"`
	Skipped    int       `json:"skipped"`
	Alerts     int       `json:"alerts"`
	Enhanced   int       `json:"enhanced"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// UsageRecord is one metered enhancement call, attributed to a tenant.
type UsageRecord struct {
	ID           string    `json:"id"`
	Tenant       string    `json:"tenant"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	Timestamp    time.Time `json:"timestamp"`
}
