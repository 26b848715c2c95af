package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/stock-sentinel/pkg/engine"
	"github.com/openshelf/stock-sentinel/pkg/model"
	"github.com/openshelf/stock-sentinel/pkg/rules"
)

var buildNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestBuild_Stockout(t *testing.T) {
	// price=20, weekly=10, stock=12: 1.2 weeks of cover.
	sig := signal(20, 10, 12)

	alert, err := engine.Build(sig, model.TypeStockout, rules.Default(), buildNow)
	require.NoError(t, err)

	assert.Equal(t, model.AlertKey("SKU-1", model.TypeStockout), alert.Key)
	assert.Equal(t, model.TypeStockout, alert.Type)

	// days=floor(1.2*7)=8, reorder=ceil(10*8)=80, risk=20*10*4=800,
	// cost=20*80*0.6=960; 8 days beats the 7-day cutoff, so medium.
	assert.Equal(t, model.SeverityMedium, alert.Severity)
	assert.InDelta(t, 800, alert.RevenueAtRisk, 0.0001)
	assert.InDelta(t, 960, alert.CostToResolve, 0.0001)
	assert.Equal(t, "8 days", alert.TimeToCritical)

	// Deadline sits the lead time before the projected stockout day.
	assert.Equal(t, buildNow.AddDate(0, 0, 6), alert.PrimaryAction.Deadline)
	assert.Len(t, alert.Alternatives, 2)
	assert.InDelta(t, 0.9, alert.Confidence, 0.0001)
	assert.GreaterOrEqual(t, alert.UrgencyScore, 1)
	assert.LessOrEqual(t, alert.UrgencyScore, 10)
}

func TestBuild_Stockout_SeverityEscalation(t *testing.T) {
	rs := rules.Default()

	// 0.4 weeks of cover: 2 days, inside the critical cutoff.
	critical, err := engine.Build(signal(20, 10, 4), model.TypeStockout, rs, buildNow)
	require.NoError(t, err)
	assert.Equal(t, model.SeverityCritical, critical.Severity)

	// 1.0 week: 7 days, high.
	high, err := engine.Build(signal(20, 10, 10), model.TypeStockout, rs, buildNow)
	require.NoError(t, err)
	assert.Equal(t, model.SeverityHigh, high.Severity)

	// The deadline never lands closer than one day out.
	assert.Equal(t, buildNow.AddDate(0, 0, 1), critical.PrimaryAction.Deadline)
}

func TestBuild_Overstock(t *testing.T) {
	// price=25, weekly=1, stock=60: 60 weeks of cover.
	sig := signal(25, 1, 60)

	alert, err := engine.Build(sig, model.TypeOverstock, rules.Default(), buildNow)
	require.NoError(t, err)

	// excess=60-12=48, cash=floor(48*25*0.7)=840, holding=floor(840*0.02)=16.
	assert.InDelta(t, 840, alert.RevenueAtRisk, 0.0001)

	// units_to_move=min(48, ceil(1*2.5*4))=10, recovery=floor(10*25*0.85)=212.
	assert.InDelta(t, 212, alert.EstimatedImpact, 0.0001)

	// 60 weeks of cover escalates past the 30-week mark.
	assert.Equal(t, model.SeverityHigh, alert.Severity)
	assert.Contains(t, alert.Message, "$840")
	assert.Contains(t, alert.Message, "$16")
}

func TestBuild_Overstock_MediumBelowHighWeeks(t *testing.T) {
	// 40 units at 2/week: 20 weeks of cover, under the 30-week escalation.
	alert, err := engine.Build(signal(25, 2, 40), model.TypeOverstock, rules.Default(), buildNow)
	require.NoError(t, err)
	assert.Equal(t, model.SeverityMedium, alert.Severity)
}

func TestBuild_DeadStock(t *testing.T) {
	sig := signal(15, 0.1, 25)

	alert, err := engine.Build(sig, model.TypeDeadStock, rules.Default(), buildNow)
	require.NoError(t, err)

	// total=25*15=375, recovery ceiling=floor(375*0.7)=262.
	assert.Equal(t, model.SeverityHigh, alert.Severity)
	assert.InDelta(t, 375, alert.RevenueAtRisk, 0.0001)
	assert.InDelta(t, 262, alert.EstimatedImpact, 0.0001)
	assert.Len(t, alert.Alternatives, 2)
}

func TestBuild_PriceOpportunity(t *testing.T) {
	// price=35, weekly=5: the default +8% price / -15% volume assumption
	// projects floor(37.8*4.25*4.33 - 35*5*4.33) = -63 per month.
	sig := signal(35, 5, 40)

	alert, err := engine.Build(sig, model.TypePriceOpportunity, rules.Default(), buildNow)
	require.NoError(t, err)

	assert.Equal(t, model.SeverityMedium, alert.Severity)
	assert.InDelta(t, 0, alert.RevenueAtRisk, 0.0001)
	assert.InDelta(t, -63*12, alert.EstimatedImpact, 0.0001)
	assert.Contains(t, alert.PrimaryAction.Steps[0], "$37.80")
	assert.InDelta(t, 0.7, alert.Confidence, 0.0001)
}

func TestBuild_UnknownType(t *testing.T) {
	_, err := engine.Build(signal(20, 10, 12), model.AlertType("bogus"), rules.Default(), buildNow)
	assert.Error(t, err)
}

func TestBuild_Deterministic(t *testing.T) {
	sig := signal(20, 10, 12)
	rs := rules.Default()

	first, err := engine.Build(sig, model.TypeStockout, rs, buildNow)
	require.NoError(t, err)
	second, err := engine.Build(sig, model.TypeStockout, rs, buildNow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
