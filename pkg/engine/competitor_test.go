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

var analyzeNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func competitorPrices(productKey string, prices ...float64) []model.CompetitorPrice {
	out := make([]model.CompetitorPrice, 0, len(prices))
	for i, p := range prices {
		out = append(out, model.CompetitorPrice{
			ProductKey: productKey,
			Competitor: []string{"valuemart", "pricedrop", "shopnorth"}[i%3],
			Price:      p,
			SeenAt:     analyzeNow,
		})
	}
	return out
}

func TestAnalyzeCompetitors_FlagsPriceGap(t *testing.T) {
	// Own price 30 vs average 24: 25% above, past the 15% margin.
	signals := []model.InventorySignal{signal(30, 5, 40)}
	prices := competitorPrices("SKU-1", 23, 25)

	alerts := engine.AnalyzeCompetitors(signals, prices, rules.Default(), analyzeNow)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, model.TypeCompetitorThreat, a.Type)
	assert.Equal(t, model.AlertKey("SKU-1", model.TypeCompetitorThreat), a.Key)
	assert.Equal(t, model.SeverityMedium, a.Severity)
	assert.Greater(t, a.RevenueAtRisk, 0.0)
	assert.InDelta(t, 0.75, a.Confidence, 0.0001)
}

func TestAnalyzeCompetitors_WithinMarginIsQuiet(t *testing.T) {
	// Own price 30 vs average 27.5: under 10% above, inside the margin.
	signals := []model.InventorySignal{signal(30, 5, 40)}
	prices := competitorPrices("SKU-1", 27, 28)

	alerts := engine.AnalyzeCompetitors(signals, prices, rules.Default(), analyzeNow)
	assert.Empty(t, alerts)
}

func TestAnalyzeCompetitors_PriceFloor(t *testing.T) {
	// A $9 product stays below the minimum floor however wide the gap.
	signals := []model.InventorySignal{signal(9, 5, 40)}
	prices := competitorPrices("SKU-1", 5, 5)

	alerts := engine.AnalyzeCompetitors(signals, prices, rules.Default(), analyzeNow)
	assert.Empty(t, alerts)
}

func TestAnalyzeCompetitors_NoObservations(t *testing.T) {
	signals := []model.InventorySignal{signal(30, 5, 40)}

	alerts := engine.AnalyzeCompetitors(signals, nil, rules.Default(), analyzeNow)
	assert.Empty(t, alerts)

	alerts = engine.AnalyzeCompetitors(signals, competitorPrices("SKU-other", 10), rules.Default(), analyzeNow)
	assert.Empty(t, alerts)
}

func TestAnalyzeCompetitors_HighSeverityAtDoubleMargin(t *testing.T) {
	// Own price 30 vs average 20: 50% above, at least twice the margin.
	signals := []model.InventorySignal{signal(30, 5, 40)}
	prices := competitorPrices("SKU-1", 20, 20)

	alerts := engine.AnalyzeCompetitors(signals, prices, rules.Default(), analyzeNow)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityHigh, alerts[0].Severity)
}

func TestAnalyzeCompetitors_IgnoresNonPositivePrices(t *testing.T) {
	signals := []model.InventorySignal{signal(30, 5, 40)}
	prices := []model.CompetitorPrice{
		{ProductKey: "SKU-1", Competitor: "valuemart", Price: 0, SeenAt: analyzeNow},
		{ProductKey: "SKU-1", Competitor: "pricedrop", Price: -3, SeenAt: analyzeNow},
	}

	alerts := engine.AnalyzeCompetitors(signals, prices, rules.Default(), analyzeNow)
	assert.Empty(t, alerts)
}
