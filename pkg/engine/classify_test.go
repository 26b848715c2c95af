package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openshelf/stock-sentinel/pkg/engine"
	"github.com/openshelf/stock-sentinel/pkg/model"
	"github.com/openshelf/stock-sentinel/pkg/rules"
)

func signal(price, weekly, stock float64) model.InventorySignal {
	rs := rules.Default()
	wos := rs.WeeksOfStockSentinel
	if weekly > rs.SalesFloor {
		wos = stock / weekly
	}
	return model.InventorySignal{
		ProductKey:   "SKU-1",
		Price:        price,
		WeeklySales:  weekly,
		Stock:        stock,
		WeeksOfStock: wos,
	}
}

func TestClassify_Stockout(t *testing.T) {
	got, ok := engine.Classify(signal(20, 10, 12), rules.Default())
	assert.True(t, ok)
	assert.Equal(t, model.TypeStockout, got)
}

func TestClassify_Overstock(t *testing.T) {
	got, ok := engine.Classify(signal(25, 1, 60), rules.Default())
	assert.True(t, ok)
	assert.Equal(t, model.TypeOverstock, got)
}

func TestClassify_DeadStock(t *testing.T) {
	// Low price keeps this out of the overstock rule.
	got, ok := engine.Classify(signal(15, 0.1, 25), rules.Default())
	assert.True(t, ok)
	assert.Equal(t, model.TypeDeadStock, got)
}

func TestClassify_PriceOpportunity(t *testing.T) {
	// 5 units/week, 40 on hand: 8 weeks of cover.
	got, ok := engine.Classify(signal(35, 5, 40), rules.Default())
	assert.True(t, ok)
	assert.Equal(t, model.TypePriceOpportunity, got)
}

func TestClassify_NoMatch(t *testing.T) {
	// Healthy product: 5 units/week, 15 on hand, modest price.
	_, ok := engine.Classify(signal(10, 5, 15), rules.Default())
	assert.False(t, ok)
}

func TestClassify_ZeroSalesNeverStockoutOrPriceOpp(t *testing.T) {
	rs := rules.Default()

	got, ok := engine.Classify(signal(50, 0, 25), rs)
	if ok {
		assert.NotEqual(t, model.TypeStockout, got)
		assert.NotEqual(t, model.TypePriceOpportunity, got)
	}

	// With enough units the sentinel cover reads as dead stock.
	got, ok = engine.Classify(signal(50, 0, 25), rs)
	assert.True(t, ok)
	assert.Equal(t, model.TypeDeadStock, got)
}

func TestClassify_PriorityOrderWins(t *testing.T) {
	// Overstock and dead stock both match: 0.25 units/week, 50 on hand at
	// $25 gives 200 weeks of cover. Priority picks overstock.
	sig := signal(25, 0.25, 50)
	got, ok := engine.Classify(sig, rules.Default())
	assert.True(t, ok)
	assert.Equal(t, model.TypeOverstock, got)
}

func TestClassify_ExactBoundaryDoesNotFire(t *testing.T) {
	rs := rules.Default()

	// Exactly 1.5 weeks of cover is not below the stockout cutoff.
	sig := signal(20, 10, 15)
	gotType, ok := engine.Classify(sig, rs)
	if ok {
		assert.NotEqual(t, model.TypeStockout, gotType)
	}
}
