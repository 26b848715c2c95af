package feed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/stock-sentinel/pkg/feed"
	"github.com/openshelf/stock-sentinel/pkg/model"
)

func testProducts() []model.InventorySignal {
	return []model.InventorySignal{
		{ProductKey: "SKU-1", Price: 20},
		{ProductKey: "SKU-2", Price: 45.5},
	}
}

func TestSynthetic_ThreeObservationsPerProduct(t *testing.T) {
	src := feed.NewSynthetic()

	prices, err := src.Fetch(context.Background(), testProducts())
	require.NoError(t, err)
	assert.Len(t, prices, 6)

	perProduct := make(map[string]int)
	for _, p := range prices {
		perProduct[p.ProductKey]++
	}
	assert.Equal(t, 3, perProduct["SKU-1"])
	assert.Equal(t, 3, perProduct["SKU-2"])
}

func TestSynthetic_PricesStayNearOwnPrice(t *testing.T) {
	src := feed.NewSynthetic()

	prices, err := src.Fetch(context.Background(), testProducts())
	require.NoError(t, err)

	own := map[string]float64{"SKU-1": 20, "SKU-2": 45.5}
	for _, p := range prices {
		base := own[p.ProductKey]
		assert.GreaterOrEqual(t, p.Price, base*0.82)
		assert.LessOrEqual(t, p.Price, base*1.12)
	}
}

func TestSynthetic_Deterministic(t *testing.T) {
	src := feed.NewSynthetic()

	first, err := src.Fetch(context.Background(), testProducts())
	require.NoError(t, err)
	second, err := src.Fetch(context.Background(), testProducts())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ProductKey, second[i].ProductKey)
		assert.Equal(t, first[i].Competitor, second[i].Competitor)
		assert.InDelta(t, first[i].Price, second[i].Price, 0.0001)
	}
}

func TestSynthetic_SkipsNonPositivePrices(t *testing.T) {
	src := feed.NewSynthetic()

	prices, err := src.Fetch(context.Background(), []model.InventorySignal{
		{ProductKey: "SKU-free", Price: 0},
	})
	require.NoError(t, err)
	assert.Empty(t, prices)
}
