package feed

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"github.com/openshelf/stock-sentinel/pkg/model"
)

// defaultCompetitors are the synthetic storefronts the stub "observes".
var defaultCompetitors = []string{"valuemart", "pricedrop", "shopnorth"}

// Synthetic is the stand-in for the real competitor scraping pipeline. It
// derives each competitor's price from a hash of product key and competitor
// name, so the same catalog sees the same market on every pass. Prices land
// between 82% and 112% of the product's own price, which leaves most
// products competitive and flags a stable minority.
type Synthetic struct {
	competitors []string
}

// NewSynthetic creates the synthetic source with the default competitor set.
func NewSynthetic() *Synthetic {
	return &Synthetic{competitors: defaultCompetitors}
}

func (s *Synthetic) Name() string { return "synthetic" }

func (s *Synthetic) Fetch(_ context.Context, products []model.InventorySignal) ([]model.CompetitorPrice, error) {
	now := time.Now().UTC()

	prices := make([]model.CompetitorPrice, 0, len(products)*len(s.competitors))
	for _, p := range products {
		if p.Price <= 0 {
			continue
		}
		for _, competitor := range s.competitors {
			factor := 0.82 + 0.30*unitHash(p.ProductKey+"|"+competitor)
			prices = append(prices, model.CompetitorPrice{
				ProductKey: p.ProductKey,
				Competitor: competitor,
				Price:      math.Round(p.Price*factor*100) / 100,
				SeenAt:     now,
			})
		}
	}
	return prices, nil
}

// unitHash maps a string to a stable value in [0, 1).
func unitHash(s string) float64 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return float64(h.Sum32()%1000) / 1000
}
