package engine

import (
	"sort"

	"github.com/openshelf/stock-sentinel/pkg/model"
)

// Rank sorts alerts in place: severity descending, ties broken by revenue
// at risk descending. The sort is stable, so alerts tied on both keys keep
// their generation order.
func Rank(alerts []model.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Severity.Rank(), alerts[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return alerts[i].RevenueAtRisk > alerts[j].RevenueAtRisk
	})
}
