package engine

import "github.com/openshelf/stock-sentinel/pkg/model"

// MergeLifecycle copies caller-owned lifecycle flags onto freshly generated
// alerts, matched by identity key. Prior state wins for known identities;
// new identities keep their zero flags. The merger never filters: resolved
// alerts stay in the list for the caller to drop if it chooses, and the
// snooze window is interpreted by the caller as well.
func MergeLifecycle(alerts []model.Alert, prior map[string]model.AlertState) {
	if len(prior) == 0 {
		return
	}

	for i := range alerts {
		st, ok := prior[alerts[i].Key]
		if !ok {
			continue
		}
		alerts[i].Acknowledged = st.Acknowledged
		alerts[i].Resolved = st.Resolved
		alerts[i].Snoozed = st.Snoozed
	}
}
