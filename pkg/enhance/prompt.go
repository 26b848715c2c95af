package enhance

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/openshelf/stock-sentinel/pkg/model"
)

// systemPrompt frames the model as an analyst and pins the reply format.
// The engine only ever applies replies that pass parseResponse, so the
// instructions here are strict on purpose.
const systemPrompt = `You are a retail inventory analyst reviewing automated stock alerts.
For each alert you receive, write a short narrative (2-3 sentences) that a store
owner can act on: why the numbers matter and what to watch out for. Also rate
how much you trust the alert's automated assessment as a confidence adjustment
factor: 1.0 keeps the system's confidence, below 1.0 lowers it, above 1.0
raises it. Stay between 0.5 and 1.5.

Reply with a JSON array only, no prose and no markdown fences. One object per
alert, exactly these fields:
[{"key": "<alert key>", "narrative": "<analysis>", "confidence_adjustment": 1.0}]`

// buildPrompt renders one batch of alerts into the user message. Every line
// is plain numeric context; the model never sees more than what the alert
// already carries.
func buildPrompt(alerts []model.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review these %d inventory alerts:\n", len(alerts))

	for i, a := range alerts {
		p := a.Product
		fmt.Fprintf(&b, "\n%d. key=%s\n", i+1, a.Key)
		fmt.Fprintf(&b, "   type=%s severity=%s urgency=%d/10\n", a.Type, a.Severity, a.UrgencyScore)
		fmt.Fprintf(&b, "   product=%s category=%s\n", p.ProductKey, orDash(p.Category))
		fmt.Fprintf(&b, "   price=$%.2f weekly_sales=%.1f stock=%.0f weeks_of_stock=%.1f\n",
			p.Price, p.WeeklySales, p.Stock, p.WeeksOfStock)
		fmt.Fprintf(&b, "   revenue_at_risk=$%.0f cost_to_resolve=$%.0f estimated_impact=$%.0f\n",
			a.RevenueAtRisk, a.CostToResolve, a.EstimatedImpact)
		fmt.Fprintf(&b, "   time_to_critical=%s recommended=%s\n", a.TimeToCritical, a.PrimaryAction.Title)
	}

	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type responseItem struct {
	Key                  string  `json:"key"`
	Narrative            string  `json:"narrative"`
	ConfidenceAdjustment float64 `json:"confidence_adjustment"`
}

// parseResponse validates a provider reply against the contract promised in
// the prompt: a bare JSON array of per-alert objects with no extra fields.
// Anything else is an error, which the pipeline turns into "alerts
// unchanged". Items keyed to alerts outside the batch are dropped rather
// than applied to the wrong alert.
func parseResponse(text string, expected map[string]struct{}) (map[string]Adjustment, error) {
	payload := stripFences(text)
	if payload == "" {
		return nil, fmt.Errorf("empty enhancement response")
	}
	if payload[0] != '[' {
		return nil, fmt.Errorf("enhancement response is not a JSON array")
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()

	var items []responseItem
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("parse enhancement response: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("enhancement response has trailing data after the array")
	}

	out := make(map[string]Adjustment, len(items))
	for i, item := range items {
		if item.Key == "" {
			return nil, fmt.Errorf("enhancement item %d: missing key", i)
		}
		if strings.TrimSpace(item.Narrative) == "" {
			return nil, fmt.Errorf("enhancement item %d (%s): empty narrative", i, item.Key)
		}
		f := item.ConfidenceAdjustment
		if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("enhancement item %d (%s): invalid confidence_adjustment %v", i, item.Key, f)
		}
		if _, ok := expected[item.Key]; !ok {
			// Replies sometimes invent keys or echo a bare product key;
			// never guess which alert was meant.
			continue
		}
		out[item.Key] = Adjustment{
			Narrative:        strings.TrimSpace(item.Narrative),
			ConfidenceFactor: f,
		}
	}
	return out, nil
}

// stripFences tolerates a reply wrapped in markdown code fences, which chat
// models add despite instructions. It only trims the fences; it never digs
// JSON fragments out of surrounding prose.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
