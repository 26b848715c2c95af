package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/stock-sentinel/pkg/model"
)

// DefaultTenant attributes calls that arrive without a tenant identifier.
const DefaultTenant = "default"

// UsageStore is the slice of persistence the meter needs: append one usage
// record, and sum a tenant's spend since a point in time.
type UsageStore interface {
	RecordUsage(ctx context.Context, rec model.UsageRecord) error
	TenantSpendSince(ctx context.Context, tenant string, since time.Time) (float64, error)
}

// Rates prices enhancement tokens in USD per thousand.
type Rates struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Meter attributes enhancement spend to tenants and enforces a per-tenant
// daily budget. A tenant over budget is refused before any provider call is
// made; the refusal degrades like any other enhancement failure, so alerts
// still flow.
type Meter struct {
	store          UsageStore
	rates          Rates
	dailyBudgetUSD float64
	logger         *slog.Logger
}

// NewMeter wires a meter. dailyBudgetUSD of zero or below disables the
// budget gate while keeping attribution.
func NewMeter(store UsageStore, rates Rates, dailyBudgetUSD float64, logger *slog.Logger) *Meter {
	return &Meter{
		store:          store,
		rates:          rates,
		dailyBudgetUSD: dailyBudgetUSD,
		logger:         logger,
	}
}

// Allow reports whether the tenant may spend on enhancement right now. A
// store read failure is logged and allowed through: losing one budget check
// is better than silently losing narratives on every storage hiccup.
func (m *Meter) Allow(ctx context.Context, tenant string) error {
	if m.dailyBudgetUSD <= 0 {
		return nil
	}
	tenant = normalizeTenant(tenant)

	spend, err := m.store.TenantSpendSince(ctx, tenant, startOfDayUTC(time.Now()))
	if err != nil {
		m.logger.Warn("tenant spend lookup failed, allowing enhancement", "tenant", tenant, "error", err)
		return nil
	}

	if spend >= m.dailyBudgetUSD {
		return fmt.Errorf("tenant %q over daily enhancement budget: $%.4f / $%.4f", tenant, spend, m.dailyBudgetUSD)
	}
	return nil
}

// Record attributes one call's token usage to the tenant. Failures are
// logged, never returned: metering must not break the enhancement path.
func (m *Meter) Record(ctx context.Context, tenant, provider, modelName string, usage Usage) {
	tenant = normalizeTenant(tenant)
	cost := m.Cost(usage)

	rec := model.UsageRecord{
		ID:           uuid.New().String(),
		Tenant:       tenant,
		Provider:     provider,
		Model:        modelName,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostUSD:      cost,
		Timestamp:    time.Now().UTC(),
	}

	if err := m.store.RecordUsage(ctx, rec); err != nil {
		m.logger.Error("record enhancement usage failed",
			"tenant", tenant,
			"provider", provider,
			"cost_usd", cost,
			"error", err,
		)
		return
	}

	m.logger.Info("enhancement usage recorded",
		"tenant", tenant,
		"provider", provider,
		"model", modelName,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"cost_usd", cost,
	)
}

// Cost prices one call's usage in USD.
func (m *Meter) Cost(usage Usage) float64 {
	return float64(usage.InputTokens)/1000*m.rates.InputPer1K +
		float64(usage.OutputTokens)/1000*m.rates.OutputPer1K
}

func normalizeTenant(tenant string) string {
	if tenant == "" {
		return DefaultTenant
	}
	return tenant
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
