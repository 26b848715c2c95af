package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/stock-sentinel/pkg/enhance"
	"github.com/openshelf/stock-sentinel/pkg/model"
	"github.com/openshelf/stock-sentinel/pkg/rules"
)

// DefaultEnhanceTimeout bounds the enhancement call when no explicit
// timeout is configured.
const DefaultEnhanceTimeout = 15 * time.Second

// Request carries the inputs for one generation pass. Prior is the
// caller-owned lifecycle state keyed by alert identity; Tenant attributes
// enhancement spend and rate limits.
type Request struct {
	Records     []model.RawRecord
	Competitors []model.CompetitorPrice
	Prior       map[string]model.AlertState
	Tenant      string
}

// Result is the outcome of one generation pass.
type Result struct {
	Alerts []model.Alert
	Run    model.GenerationRun
}

// Engine runs the alert pipeline: extract, classify, build, competitor
// analysis, rank, best-effort enhancement, lifecycle merge. It holds no
// state between passes.
type Engine struct {
	rules    *rules.Ruleset
	enhancer enhance.Enhancer
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates an engine. The enhancer may be nil to skip narrative
// enhancement entirely; timeout bounds the enhancement call and defaults
// to DefaultEnhanceTimeout when zero.
func New(rs *rules.Ruleset, enhancer enhance.Enhancer, timeout time.Duration, logger *slog.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultEnhanceTimeout
	}
	return &Engine{
		rules:    rs,
		enhancer: enhancer,
		timeout:  timeout,
		logger:   logger,
	}
}

// Generate runs one full pass. It always returns a usable alert list:
// invalid records are skipped, and an enhancement failure leaves alerts
// unchanged rather than propagating.
func (e *Engine) Generate(ctx context.Context, req Request) *Result {
	started := time.Now()
	now := started.UTC()

	signals, skipped := ExtractSignals(req.Records, e.rules, e.logger)

	alerts := make([]model.Alert, 0, len(signals))
	for _, sig := range signals {
		alertType, ok := Classify(sig, e.rules)
		if !ok {
			continue
		}

		alert, err := Build(sig, alertType, e.rules, now)
		if err != nil {
			e.logger.Error("alert build failed, skipping product",
				"product_key", sig.ProductKey,
				"type", string(alertType),
				"error", err,
			)
			continue
		}
		alerts = append(alerts, alert)
	}

	alerts = append(alerts, AnalyzeCompetitors(signals, req.Competitors, e.rules, now)...)

	Rank(alerts)

	enhanced := 0
	if e.enhancer != nil && len(alerts) > 0 {
		enhanced = e.applyEnhancements(ctx, alerts, req.Tenant)
	}

	MergeLifecycle(alerts, req.Prior)

	run := model.GenerationRun{
		ID:         uuid.New().String(),
		Tenant:     req.Tenant,
		Signals:    len(req.Records),
		Skipped:    skipped,
		Alerts:     len(alerts),
		Enhanced:   enhanced,
		DurationMS: time.Since(started).Milliseconds(),
		CreatedAt:  now,
	}

	e.logger.Info("generation pass complete",
		"run_id", run.ID,
		"tenant", req.Tenant,
		"signals", run.Signals,
		"skipped", run.Skipped,
		"alerts", run.Alerts,
		"enhanced", run.Enhanced,
		"duration_ms", run.DurationMS,
	)

	return &Result{Alerts: alerts, Run: run}
}

// applyEnhancements runs the enhancement adapter under its own timeout and
// applies whatever came back. Failures degrade to unchanged alerts; they
// never surface past this boundary.
func (e *Engine) applyEnhancements(ctx context.Context, alerts []model.Alert, tenant string) int {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	adjustments, err := e.enhancer.Enhance(ctx, alerts, tenant)
	if err != nil {
		e.logger.Warn("enhancement degraded, alerts unchanged", "error", err)
		return 0
	}

	applied := 0
	for i := range alerts {
		adj, ok := adjustments[alerts[i].Key]
		if !ok {
			continue
		}
		alerts[i].Narrative = adj.Narrative
		alerts[i].Confidence = clamp01(alerts[i].Confidence * adj.ConfidenceFactor)
		applied++
	}
	return applied
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
