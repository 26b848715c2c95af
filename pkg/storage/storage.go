package storage

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/stock-sentinel/pkg/model"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the caller-side persistence for the alert engine: the latest
// generated alert snapshot, the user-owned lifecycle state per alert
// identity, the generation run history, and enhancement usage. The engine
// itself never touches this; the CLI and server own it.
type Store interface {
	// ReplaceAlerts atomically swaps the stored snapshot for the alerts of
	// a fresh generation pass, preserving their ranked order.
	ReplaceAlerts(ctx context.Context, alerts []model.Alert) error

	// ListAlerts returns the stored snapshot in ranked order.
	ListAlerts(ctx context.Context) ([]model.Alert, error)

	// GetAlert returns one alert from the snapshot by identity key.
	GetAlert(ctx context.Context, key string) (*model.Alert, error)

	// SetState creates or updates the lifecycle state for an alert identity.
	SetState(ctx context.Context, state model.AlertState) error

	// GetState returns the lifecycle state for an alert identity.
	GetState(ctx context.Context, key string) (*model.AlertState, error)

	// ListStates returns all lifecycle states keyed by alert identity.
	ListStates(ctx context.Context) (map[string]model.AlertState, error)

	// RecordRun persists a generation run summary.
	RecordRun(ctx context.Context, run model.GenerationRun) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]model.GenerationRun, error)

	// RecordUsage persists one enhancement usage record.
	RecordUsage(ctx context.Context, rec model.UsageRecord) error

	// TenantSpendSince sums a tenant's enhancement spend since the given time.
	TenantSpendSince(ctx context.Context, tenant string, since time.Time) (float64, error)

	// SpendByTenant sums enhancement spend per tenant since the given time.
	SpendByTenant(ctx context.Context, since time.Time) (map[string]float64, error)

	// Close releases resources.
	Close() error
}
