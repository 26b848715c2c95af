package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf/stock-sentinel/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Store interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) ReplaceAlerts(ctx context.Context, alerts []model.Alert) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin alert snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM alerts"); err != nil {
		return fmt.Errorf("clear alert snapshot: %w", err)
	}

	for i, alert := range alerts {
		payload, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("marshal alert %s: %w", alert.Key, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO alerts (key, product_key, type, severity, revenue_at_risk, position, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			alert.Key, alert.Product.ProductKey, string(alert.Type), string(alert.Severity),
			alert.RevenueAtRisk, i, string(payload), alert.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert alert %s: %w", alert.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit alert snapshot: %w", err)
	}
	return nil
}

func (s *SQLite) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM alerts ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		var alert model.Alert
		if err := json.Unmarshal([]byte(payload), &alert); err != nil {
			return nil, fmt.Errorf("unmarshal alert payload: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (s *SQLite) GetAlert(ctx context.Context, key string) (*model.Alert, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM alerts WHERE key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}

	var alert model.Alert
	if err := json.Unmarshal([]byte(payload), &alert); err != nil {
		return nil, fmt.Errorf("unmarshal alert payload: %w", err)
	}
	return &alert, nil
}

func (s *SQLite) SetState(ctx context.Context, state model.AlertState) error {
	if state.Key == "" {
		return fmt.Errorf("set state: missing alert key")
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}

	var snoozedUntil any
	if !state.SnoozedUntil.IsZero() {
		snoozedUntil = state.SnoozedUntil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_states (key, acknowledged, resolved, snoozed, snoozed_until, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   acknowledged = excluded.acknowledged,
		   resolved = excluded.resolved,
		   snoozed = excluded.snoozed,
		   snoozed_until = excluded.snoozed_until,
		   updated_at = excluded.updated_at`,
		state.Key, state.Acknowledged, state.Resolved, state.Snoozed, snoozedUntil, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set alert state: %w", err)
	}
	return nil
}

func (s *SQLite) GetState(ctx context.Context, key string) (*model.AlertState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, acknowledged, resolved, snoozed, snoozed_until, updated_at
		 FROM alert_states WHERE key = ?`, key)

	state, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert state %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get alert state: %w", err)
	}
	return state, nil
}

func (s *SQLite) ListStates(ctx context.Context) (map[string]model.AlertState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, acknowledged, resolved, snoozed, snoozed_until, updated_at FROM alert_states`)
	if err != nil {
		return nil, fmt.Errorf("query alert states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]model.AlertState)
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert state row: %w", err)
		}
		states[state.Key] = *state
	}
	return states, rows.Err()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanState(row scanner) (*model.AlertState, error) {
	var st model.AlertState
	var snoozedUntil sql.NullTime
	if err := row.Scan(&st.Key, &st.Acknowledged, &st.Resolved, &st.Snoozed, &snoozedUntil, &st.UpdatedAt); err != nil {
		return nil, err
	}
	if snoozedUntil.Valid {
		st.SnoozedUntil = snoozedUntil.Time
	}
	return &st, nil
}

func (s *SQLite) RecordRun(ctx context.Context, run model.GenerationRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, tenant, signals, skipped, alerts, enhanced, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Tenant, run.Signals, run.Skipped, run.Alerts, run.Enhanced, run.DurationMS, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]model.GenerationRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant, signals, skipped, alerts, enhanced, duration_ms, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.GenerationRun
	for rows.Next() {
		var r model.GenerationRun
		if err := rows.Scan(&r.ID, &r.Tenant, &r.Signals, &r.Skipped, &r.Alerts,
			&r.Enhanced, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLite) RecordUsage(ctx context.Context, rec model.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records (id, tenant, provider, model, input_tokens, output_tokens, cost_usd, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Tenant, rec.Provider, rec.Model,
		rec.InputTokens, rec.OutputTokens, rec.CostUSD, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

func (s *SQLite) TenantSpendSince(ctx context.Context, tenant string, since time.Time) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost_usd), 0) FROM usage_records WHERE tenant = ? AND timestamp >= ?`,
		tenant, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum tenant spend: %w", err)
	}
	return total, nil
}

func (s *SQLite) SpendByTenant(ctx context.Context, since time.Time) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant, COALESCE(SUM(cost_usd), 0) FROM usage_records
		 WHERE timestamp >= ? GROUP BY tenant ORDER BY tenant`, since)
	if err != nil {
		return nil, fmt.Errorf("aggregate tenant spend: %w", err)
	}
	defer rows.Close()

	result := make(map[string]float64)
	for rows.Next() {
		var tenant string
		var total float64
		if err := rows.Scan(&tenant, &total); err != nil {
			return nil, fmt.Errorf("scan tenant spend: %w", err)
		}
		result[tenant] = total
	}
	return result, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
