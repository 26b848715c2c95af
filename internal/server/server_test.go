package server_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/stock-sentinel/internal/server"
	"github.com/openshelf/stock-sentinel/pkg/engine"
	"github.com/openshelf/stock-sentinel/pkg/model"
	"github.com/openshelf/stock-sentinel/pkg/rules"
	"github.com/openshelf/stock-sentinel/pkg/storage"
)

func setupServer(t *testing.T) *server.Server {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	rs := rules.Default()
	eng := engine.New(rs, nil, 0, logger)

	return server.New(eng, rs, store, nil, "default", logger)
}

func generateBody() string {
	return `{"records": [
		{"product_key": "SKU-1", "price": 20, "weekly_sales": 10, "stock": 12},
		{"product_key": "SKU-2", "price": 25, "weekly_sales": 1, "stock": 60}
	]}`
}

func doRequest(t *testing.T, srv *server.Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	srv := setupServer(t)

	w := doRequest(t, srv, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])
}

func TestServer_Generate(t *testing.T) {
	srv := setupServer(t)

	w := doRequest(t, srv, "POST", "/api/v1/generate", generateBody())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Alerts []model.Alert       `json:"alerts"`
		Run    model.GenerationRun `json:"run"`
	}
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)

	// SKU-2 sits at 60 weeks of cover, which escalates the overstock to
	// high severity and ranks it above the medium stockout.
	require.Len(t, resp.Alerts, 2)
	assert.Equal(t, model.TypeOverstock, resp.Alerts[0].Type)
	assert.Equal(t, model.TypeStockout, resp.Alerts[1].Type)
	assert.Equal(t, 2, resp.Run.Signals)
	assert.Equal(t, 2, resp.Run.Alerts)
	assert.NotEmpty(t, resp.Run.ID)
}

func TestServer_Generate_EmptyBody(t *testing.T) {
	srv := setupServer(t)

	w := doRequest(t, srv, "POST", "/api/v1/generate", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_ListAlerts(t *testing.T) {
	srv := setupServer(t)

	w := doRequest(t, srv, "POST", "/api/v1/generate", generateBody())
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, srv, "GET", "/api/v1/alerts", "")
	require.Equal(t, http.StatusOK, w.Code)

	var alerts []model.Alert
	err := json.NewDecoder(w.Body).Decode(&alerts)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestServer_ListAlerts_SeverityFilter(t *testing.T) {
	srv := setupServer(t)

	w := doRequest(t, srv, "POST", "/api/v1/generate", generateBody())
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, srv, "GET", "/api/v1/alerts?severity=medium", "")
	require.Equal(t, http.StatusOK, w.Code)

	var alerts []model.Alert
	err := json.NewDecoder(w.Body).Decode(&alerts)
	require.NoError(t, err)
	for _, a := range alerts {
		assert.Equal(t, model.SeverityMedium, a.Severity)
	}
}

func TestServer_AckPersistsAcrossRegeneration(t *testing.T) {
	srv := setupServer(t)

	w := doRequest(t, srv, "POST", "/api/v1/generate", generateBody())
	require.Equal(t, http.StatusOK, w.Code)

	key := model.AlertKey("SKU-1", model.TypeStockout)
	w = doRequest(t, srv, "POST", "/api/v1/alerts/"+key+"/ack", "")
	require.Equal(t, http.StatusOK, w.Code)

	// Regenerate from identical inputs; the acknowledgment must survive.
	w = doRequest(t, srv, "POST", "/api/v1/generate", generateBody())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Alerts []model.Alert `json:"alerts"`
	}
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)

	found := false
	for _, a := range resp.Alerts {
		if a.Key == key {
			found = true
			assert.True(t, a.Acknowledged)
		}
	}
	assert.True(t, found)
}

func TestServer_ResolvedDroppedOnlyWhenAsked(t *testing.T) {
	srv := setupServer(t)

	w := doRequest(t, srv, "POST", "/api/v1/generate", generateBody())
	require.Equal(t, http.StatusOK, w.Code)

	key := model.AlertKey("SKU-2", model.TypeOverstock)
	w = doRequest(t, srv, "POST", "/api/v1/alerts/"+key+"/resolve", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, srv, "POST", "/api/v1/generate", generateBody())
	require.Equal(t, http.StatusOK, w.Code)

	// Default listing keeps the resolved alert.
	w = doRequest(t, srv, "GET", "/api/v1/alerts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var alerts []model.Alert
	require.NoError(t, json.NewDecoder(w.Body).Decode(&alerts))
	assert.Len(t, alerts, 2)

	// Asking drops it.
	w = doRequest(t, srv, "GET", "/api/v1/alerts?include_resolved=false", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&alerts))
	require.Len(t, alerts, 1)
	assert.NotEqual(t, key, alerts[0].Key)
}

func TestServer_SnoozeFilter(t *testing.T) {
	srv := setupServer(t)

	w := doRequest(t, srv, "POST", "/api/v1/generate", generateBody())
	require.Equal(t, http.StatusOK, w.Code)

	key := model.AlertKey("SKU-1", model.TypeStockout)
	w = doRequest(t, srv, "POST", "/api/v1/alerts/"+key+"/snooze", `{"hours": 4}`)
	require.Equal(t, http.StatusOK, w.Code)

	var st model.AlertState
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.True(t, st.Snoozed)
	assert.False(t, st.SnoozedUntil.IsZero())

	w = doRequest(t, srv, "GET", "/api/v1/alerts?include_snoozed=false", "")
	require.Equal(t, http.StatusOK, w.Code)
	var alerts []model.Alert
	require.NoError(t, json.NewDecoder(w.Body).Decode(&alerts))
	require.Len(t, alerts, 1)
	assert.NotEqual(t, key, alerts[0].Key)
}

func TestServer_Rules(t *testing.T) {
	srv := setupServer(t)

	w := doRequest(t, srv, "GET", "/api/v1/rules", "")
	require.Equal(t, http.StatusOK, w.Code)

	var rs rules.Ruleset
	err := json.NewDecoder(w.Body).Decode(&rs)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, rs.Thresholds.StockoutMaxWeeks, 0.0001)
	assert.InDelta(t, 999, rs.WeeksOfStockSentinel, 0.0001)
}
