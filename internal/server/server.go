package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/openshelf/stock-sentinel/pkg/engine"
	"github.com/openshelf/stock-sentinel/pkg/feed"
	"github.com/openshelf/stock-sentinel/pkg/model"
	"github.com/openshelf/stock-sentinel/pkg/rules"
	"github.com/openshelf/stock-sentinel/pkg/storage"
)

// generateTimeout bounds one generation request end to end, enhancement
// included.
const generateTimeout = 60 * time.Second

// Server exposes the alert engine and the stored alert snapshot over HTTP.
// It is the "caller" in the engine's contract: it owns lifecycle state and
// the persistence around each generation pass.
type Server struct {
	engine        *engine.Engine
	rules         *rules.Ruleset
	store         storage.Store
	feed          feed.Source
	defaultTenant string
	mux           *http.ServeMux
	logger        *slog.Logger
}

// New creates an API server. source may be nil to disable the
// competitor-threat pass.
func New(eng *engine.Engine, rs *rules.Ruleset, store storage.Store, source feed.Source, defaultTenant string, logger *slog.Logger) *Server {
	s := &Server{
		engine:        eng,
		rules:         rs,
		store:         store,
		feed:          source,
		defaultTenant: defaultTenant,
		mux:           http.NewServeMux(),
		logger:        logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/alerts", s.handleListAlerts)
	s.mux.HandleFunc("POST /api/v1/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/v1/alerts/{key}/ack", s.handleAck)
	s.mux.HandleFunc("POST /api/v1/alerts/{key}/resolve", s.handleResolve)
	s.mux.HandleFunc("POST /api/v1/alerts/{key}/snooze", s.handleSnooze)
	s.mux.HandleFunc("GET /api/v1/rules", s.handleRules)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListAlerts serves the stored snapshot in ranked order. Resolved and
// actively snoozed alerts are included by default; include_resolved=false
// and include_snoozed=false drop them.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	alerts, err := s.store.ListAlerts(ctx)
	if err != nil {
		s.logger.Error("list alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	states, err := s.store.ListStates(ctx)
	if err != nil {
		s.logger.Error("list alert states", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	severity := q.Get("severity")
	includeResolved := q.Get("include_resolved") != "false"
	includeSnoozed := q.Get("include_snoozed") != "false"

	now := time.Now().UTC()
	filtered := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if severity != "" && string(a.Severity) != severity {
			continue
		}
		if !includeResolved && a.Resolved {
			continue
		}
		if !includeSnoozed {
			if st, ok := states[a.Key]; ok && st.Snoozed && (st.SnoozedUntil.IsZero() || now.Before(st.SnoozedUntil)) {
				continue
			}
		}
		filtered = append(filtered, a)
	}

	writeJSON(w, http.StatusOK, filtered)
}

type generateRequest struct {
	Records          []model.RawRecord       `json:"records"`
	CompetitorPrices []model.CompetitorPrice `json:"competitor_prices,omitempty"`
	Tenant           string                  `json:"tenant,omitempty"`
}

type generateResponse struct {
	Alerts []model.Alert       `json:"alerts"`
	Run    model.GenerationRun `json:"run"`
}

// handleGenerate runs one full pipeline pass: merge stored lifecycle state,
// generate, persist the new snapshot, return the ranked list.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), generateTimeout)
	defer cancel()

	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 32<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Records) == 0 {
		http.Error(w, "records is required", http.StatusBadRequest)
		return
	}

	tenant := req.Tenant
	if tenant == "" {
		tenant = s.defaultTenant
	}

	competitors := req.CompetitorPrices
	if len(competitors) == 0 && s.feed != nil {
		signals, _ := engine.ExtractSignals(req.Records, s.rules, s.logger)
		prices, err := s.feed.Fetch(ctx, signals)
		if err != nil {
			s.logger.Warn("competitor feed unavailable, skipping threat pass",
				"source", s.feed.Name(), "error", err)
		} else {
			competitors = prices
		}
	}

	// Prior state reads degrade to an empty prior: generation must succeed
	// even when the store read path is down.
	prior, err := s.store.ListStates(ctx)
	if err != nil {
		s.logger.Warn("load lifecycle state failed, starting unflagged", "error", err)
		prior = nil
	}

	result := s.engine.Generate(ctx, engine.Request{
		Records:     req.Records,
		Competitors: competitors,
		Prior:       prior,
		Tenant:      tenant,
	})

	if err := s.store.ReplaceAlerts(ctx, result.Alerts); err != nil {
		s.logger.Error("persist alert snapshot failed", "error", err)
	}
	if err := s.store.RecordRun(ctx, result.Run); err != nil {
		s.logger.Error("persist generation run failed", "error", err)
	}

	writeJSON(w, http.StatusOK, generateResponse{Alerts: result.Alerts, Run: result.Run})
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	s.updateState(w, r, func(st *model.AlertState) {
		st.Acknowledged = true
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	s.updateState(w, r, func(st *model.AlertState) {
		st.Resolved = true
	})
}

type snoozeRequest struct {
	Hours float64 `json:"hours,omitempty"`
}

func (s *Server) handleSnooze(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	var req snoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Hours > 0 {
		window = time.Duration(req.Hours * float64(time.Hour))
	}

	until := time.Now().UTC().Add(window)
	s.updateState(w, r, func(st *model.AlertState) {
		st.Snoozed = true
		st.SnoozedUntil = until
	})
}

// updateState applies one lifecycle mutation for the alert identity in the
// path, creating the state row on first action.
func (s *Server) updateState(w http.ResponseWriter, r *http.Request, apply func(*model.AlertState)) {
	ctx := r.Context()
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, "missing alert key", http.StatusBadRequest)
		return
	}

	st, err := s.store.GetState(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		st = &model.AlertState{Key: key}
	} else if err != nil {
		s.logger.Error("load alert state", "key", key, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	apply(st)
	st.UpdatedAt = time.Now().UTC()

	if err := s.store.SetState(ctx, *st); err != nil {
		s.logger.Error("save alert state", "key", key, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rules)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
