package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwtly10/insightflow/internal/auth"
	"github.com/jwtly10/insightflow/internal/backtest"
	"github.com/jwtly10/insightflow/internal/export"
	"github.com/jwtly10/insightflow/internal/heatmap"
	"github.com/jwtly10/insightflow/internal/recorder"
	"github.com/jwtly10/insightflow/internal/storage"
	"github.com/jwtly10/insightflow/internal/types"
)

var errBadRequest = errors.New("bad request")

type tradesRequest struct {
	Trades []types.Trade `json:"trades"`
}

// equityRequest leaves InitialBalance and Mode nil when omitted so the server
// defaults apply. A balance that is sent must be positive.
type equityRequest struct {
	Candles        []types.Candle `json:"candles"`
	Trades         []types.Trade  `json:"trades"`
	InitialBalance *float64       `json:"initialBalance"`
	Mode           *backtest.Mode `json:"mode"`
}

func (req equityRequest) validate() error {
	if err := types.ValidateCandles(req.Candles); err != nil {
		return err
	}
	if err := types.ValidateTrades(req.Trades); err != nil {
		return err
	}
	if req.InitialBalance != nil && *req.InitialBalance <= 0 {
		return fmt.Errorf("%w: initialBalance must be a positive number", errBadRequest)
	}
	return nil
}

// equityOptions fills what the request leaves out from the server defaults.
func (s *Server) equityOptions(req equityRequest) backtest.EquityOptions {
	opts := s.deps.Equity
	if req.InitialBalance != nil {
		opts.InitialBalance = *req.InitialBalance
	}
	if req.Mode != nil {
		opts.Mode = *req.Mode
	}
	return opts
}

type strategiesRequest struct {
	Strategies []types.Strategy `json:"strategies"`
}

type runRequest struct {
	ID     string        `json:"id"`
	Trades []types.Trade `json:"trades"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var req tradesRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := types.ValidateTrades(req.Trades); err != nil {
		s.writeError(w, err)
		return
	}

	stats := backtest.CalculateStats(req.Trades)
	s.computed("stats", len(req.Trades))
	s.record(&recorder.StatsRun{Source: "api", Trades: len(req.Trades), Stats: stats})
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleEquity(w http.ResponseWriter, r *http.Request) {
	var req equityRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, err)
		return
	}

	points := backtest.BuildEquityCurve(req.Candles, req.Trades, s.equityOptions(req))
	s.computed("equity", len(req.Trades))
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req equityRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, err)
		return
	}

	analysis, err := backtest.Analyze(r.Context(), req.Candles, req.Trades, s.equityOptions(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.computed("analyze", len(req.Trades))
	s.record(&recorder.StatsRun{Source: "api", Trades: len(req.Trades), Stats: analysis.Stats, MaxDrawdown: analysis.MaxDrawdown})
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	var req strategiesRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := types.ValidateStrategies(req.Strategies); err != nil {
		s.writeError(w, err)
		return
	}

	s.computed("heatmap", 0)
	writeJSON(w, http.StatusOK, heatmap.Build(req.Strategies))
}

// handleLatestHeatmap serves the scheduled snapshot. ?refresh=1 forces a
// rebuild, as does the absence of any snapshot yet.
func (s *Server) handleLatestHeatmap(w http.ResponseWriter, r *http.Request) {
	if s.deps.Heatmaps == nil {
		http.Error(w, "heatmap scheduler not configured", http.StatusServiceUnavailable)
		return
	}

	snap, ok := s.deps.Heatmaps.Latest()
	if !ok || r.URL.Query().Get("refresh") == "1" {
		var err error
		if snap, err = s.deps.Heatmaps.RefreshNow(r.Context()); err != nil {
			s.writeError(w, err)
			return
		}
		s.computed("heatmap", 0)
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var st types.Strategy
	if err := decode(w, r, &st); err != nil {
		s.writeError(w, err)
		return
	}
	if err := types.ValidateStrategies([]types.Strategy{st}); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.deps.Strategies.Insert(r.Context(), &st); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := types.ValidateTrades(req.Trades); err != nil {
		s.writeError(w, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if err := s.deps.Trades.InsertRun(r.Context(), req.ID, req.Trades); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": req.ID, "trades": len(req.Trades)})
}

func (s *Server) handleRunStats(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	trades, err := s.deps.Trades.GetByRun(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	stats := backtest.CalculateStats(trades)
	s.computed("stats", len(trades))
	s.record(&recorder.StatsRun{RunID: runID, Source: "store", Trades: len(trades), Stats: stats})
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTradesCSV(w http.ResponseWriter, r *http.Request) {
	var req tradesRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := types.ValidateTrades(req.Trades); err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)
	if err := export.WriteTradesCSV(w, req.Trades); err != nil {
		slog.Error("write trades csv", "error", err)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.deps.Auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) computed(kind string, trades int) {
	s.deps.Metrics.Computations.WithLabelValues(kind).Inc()
	s.deps.Metrics.TradesAnalyzed.Add(float64(trades))
}

func (s *Server) record(run *recorder.StatsRun) {
	if err := s.deps.Recorder.RecordStats(run); err != nil {
		slog.Error("record stats", "error", err)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Record string `json:"record,omitempty"`
	Index  *int   `json:"index,omitempty"`
	Field  string `json:"field,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		s.deps.Metrics.ValidationFailures.WithLabelValues(verr.Record).Inc()
		index := verr.Index
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  verr.Error(),
			Kind:   verr.Kind,
			Record: verr.Record,
			Index:  &index,
			Field:  verr.Field,
		})
		return
	}

	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, storage.ErrInvalidInput), errors.Is(err, auth.ErrInvalidInput):
		status, kind = http.StatusBadRequest, "bad_request"
	case errors.Is(err, storage.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, storage.ErrDuplicateKey), errors.Is(err, auth.ErrUserExists):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, kind = http.StatusUnauthorized, "unauthorized"
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
