// Package server exposes the analytics over HTTP and a websocket.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jwtly10/insightflow/internal/auth"
	"github.com/jwtly10/insightflow/internal/backtest"
	"github.com/jwtly10/insightflow/internal/recorder"
	"github.com/jwtly10/insightflow/internal/scheduler"
	"github.com/jwtly10/insightflow/internal/storage"
)

const maxBodyBytes = 10 << 20

// HeatmapSource provides the scheduled heatmap snapshot.
type HeatmapSource interface {
	Latest() (*scheduler.Snapshot, bool)
	RefreshNow(ctx context.Context) (*scheduler.Snapshot, error)
}

// Deps are the collaborators a Server needs. Recorder and Metrics default to
// a no-op recorder and a fresh registry.
type Deps struct {
	Strategies storage.StrategyStore
	Trades     storage.TradeStore
	Heatmaps   HeatmapSource
	Auth       *auth.Service
	Recorder   recorder.Recorder
	Metrics    *Metrics
	Equity     backtest.EquityOptions
}

type Server struct {
	deps Deps
	mux  *http.ServeMux
}

func New(deps Deps) *Server {
	if deps.Recorder == nil {
		deps.Recorder = recorder.NoopRecorder{}
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics("")
	}

	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("POST /api/stats", s.handleStats)
	s.handle("POST /api/equity", s.handleEquity)
	s.handle("POST /api/analyze", s.handleAnalyze)
	s.handle("POST /api/heatmap", s.handleHeatmap)
	s.handle("GET /api/heatmap", s.handleLatestHeatmap)
	s.handle("POST /api/strategies", s.handleCreateStrategy)
	s.handle("POST /api/runs", s.handleCreateRun)
	s.handle("GET /api/runs/{id}/stats", s.handleRunStats)
	s.handle("POST /api/export/trades.csv", s.handleTradesCSV)
	s.handle("POST /api/auth/register", s.handleRegister)
	s.handle("POST /api/auth/login", s.handleLogin)
	s.handle("GET /ws/equity", s.handleEquityStream)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /metrics", s.deps.Metrics.Handler())
}

// handle registers h under pattern with request metrics labelled by pattern.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	m := s.deps.Metrics
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		m.Requests.WithLabelValues(pattern, strconv.Itoa(sw.status)).Inc()
		m.RequestDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	slog.Info("http server stopped")
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
