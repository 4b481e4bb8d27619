package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jwtly10/insightflow/internal/backtest"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEquityStream reads one equity request from the client, then sends
// one EquityPoint per message and closes normally. A bad request gets an
// error message and a policy-violation close.
func (s *Server) handleEquityStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	m := s.deps.Metrics
	m.EquityStreams.Inc()
	defer m.EquityStreams.Dec()

	conn.SetReadLimit(maxBodyBytes)

	var req equityRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.closeWithError(conn, websocket.CloseUnsupportedData, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		s.closeWithError(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}

	points := backtest.BuildEquityCurve(req.Candles, req.Trades, s.equityOptions(req))
	s.computed("equity", len(req.Trades))

	for _, p := range points {
		if err := r.Context().Err(); err != nil {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(p); err != nil {
			slog.Warn("websocket write failed", "error", err)
			return
		}
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(wsWriteWait))
}

func (s *Server) closeWithError(conn *websocket.Conn, code int, msg string) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	conn.WriteJSON(errorResponse{Error: msg, Kind: "bad_request"})
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, truncate(msg, 120)),
		time.Now().Add(wsWriteWait))
}

// truncate keeps close reasons under the 125 byte control frame limit.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
