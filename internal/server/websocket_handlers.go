package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/boostcascade/internal/metrics"
)

// upgrader upgrades /progress connections with permissive origin checking;
// deployments behind an untrusted edge should front this with their own
// CORS/origin policy.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// IterationEvent is one progress frame pushed to /progress subscribers.
type IterationEvent struct {
	Type      string  `json:"type"`
	Stage     int     `json:"stage"`
	Iteration int     `json:"iteration"`
	ExpLoss   float32 `json:"exp_loss"`
	Error     float32 `json:"error"`
	PosError  float32 `json:"pos_error"`
	NegError  float32 `json:"neg_error"`
	Threshold float32 `json:"threshold,omitempty"`
	Done      bool    `json:"done,omitempty"`
}

// progressWebSocketHandler streams training-iteration events to a client.
func (s *Server) progressWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade progress connection", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	metrics.WebsocketConnections.Inc()
	defer metrics.WebsocketConnections.Dec()

	slog.Info("progress websocket connected", "remote_addr", r.RemoteAddr)

	events, unsubscribe := s.run.Subscribe()
	defer unsubscribe()

	s.pumpProgress(conn, events)
}

// pumpProgress forwards events to conn until the channel closes or the
// client goes away.
func (s *Server) pumpProgress(conn *websocket.Conn, events <-chan IterationEvent) {
	go s.discardClientMessages(conn)

	for ev := range events {
		if err := s.sendEvent(conn, ev); err != nil {
			slog.Error("progress websocket send failed", "error", err)
			return
		}
		if ev.Done {
			return
		}
	}
}

// discardClientMessages reads and drops any client traffic so the
// connection's read deadline keeps advancing and close frames are noticed.
func (s *Server) discardClientMessages(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) sendEvent(conn *websocket.Conn, ev IterationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
