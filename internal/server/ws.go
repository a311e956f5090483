package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pfrederiksen/cricpulse/internal/logger"
	"github.com/pfrederiksen/cricpulse/internal/store"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsBuffer     = 64
)

// Frame is one store change sent to websocket clients. Value is null for a
// deleted key.
type Frame struct {
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	Revision int64           `json:"revision"`
}

// NewFrame converts a store entry into a frame. Values that are not JSON
// are sent as strings.
func NewFrame(e store.Entry) Frame {
	f := Frame{Key: e.Key, Revision: e.Revision}
	switch {
	case e.Deleted():
		f.Value = json.RawMessage("null")
	case json.Valid(e.Value):
		f.Value = json.RawMessage(e.Value)
	default:
		quoted, _ := json.Marshal(string(e.Value))
		f.Value = quoted
	}
	return f
}

// handleWebSocket sends the current value of every well-known key, then
// streams changes until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", logger.Fields{"error": err.Error()})
		return
	}
	defer conn.Close()

	// Subscribe first so nothing written during the snapshot is missed.
	sub := s.store.Subscribe(wsBuffer)
	defer sub.Close()

	log := s.log.With(logger.Fields{"subscriber": sub.ID, "remote": r.RemoteAddr})

	ctx := r.Context()
	entries, err := s.store.Entries(ctx, store.Keys...)
	if err != nil {
		log.Error("reading store snapshot failed", nil, err)
		return
	}
	for _, e := range entries {
		if err := writeFrame(conn, NewFrame(e)); err != nil {
			return
		}
	}

	// The reader only services control frames and notices disconnects.
	done := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Info("websocket client connected", nil)
	s.metrics.IncrCounter("server.ws.connections")
	s.metrics.SetGauge("server.ws.clients", float64(s.clients.Add(1)))
	defer func() { s.metrics.SetGauge("server.ws.clients", float64(s.clients.Add(-1))) }()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			log.Info("websocket client disconnected", logger.Fields{"dropped": sub.Dropped()})
			return
		case e, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "store closed"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := writeFrame(conn, NewFrame(e)); err != nil {
				log.Debug("websocket write failed", logger.Fields{"error": err.Error()})
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(f)
}
