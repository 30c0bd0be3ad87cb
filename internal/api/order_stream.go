package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"merchantpay/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
	streamPingEvery = 20 * time.Second
	streamReadWait  = 60 * time.Second
	streamWriteWait = 10 * time.Second

	msgSnapshot = "order.snapshot"
)

type streamMessage struct {
	Type  string            `json:"type"`
	Order *model.Order      `json:"order,omitempty"`
	Event *model.OrderEvent `json:"event,omitempty"`
}

// OrderStreamHandler serves /order/{id}/ws: it sends the current order as a
// snapshot, then each status event, and closes once the order is terminal.
func (s *Server) OrderStreamHandler(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.Orders.Get(r.Context(), id); err != nil {
		writeError(w, r, err, false)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// subscribe before reading the snapshot so a concurrent change is not lost
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	order, err := s.Orders.Get(r.Context(), id)
	if err != nil {
		return
	}
	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(v)
	}
	if err := write(streamMessage{Type: msgSnapshot, Order: &order}); err != nil {
		return
	}
	if order.Status != model.StatusPending {
		s.closeStream(conn)
		return
	}

	// Read loop only tracks liveness; clients have nothing to send.
	done := make(chan struct{})
	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(streamReadWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(streamReadWait)) })
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(streamMessage{Type: evt.Type, Event: &evt}); err != nil {
				return
			}
			if evt.Status != model.StatusPending {
				s.closeStream(conn)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "order settled")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
}
