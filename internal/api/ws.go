package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
)

// RunWSHandler handles GET /v1/runs/{id}/ws. Each event is sent as a JSON
// text frame {"type":...,"data":{...}}; the server closes the connection
// after the terminal event.
func (s *Server) RunWSHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// Reader: only control frames matter; exit closes gone.
	gone := make(chan struct{})
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsPongWait)) })
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(evt SSEEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(evt)
	}
	closeNormal := func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
	}

	if evt, done := terminalEvent(run); done {
		if write(evt) == nil {
			closeNormal()
		}
		return
	}

	ticker := time.NewTicker(s.StreamTick)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(evt); err != nil {
				return
			}
			if evt.Terminal() {
				closeNormal()
				return
			}
		case <-ticker.C:
			if evt, done := s.finished(r.Context(), id); done {
				if write(evt) == nil {
					closeNormal()
				}
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
