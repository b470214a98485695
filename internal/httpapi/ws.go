package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
)

// handleWidgetWS streams widget events (messages, awaiting flag,
// suggestion batches) to the browser. The widget session must already
// be live; events are produced by the session controller and fanned
// out by the manager.
func (s *Server) handleWidgetWS(w http.ResponseWriter, r *http.Request) {
	widgetID := strings.TrimSpace(r.URL.Query().Get("widget_id"))
	if widgetID == "" {
		respondError(w, http.StatusBadRequest, "missing_widget_id", "query parameter widget_id is required")
		return
	}

	events, cancel, err := s.widgets.Subscribe(widgetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "widget_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		return
	}
	defer conn.Close()
	defer cancel()

	s.metrics.WidgetEvents.WithLabelValues("ws_connected").Inc()
	defer s.metrics.WidgetEvents.WithLabelValues("ws_disconnected").Inc()

	done := make(chan struct{})

	// Single writer goroutine; the event channel is closed on
	// unsubscribe and on widget eviction.
	go func() {
		defer close(done)
		for ev := range events {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "widget session expired"))
	}()

	// The stream is one-way; the read loop only notices disconnects
	// and keeps the read deadline fresh via pongs.
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	}

	cancel()
	<-done
}
