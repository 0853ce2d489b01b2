package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/guitarbuddy/backend/internal/broker"
	"github.com/guitarbuddy/backend/internal/live"
)

const heartbeatInterval = 30 * time.Second

// LiveHandler exposes the in-memory live session lobby over JSON and
// Server-Sent Events.
type LiveHandler struct {
	coord  *live.Coordinator
	broker *broker.Broker
}

// NewLiveHandler creates a LiveHandler over the coordinator and the broker
// it publishes lobby changes on.
func NewLiveHandler(coord *live.Coordinator, b *broker.Broker) *LiveHandler {
	return &LiveHandler{coord: coord, broker: b}
}

// List returns the active live sessions.
func (h *LiveHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.Sessions())
}

// Stream opens an SSE connection for the lobby. It sends an initial
// "sessions" event with the current list, then a fresh "sessions" event each
// time the broker signals a change. A heartbeat comment is sent every 30
// seconds to keep the connection alive through proxies.
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := h.broker.Subscribe(live.LobbyTopic)
	defer sub.Close()

	if err := h.writeSessions(w); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.C:
			if err := h.writeSessions(w); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func (h *LiveHandler) writeSessions(w http.ResponseWriter) error {
	data, err := json.Marshal(h.coord.Sessions())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: sessions\ndata: %s\n\n", data)
	return err
}
