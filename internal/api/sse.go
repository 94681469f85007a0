package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/inky-labs/inkypi-go/internal/models"
)

// sseEvents streams panel state to the web UI as named "state" events. The
// first event is the current state, so a UI connecting mid-session renders
// immediately; after that every controller mutation (settings edits, plugin
// changes, a button press landing a new frame) arrives as it happens. Each
// event carries the whole state, so a snapshot dropped by the bus is
// superseded by the next one rather than leaving the UI stale.
func (h *Handlers) sseEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx would buffer the stream otherwise

	subID := uuid.New().String()
	updates := h.events.Subscribe(subID)
	defer h.events.Unsubscribe(subID)

	writeStateEvent(w, flusher, h.ctrl.State())

	for {
		select {
		case snap, open := <-updates:
			if !open {
				return
			}
			writeStateEvent(w, flusher, snap)
		case <-r.Context().Done():
			return
		}
	}
}

// writeStateEvent emits one named SSE event carrying a full state snapshot.
func writeStateEvent(w http.ResponseWriter, flusher http.Flusher, snap models.State) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
	flusher.Flush()
}
