package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/formship/formship/internal/snapshot"
	"github.com/formship/formship/internal/telemetry"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 25 * time.Second

// handleStream serves GET /v1/forms/stream: a Server-Sent Events feed of
// snapshot changes. Clients get an "init" event with the current ETag, then
// an "update" event for every snapshot swap, so they can re-fetch the
// snapshot only when it actually changed.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	telemetry.SSEClients.Inc()
	defer telemetry.SSEClients.Dec()

	updates, unsubscribe := snapshot.Subscribe()
	defer unsubscribe()

	writeSSEEvent(w, "init", snapshot.Load().ETag)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case change, ok := <-updates:
			if !ok {
				return
			}
			writeSSEEvent(w, "update", change.ETag)
			flusher.Flush()
		case <-heartbeat.C:
			// comment line, ignored by EventSource clients
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event, etag string) {
	fmt.Fprintf(w, "event: %s\ndata: {\"etag\":%q}\n\n", event, etag)
}
