package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HeartbeatEvent is the data of each heartbeat frame.
type HeartbeatEvent struct {
	Time string `json:"time"`
}

// handleHeartbeat handles GET /events/heartbeat. It keeps a Server-Sent
// Events stream open and emits a heartbeat frame every interval until the
// client disconnects.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")

		return
	}

	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	log := requestLogger(r, s.logger)

	if err := writeEvent(w, rc, "connected", struct{}{}); err != nil {
		log.Debug("heartbeat stream closed", zap.Error(err))

		return
	}

	s.metrics.SSEConnections.Inc()
	defer s.metrics.SSEConnections.Dec()

	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case t := <-ticker.C:
			event := HeartbeatEvent{Time: t.UTC().Format(time.RFC3339)}
			if err := writeEvent(w, rc, "heartbeat", event); err != nil {
				log.Debug("heartbeat stream closed", zap.Error(err))

				return
			}
		}
	}
}

// writeEvent writes one SSE frame and flushes it to the client.
func writeEvent(w io.Writer, rc *http.ResponseController, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}

	return rc.Flush()
}
