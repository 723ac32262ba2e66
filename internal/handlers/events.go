package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"inventory-dashboard/internal/events"
	"inventory-dashboard/internal/models"
)

const defaultHeartbeat = 15 * time.Second

// SignalSource hands out change-signal subscriptions
type SignalSource interface {
	Subscribe(topics ...events.Topic) *events.Subscription
}

// EventsHandler streams change signals to the dashboard as server-sent events
type EventsHandler struct {
	source    SignalSource
	heartbeat time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(source SignalSource, heartbeat time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &EventsHandler{
		source:    source,
		heartbeat: heartbeat,
	}
}

// Stream handles GET /api/dashboard/events.
// Optional resource query values narrow the stream, e.g. ?resource=orders.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Streaming unsupported", nil)
		return
	}

	var topics []events.Topic
	for _, raw := range r.URL.Query()["resource"] {
		resource, err := models.ParseResource(raw)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
			return
		}
		topic, _ := events.TopicFor(resource)
		topics = append(topics, topic)
	}

	sub := h.source.Subscribe(topics...)
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	slog.Info("Event stream opened", "topics", topics, "remote_addr", r.RemoteAddr)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Info("Event stream closed by client", "remote_addr", r.RemoteAddr)
			return

		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case signal, open := <-sub.C:
			if !open {
				slog.Info("Event stream closed by server", "remote_addr", r.RemoteAddr)
				return
			}

			data, err := json.Marshal(signal)
			if err != nil {
				slog.Error("Failed to encode signal", "signal_id", signal.ID, "error", err)
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", signal.ID, signal.Topic, data)
			flusher.Flush()
		}
	}
}
