package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-lms/internal/event"
	"go-lms/internal/middleware"
	"go-lms/internal/model"
)

const heartbeatInterval = 15 * time.Second

type eventSubscriber interface {
	Subscribe(filter event.Filter) (<-chan event.Event, func())
}

// EventsHandler streams the caller's own progress events as server-sent events.
type EventsHandler struct {
	bus       eventSubscriber
	heartbeat time.Duration
}

func NewEventsHandler(bus eventSubscriber) *EventsHandler {
	return &EventsHandler{bus: bus, heartbeat: heartbeatInterval}
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("response writer does not support streaming"))
		return
	}

	events, unsubscribe := h.bus.Subscribe(event.ForUser(user.ID))
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				slog.Error("failed to marshal event", "type", e.Type, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
