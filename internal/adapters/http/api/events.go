package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/clerb/internal/adapters/changefeed"
	"github.com/okian/clerb/internal/domain/model"
)

const keepAliveInterval = 25 * time.Second

// ChangeSource registers change feed subscribers.
type ChangeSource interface {
	Subscribe(f changefeed.Filter) (<-chan model.Change, func())
}

// EventsHandler streams row changes as server-sent events.
type EventsHandler struct {
	source    ChangeSource
	keepAlive time.Duration
}

// NewEventsHandler creates a new change stream handler.
func NewEventsHandler(source ChangeSource) *EventsHandler {
	return &EventsHandler{source: source, keepAlive: keepAliveInterval}
}

// HandleChanges handles GET /api/v1/changes. The optional "tables" query
// parameter is a comma separated table list; "book_id" narrows to one book.
func (h *EventsHandler) HandleChanges(w http.ResponseWriter, r *http.Request) {
	const op = "api.changes"
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", NewKind(op, ErrStreaming))
		return
	}

	f := changefeed.Filter{BookID: r.URL.Query().Get("book_id")}
	if tables := r.URL.Query().Get("tables"); tables != "" {
		for _, t := range strings.Split(tables, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Tables = append(f.Tables, t)
			}
		}
	}

	changes, cancel := h.source.Subscribe(f)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case c, ok := <-changes:
			if !ok {
				return
			}
			payload, err := json.Marshal(c)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %s\nevent: change\ndata: %s\n\n", c.ID, payload)
			flusher.Flush()
		}
	}
}
