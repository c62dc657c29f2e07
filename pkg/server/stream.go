package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lexigraph/lexigraph/pkg/events"
	"github.com/lexigraph/lexigraph/pkg/store"
)

// handleStream serves the progressive annotation stream over SSE. The stream
// polls the persisted job and emits diffs until the job reaches a terminal
// status or the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	if _, err := s.jobs.Load(id); err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "job not found: "+id)
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load job")
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := events.NewStream(s.jobs, id, s.pollInterval)
	stream.Run(r.Context(), func(ev events.Event) bool {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			return true // skip the event, keep the stream alive
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	})
}
