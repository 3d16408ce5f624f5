package api

import (
	"net/http"
	"strconv"

	"github.com/veilmq/veil/internal/journal"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// eventsResponse is the JSON response for GET /v1/events.
type eventsResponse struct {
	Events []journal.Record `json:"events"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventLimit)
	}

	records, err := s.journal.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list events", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if records == nil {
		records = []journal.Record{}
	}

	s.writeJSON(w, http.StatusOK, eventsResponse{Events: records})
}
