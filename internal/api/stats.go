package api

import (
	"net/http"
)

// statsResponse is the JSON response for GET /v1/stats.
type statsResponse struct {
	Running     int            `json:"running"`
	Total       int            `json:"total"`
	CountByKind map[string]int `json:"by_kind"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.journal.GetStats(r.Context())
	if err != nil {
		s.logger.Error("get journal stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		Running:     s.ctrl.Len(),
		Total:       stats.Total,
		CountByKind: stats.CountByKind,
	})
}
