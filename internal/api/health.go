package api

import "net/http"

// healthResponse is the JSON response for GET /healthz. Beyond liveness it
// reports how much background work the daemon is carrying, which is the
// first thing an operator wants to see during a slow shutdown.
type healthResponse struct {
	Status      string `json:"status"`
	Runtime     string `json:"runtime"`
	ActiveTasks int    `json:"active_tasks"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Runtime:     s.rt.Name(),
		ActiveTasks: s.ctrl.Len(),
	})
}
