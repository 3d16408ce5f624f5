package api

import (
	"net/http"

	"github.com/veilmq/veil/internal/task"
)

// tasksResponse is the JSON response for GET /v1/tasks.
type tasksResponse struct {
	Count int         `json:"count"`
	Tasks []task.Info `json:"tasks"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	infos := s.ctrl.Running()
	s.writeJSON(w, http.StatusOK, tasksResponse{
		Count: len(infos),
		Tasks: infos,
	})
}

// runtimeResponse is the JSON response for GET /v1/runtime.
type runtimeResponse struct {
	Name   string `json:"name"`
	Active int    `json:"active"`
}

func (s *Server) handleRuntimeStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, runtimeResponse{
		Name:   s.rt.Name(),
		Active: s.rt.Active(),
	})
}
