package api

import "net/http"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"importQueue":  s.ImportPool.QueueSize(),
		"sessionEpoch": s.Sessions.Epoch(),
	})
}
