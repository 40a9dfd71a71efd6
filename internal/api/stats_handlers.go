package api

import (
	"net/http"
)

// handleStatsSummary returns the full aggregate for the session user.
func (s *Server) handleStatsSummary(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.Sessions.Manager(userIDFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mgr.Snapshot())
}

func (s *Server) handleTopTopics(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.Sessions.Manager(userIDFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	limit := queryInt(r, "limit", 5)
	respondJSON(w, http.StatusOK, mgr.TopTopics(limit))
}

func (s *Server) handleTopicBreakdown(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.Sessions.Manager(userIDFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mgr.TopicBreakdown())
}

func (s *Server) handleDifficultyDistribution(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.Sessions.Manager(userIDFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mgr.DifficultyDistribution())
}

func (s *Server) handleSourceAnalysis(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.Sessions.Manager(userIDFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mgr.SourceAnalysis())
}

func (s *Server) handlePast30Days(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.Sessions.Manager(userIDFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mgr.Past30Days())
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.Sessions.Manager(userIDFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mgr.Insights())
}
