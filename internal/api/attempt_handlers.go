package api

import (
	"net/http"
	"time"

	"github.com/openamc/amctrack/internal/errors"
	"github.com/openamc/amctrack/internal/models"
)

type recordAttemptRequest struct {
	ProblemID    string  `json:"problemId"`
	Topic        string  `json:"topic"`
	Difficulty   float64 `json:"difficulty"`
	Source       string  `json:"source"`
	Correct      bool    `json:"correct"`
	TimeSpentSec float64 `json:"timeSpentSec"`
	Answer       string  `json:"answer"`
}

// handleRecordAttempt applies one problem attempt to the session's analytics
// state. The attempt is timestamped server-side.
func (s *Server) handleRecordAttempt(w http.ResponseWriter, r *http.Request) {
	var req recordAttemptRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.ProblemID == "" {
		handleError(w, r, errors.NewValidationError("problemId", "must not be empty"))
		return
	}
	if req.TimeSpentSec < 0 {
		handleError(w, r, errors.NewValidationError("timeSpentSec", "must not be negative"))
		return
	}

	err := s.Sessions.RecordAttempt(userIDFrom(r), models.AttemptRecord{
		ProblemID:    req.ProblemID,
		Topic:        req.Topic,
		Difficulty:   req.Difficulty,
		Source:       req.Source,
		Correct:      req.Correct,
		TimeSpentSec: req.TimeSpentSec,
		Answer:       req.Answer,
		Timestamp:    time.Now(),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	mgr, err := s.Sessions.Manager(userIDFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	stats := mgr.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"totalProblemsSolved": stats.TotalSolved,
		"dailyProblemsSolved": stats.DailySolved,
		"totalXP":             stats.TotalXP,
		"currentStreak":       stats.CurrentStreak,
		"pendingAttempts":     mgr.PendingCount(),
	})
}

// handleFlush forces a sync of the session's pending state.
func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Flush(r.Context(), userIDFrom(r)); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
