package api

import (
	"net/http"
	"time"

	"github.com/openamc/amctrack/internal/errors"
	"github.com/openamc/amctrack/internal/models"
)

type startExamRequest struct {
	Source      string `json:"source"`
	Topic       string `json:"topic"`
	NumProblems int    `json:"numProblems"`
	DurationMin int    `json:"durationMinutes"`
}

func (s *Server) handleStartExam(w http.ResponseWriter, r *http.Request) {
	var req startExamRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	userID, err := s.resolveUser(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	exam, err := s.Exams.Start(r.Context(), userID, models.ExamConfig{
		Source:      req.Source,
		Topic:       req.Topic,
		NumProblems: req.NumProblems,
		Duration:    time.Duration(req.DurationMin) * time.Minute,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, exam)
}

func (s *Server) handleCurrentExam(w http.ResponseWriter, r *http.Request) {
	userID, err := s.resolveUser(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	exam := s.Exams.Current(userID)
	if exam == nil {
		handleError(w, r, errors.NewNotFoundError("exam session", userID))
		return
	}
	respondJSON(w, http.StatusOK, exam)
}

type examAnswerRequest struct {
	ProblemID string `json:"problemId"`
	Answer    string `json:"answer"`
}

func (s *Server) handleExamAnswer(w http.ResponseWriter, r *http.Request) {
	var req examAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	userID, err := s.resolveUser(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	exam, err := s.Exams.Answer(r.Context(), userID, req.ProblemID, req.Answer)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"examId":   exam.ID,
		"answered": len(exam.Answers),
	})
}

func (s *Server) handleFinishExam(w http.ResponseWriter, r *http.Request) {
	userID, err := s.resolveUser(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	exam, err := s.Exams.Finish(r.Context(), userID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, exam)
}

// resolveUser maps the request to a concrete session user id. Exams are keyed
// by user, so the blank "current session" shorthand is resolved here.
func (s *Server) resolveUser(r *http.Request) (string, error) {
	mgr, err := s.Sessions.Manager(userIDFrom(r))
	if err != nil {
		return "", err
	}
	return mgr.UserID(), nil
}
