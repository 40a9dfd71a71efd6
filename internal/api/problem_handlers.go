package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/openamc/amctrack/internal/errors"
	"github.com/openamc/amctrack/internal/jobs"
	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/models"
)

const maxImportBytes = 8 << 20

func filterFrom(r *http.Request) models.ProblemFilter {
	q := r.URL.Query()
	return models.ProblemFilter{
		Source:        q.Get("source"),
		Topic:         q.Get("topic"),
		Year:          queryInt(r, "year", 0),
		MinDifficulty: queryFloat(r, "minDifficulty"),
		MaxDifficulty: queryFloat(r, "maxDifficulty"),
		Limit:         queryInt(r, "limit", 50),
		Offset:        queryInt(r, "offset", 0),
	}
}

func (s *Server) handleListProblems(w http.ResponseWriter, r *http.Request) {
	filter := filterFrom(r)
	list, err := s.Problems.List(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	total, err := s.Problems.Count(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"problems": list,
		"total":    total,
	})
}

func (s *Server) handleGetProblem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.Problems.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if p == nil {
		handleError(w, r, errors.NewNotFoundError("problem", id))
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleRandomProblem(w http.ResponseWriter, r *http.Request) {
	filter := filterFrom(r)
	n := queryInt(r, "count", 1)
	list, err := s.Problems.Random(r.Context(), filter, n)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if len(list) == 0 {
		handleError(w, r, errors.NewNotFoundError("problem", "no problems match the filter"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"problems": list})
}

// handleImportProblems queues a JSON problem-set import on the worker pool.
// The import runs asynchronously; the response only acknowledges the queue.
func (s *Server) handleImportProblems(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		handleError(w, r, errors.NewValidationError("body", "failed to read payload"))
		return
	}
	if len(payload) == 0 {
		handleError(w, r, errors.NewValidationError("body", "empty payload"))
		return
	}

	label := r.URL.Query().Get("label")
	if label == "" {
		label = "upload"
	}

	s.ImportPool.Submit(&jobs.ImportJob{
		Repo:    s.Problems,
		Payload: payload,
		Label:   label,
	})
	logger.FromContext(r.Context()).Info("problem import queued: label=%s, bytes=%d", label, len(payload))

	respondJSON(w, http.StatusAccepted, map[string]any{
		"queued": true,
		"label":  label,
	})
}
