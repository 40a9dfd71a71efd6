package api

import (
	"sync"

	"github.com/openamc/amctrack/internal/auth"
	"github.com/openamc/amctrack/internal/exam"
	"github.com/openamc/amctrack/internal/problems"
	"github.com/openamc/amctrack/internal/services"
	"github.com/openamc/amctrack/internal/worker"
)

// Server holds the HTTP API dependencies.
type Server struct {
	Sessions   *services.SessionService
	Bookmarks  *services.BookmarkService
	Problems   problems.Repository
	Exams      *exam.Runner
	ImportPool *worker.Pool

	mu       sync.Mutex
	identity *auth.TokenHolder
}

func (s *Server) setIdentity(h *auth.TokenHolder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = h
}

func (s *Server) currentIdentity() *auth.TokenHolder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}
