package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", s.handleSignIn)
		r.Delete("/session", s.handleSignOut)
		r.Put("/session/token", s.handleRefreshToken)
		r.Put("/session/online", s.handleSetOnline)
		r.Post("/session/hidden", s.handlePageHidden)

		r.Post("/attempts", s.handleRecordAttempt)
		r.Post("/flush", s.handleFlush)

		r.Get("/stats/summary", s.handleStatsSummary)
		r.Get("/stats/topics", s.handleTopTopics)
		r.Get("/stats/breakdown", s.handleTopicBreakdown)
		r.Get("/stats/difficulty", s.handleDifficultyDistribution)
		r.Get("/stats/sources", s.handleSourceAnalysis)
		r.Get("/stats/daily", s.handlePast30Days)
		r.Get("/stats/insights", s.handleInsights)

		r.Get("/bookmarks", s.handleListBookmarks)
		r.Post("/bookmarks", s.handleAddBookmark)
		r.Delete("/bookmarks/{id}", s.handleRemoveBookmark)

		r.Get("/collections", s.handleListCollections)
		r.Post("/collections", s.handleCreateCollection)
		r.Delete("/collections/{name}", s.handleDeleteCollection)
		r.Post("/collections/{name}/problems", s.handleAddToCollection)
		r.Delete("/collections/{name}/problems/{id}", s.handleRemoveFromCollection)

		r.Get("/problems", s.handleListProblems)
		r.Get("/problems/random", s.handleRandomProblem)
		r.Get("/problems/{id}", s.handleGetProblem)
		r.Post("/problems/import", s.handleImportProblems)

		r.Post("/exam", s.handleStartExam)
		r.Get("/exam", s.handleCurrentExam)
		r.Post("/exam/answers", s.handleExamAnswer)
		r.Post("/exam/finish", s.handleFinishExam)
	})

	return r
}
