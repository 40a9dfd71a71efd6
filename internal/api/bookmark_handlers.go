package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Bookmarks.Bookmarks(userIDFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"bookmarks": ids})
}

type bookmarkRequest struct {
	ProblemID string `json:"problemId"`
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Bookmarks.AddBookmark(userIDFrom(r), req.ProblemID); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"problemId": req.ProblemID})
}

func (s *Server) handleRemoveBookmark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Bookmarks.RemoveBookmark(userIDFrom(r), id); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.Bookmarks.Collections(userIDFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"collections": collections})
}

type collectionRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Bookmarks.CreateCollection(userIDFrom(r), req.Name); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"name": req.Name})
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.Bookmarks.DeleteCollection(userIDFrom(r), name); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAddToCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req bookmarkRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Bookmarks.AddToCollection(userIDFrom(r), name, req.ProblemID); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"name": name, "problemId": req.ProblemID})
}

func (s *Server) handleRemoveFromCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id := chi.URLParam(r, "id")
	if err := s.Bookmarks.RemoveFromCollection(userIDFrom(r), name, id); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
