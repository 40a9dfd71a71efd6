package api

import (
	"net/http"

	"github.com/openamc/amctrack/internal/auth"
	"github.com/openamc/amctrack/internal/errors"
	"github.com/openamc/amctrack/internal/logger"
)

type signInRequest struct {
	UserID        string `json:"userId"`
	IdentityToken string `json:"identityToken"`
}

// handleSignIn starts an analytics session for the given user. The identity
// token comes from the client's auth provider and is exchanged server-side
// for a sync session token.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.UserID == "" {
		handleError(w, r, errors.NewValidationError("userId", "must not be empty"))
		return
	}
	if req.IdentityToken == "" {
		handleError(w, r, errors.NewValidationError("identityToken", "must not be empty"))
		return
	}

	holder := auth.NewTokenHolder(req.IdentityToken)
	if err := s.Sessions.SignIn(r.Context(), req.UserID, holder); err != nil {
		handleError(w, r, err)
		return
	}
	s.setIdentity(holder)

	respondJSON(w, http.StatusOK, map[string]any{
		"userId": req.UserID,
		"epoch":  s.Sessions.Epoch(),
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.SignOut(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	s.setIdentity(nil)
	respondJSON(w, http.StatusNoContent, nil)
}

type refreshTokenRequest struct {
	IdentityToken string `json:"identityToken"`
}

// handleRefreshToken replaces the held identity token with a fresh one.
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.IdentityToken == "" {
		handleError(w, r, errors.NewValidationError("identityToken", "must not be empty"))
		return
	}

	holder := s.currentIdentity()
	if holder == nil {
		handleError(w, r, errors.NewNotFoundError("session", "none active"))
		return
	}
	holder.Set(req.IdentityToken)
	respondJSON(w, http.StatusNoContent, nil)
}

type setOnlineRequest struct {
	Online bool `json:"online"`
}

// handleSetOnline forwards the client's connectivity state to the sync
// controller. Going online triggers a catch-up flush when changes are pending.
func (s *Server) handleSetOnline(w http.ResponseWriter, r *http.Request) {
	var req setOnlineRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	s.Sessions.SetOnline(req.Online)
	logger.FromContext(r.Context()).Debug("connectivity set: online=%v", req.Online)
	respondJSON(w, http.StatusNoContent, nil)
}

// handlePageHidden mirrors the client's visibilitychange event: the session
// writes an emergency snapshot so a killed tab loses nothing.
func (s *Server) handlePageHidden(w http.ResponseWriter, r *http.Request) {
	s.Sessions.PageHidden(r.Context())
	respondJSON(w, http.StatusNoContent, nil)
}
