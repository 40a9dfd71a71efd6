package services

import (
	"context"
	"sync"

	"github.com/openamc/amctrack/internal/analytics"
	"github.com/openamc/amctrack/internal/auth"
	"github.com/openamc/amctrack/internal/errors"
	"github.com/openamc/amctrack/internal/kv"
	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/models"
	"github.com/openamc/amctrack/internal/remote"
	"github.com/openamc/amctrack/internal/syncer"
)

// SessionService owns the analytics manager/controller pair for the currently
// authenticated user. Ownership transfers explicitly: signing in destroys the
// previous owner, bumps the session epoch, and re-arms the daily-reset latch,
// so "this process run" and "this authenticated session" never blur.
type SessionService struct {
	store       remote.Store
	local       kv.Store
	exchangeURL string
	syncOpts    syncer.Options
	log         *logger.Logger

	mu      sync.Mutex
	epoch   int
	current *ownedSession
}

type ownedSession struct {
	userID string
	epoch  int
	mgr    *analytics.Manager
	ctrl   *syncer.Controller
}

// NewSessionService creates the service. No session exists until SignIn.
func NewSessionService(store remote.Store, local kv.Store, exchangeURL string, syncOpts syncer.Options) *SessionService {
	return &SessionService{
		store:       store,
		local:       local,
		exchangeURL: exchangeURL,
		syncOpts:    syncOpts,
		log:         logger.Default().WithPrefix("session"),
	}
}

// SignIn makes userID the owner of the analytics state. Any previous session
// is shut down first (final flush or emergency snapshot). The new manager is
// loaded snapshot-first, then the daily counter check runs once.
func (s *SessionService) SignIn(ctx context.Context, userID string, identity auth.IdentityProvider) error {
	log := logger.FromContext(ctx).WithPrefix("session").WithField("user_id", userID)

	if userID == "" {
		return errors.NewValidationError("userId", "must not be empty")
	}

	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	if prev != nil {
		log.Info("handing off session from user %s", prev.userID)
		prev.ctrl.Shutdown(ctx)
	}

	tokens := auth.NewTokenSource(s.exchangeURL, identity)
	ctrl := syncer.New(userID, s.store, tokens, s.local, s.syncOpts)
	mgr, err := ctrl.Load(ctx)
	if err != nil {
		log.Error("failed to load analytics state: %v", err)
		return err
	}

	// New owner, new session: the latch is armed and fires exactly once.
	mgr.ResetDailyProcessedFlag()
	if mgr.CheckAndResetDaily() {
		log.Info("daily counter reset for new session")
	}

	s.mu.Lock()
	s.epoch++
	s.current = &ownedSession{userID: userID, epoch: s.epoch, mgr: mgr, ctrl: ctrl}
	epoch := s.epoch
	s.mu.Unlock()

	log.Info("session started: epoch=%d", epoch)
	return nil
}

// SignOut shuts down the current session, if any.
func (s *SessionService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	cur := s.current
	s.current = nil
	s.mu.Unlock()

	if cur == nil {
		return errors.NewNotFoundError("session", "none active")
	}
	cur.ctrl.Shutdown(ctx)
	s.log.Info("session ended: user_id=%s, epoch=%d", cur.userID, cur.epoch)
	return nil
}

// Epoch returns the current session epoch (0 before the first sign-in).
func (s *SessionService) Epoch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// session returns the active session owned by userID.
func (s *SessionService) session(userID string) (*ownedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, errors.NewNotFoundError("session", "none active")
	}
	if userID != "" && s.current.userID != userID {
		return nil, errors.NewValidationError("userId", "session belongs to a different user")
	}
	return s.current, nil
}

// Manager returns the analytics manager for userID's active session.
func (s *SessionService) Manager(userID string) (*analytics.Manager, error) {
	cur, err := s.session(userID)
	if err != nil {
		return nil, err
	}
	return cur.mgr, nil
}

// RecordAttempt applies one attempt for userID and kicks the threshold flush.
func (s *SessionService) RecordAttempt(userID string, a models.AttemptRecord) error {
	cur, err := s.session(userID)
	if err != nil {
		return err
	}
	cur.mgr.RecordAttempt(a)
	cur.ctrl.NotifyRecorded()
	return nil
}

// Flush forces a sync of the active session.
func (s *SessionService) Flush(ctx context.Context, userID string) error {
	cur, err := s.session(userID)
	if err != nil {
		return err
	}
	return cur.ctrl.Flush(ctx)
}

// SetOnline forwards a connectivity transition to the active session.
func (s *SessionService) SetOnline(online bool) {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		cur.ctrl.SetOnline(online)
	}
}

// PageHidden forwards a visibility change to the active session so it can
// take an emergency snapshot.
func (s *SessionService) PageHidden(ctx context.Context) {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		cur.ctrl.PageHidden(ctx)
	}
}

// Shutdown tears down the active session, if any. Used on process exit.
func (s *SessionService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	cur := s.current
	s.current = nil
	s.mu.Unlock()
	if cur != nil {
		cur.ctrl.Shutdown(ctx)
	}
}
