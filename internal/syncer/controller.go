// Package syncer decides when the analytics aggregate is persisted to the
// remote store, tolerates offline and failure conditions through a local
// emergency snapshot, and recovers unsynced work on the next session.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/openamc/amctrack/internal/analytics"
	"github.com/openamc/amctrack/internal/errors"
	"github.com/openamc/amctrack/internal/kv"
	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/remote"
)

// TokenProvider supplies backend session tokens for remote store calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Status is the periodic UI-facing view of the sync state.
type Status struct {
	PendingCount   int
	Online         bool
	LastFlushAt    time.Time
	LastFlushError string
}

// Options configures a Controller.
type Options struct {
	// Interval between periodic status refreshes. Defaults to 10s.
	Interval time.Duration
	// Threshold is the pending-attempt count that triggers an auto-flush.
	// Defaults to 5.
	Threshold int
	// SnapshotMaxAge is the freshness window for emergency-snapshot recovery.
	// Defaults to 24h.
	SnapshotMaxAge time.Duration
	// OnStatus, when set, receives the periodic status refresh.
	OnStatus func(Status)
	// Clock overrides the time source.
	Clock func() time.Time
}

// Controller wraps one analytics.Manager with flush timing, networking and
// fallback policy. Construct with New, then call Load before anything else.
type Controller struct {
	userID string
	store  remote.Store
	tokens TokenProvider
	local  kv.Store
	opts   Options
	log    *logger.Logger

	mu          sync.Mutex
	mgr         *analytics.Manager
	online      bool
	destroyed   bool
	flushing    bool
	lastFlushAt time.Time
	lastFlushMsg string

	stopTicker chan struct{}
	tickerDone chan struct{}
	now        func() time.Time
}

// New creates a Controller for the given user. The manager is created by Load.
func New(userID string, store remote.Store, tokens TokenProvider, local kv.Store, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 5
	}
	if opts.SnapshotMaxAge <= 0 {
		opts.SnapshotMaxAge = 24 * time.Hour
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Controller{
		userID: userID,
		store:  store,
		tokens: tokens,
		local:  local,
		opts:   opts,
		online: true,
		now:    now,
		log:    logger.Default().WithPrefix("syncer").WithField("user_id", userID),
	}
}

// Load initializes the manager for this user. A fresh emergency snapshot for
// the same user takes priority over the remote store: its aggregate and queue
// are re-injected and an immediate flush is attempted (failures swallowed).
// Otherwise the aggregate is fetched remotely, creating a zero row when none
// exists.
func (c *Controller) Load(ctx context.Context) (*analytics.Manager, error) {
	log := logger.FromContext(ctx).WithPrefix("syncer").WithField("user_id", c.userID)

	var mgrOpts []analytics.Option
	if c.opts.Clock != nil {
		mgrOpts = append(mgrOpts, analytics.WithClock(c.opts.Clock))
	}

	if snap := readSnapshot(c.local, c.userID, log); snap != nil {
		age := c.now().Sub(snap.Timestamp)
		if snap.UserID == c.userID && age >= 0 && age < c.opts.SnapshotMaxAge {
			log.Info("recovering from emergency snapshot: age=%v, pending=%d", age, len(snap.PendingAttempts))
			mgr := analytics.New(c.userID, snap.Stats, mgrOpts...)
			mgr.RestorePending(snap.PendingAttempts, snap.NeedsDailyResetSave)
			c.adopt(mgr)
			// Recovered data stays queued if this flush fails; the next
			// threshold or periodic opportunity retries it.
			if err := c.Flush(ctx); err != nil {
				log.Warn("post-recovery flush failed, data remains queued: %v", err)
			}
			c.startTicker()
			return mgr, nil
		}
		log.Info("discarding emergency snapshot: user=%s, age=%v", snap.UserID, age)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, errors.NewAuthError("token exchange failed during load", err)
	}

	stats, err := c.store.FetchStats(ctx, token, c.userID)
	if err != nil {
		c.invalidateOnAuthError(err)
		return nil, errors.NewRemoteError("failed to load stats", err)
	}
	if stats == nil {
		log.Info("no remote stats row, creating")
		mgr := analytics.New(c.userID, nil, mgrOpts...)
		if err := c.store.CreateStats(ctx, token, c.userID, mgr.Snapshot()); err != nil {
			return nil, errors.NewRemoteError("failed to create stats row", err)
		}
		c.adopt(mgr)
		c.startTicker()
		return mgr, nil
	}

	mgr := analytics.New(c.userID, stats, mgrOpts...)
	c.adopt(mgr)
	c.startTicker()
	return mgr, nil
}

func (c *Controller) adopt(mgr *analytics.Manager) {
	c.mu.Lock()
	c.mgr = mgr
	c.mu.Unlock()
	mgr.SetSnapshotHook(c.snapshotNow)
}

// Manager returns the managed analytics manager, or nil before Load.
func (c *Controller) Manager() *analytics.Manager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mgr
}

// NotifyRecorded is called after an attempt is recorded; it triggers an
// asynchronous flush when the pending queue reaches the threshold.
func (c *Controller) NotifyRecorded() {
	c.mu.Lock()
	mgr := c.mgr
	c.mu.Unlock()
	if mgr == nil {
		return
	}
	if mgr.PendingCount() >= c.opts.Threshold {
		go func() {
			if err := c.Flush(context.Background()); err != nil {
				c.log.Warn("threshold flush failed: %v", err)
			}
		}()
	}
}

// SetOnline records a connectivity transition. Regaining connectivity with
// unsaved changes triggers a flush attempt.
func (c *Controller) SetOnline(online bool) {
	c.mu.Lock()
	wasOnline := c.online
	c.online = online
	mgr := c.mgr
	c.mu.Unlock()

	c.log.Info("connectivity changed: online=%v", online)
	if online && !wasOnline && mgr != nil && mgr.HasUnsavedChanges() {
		go func() {
			if err := c.Flush(context.Background()); err != nil {
				c.log.Warn("reconnect flush failed: %v", err)
			}
		}()
	}
}

// PageHidden handles the host signaling that the page is being hidden: a
// best-effort synchronous flush, falling back to the emergency snapshot for
// anything still unsaved. A flush that never ran (offline, in flight) leaves
// unsaved changes behind just like a failed one; the process may be killed
// right after this call, so either way the snapshot must land.
func (c *Controller) PageHidden(ctx context.Context) {
	if err := c.Flush(ctx); err != nil {
		c.log.Warn("page-hide flush failed: %v", err)
	}
	c.mu.Lock()
	mgr := c.mgr
	c.mu.Unlock()
	if mgr != nil && mgr.HasUnsavedChanges() {
		c.log.Info("page hidden with unsaved changes, writing emergency snapshot")
		c.snapshotNow()
	}
}

// Flush pushes the current aggregate and queue to the remote store. It is a
// no-op when there is nothing pending, while offline, after Shutdown, or when
// another flush is already in flight. On failure the emergency snapshot is
// written before the error is returned; in-memory state is never lost.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	mgr := c.mgr
	if mgr == nil || c.destroyed {
		c.mu.Unlock()
		return nil
	}
	if !c.online {
		c.mu.Unlock()
		c.log.Debug("offline, skipping flush")
		return nil
	}
	if !mgr.HasUnsavedChanges() {
		c.mu.Unlock()
		return nil
	}
	if c.flushing {
		c.mu.Unlock()
		c.log.Debug("flush already in flight, skipping")
		return nil
	}
	c.flushing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.flushing = false
		c.mu.Unlock()
	}()

	log := logger.FromContext(ctx).WithPrefix("syncer").WithField("user_id", c.userID)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		log.Error("token exchange failed: %v", err)
		c.snapshotNow()
		c.noteFlush(err)
		return errors.NewAuthError("token exchange failed", err)
	}

	// The queue length must be captured before the counters: an attempt
	// recorded between the two calls then lands in the payload but not in
	// flushedCount, so ClearFlushed leaves it queued for the next flush.
	// The reverse order would clear it without it ever reaching the remote.
	flushedCount := mgr.PendingCount()
	stats := mgr.Snapshot()

	start := time.Now()
	if err := c.store.UpdateStats(ctx, token, c.userID, stats); err != nil {
		log.Error("flush failed after %v: %v", time.Since(start), err)
		c.invalidateOnAuthError(err)
		c.snapshotNow()
		c.noteFlush(err)
		return errors.NewRemoteError("flush failed", err)
	}

	mgr.ClearFlushed(flushedCount)
	c.noteFlush(nil)
	log.Info("flushed %d attempts in %v", flushedCount, time.Since(start))
	return nil
}

// invalidateOnAuthError drops the cached session token after the remote
// store rejected it, so the next call re-exchanges instead of replaying a
// dead token.
func (c *Controller) invalidateOnAuthError(err error) {
	if !remote.IsAuthError(err) {
		return
	}
	if inv, ok := c.tokens.(interface{ Invalidate() }); ok {
		c.log.Info("session token rejected by remote store, invalidating cache")
		inv.Invalidate()
	}
}

func (c *Controller) noteFlush(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastFlushAt = c.now()
	if err != nil {
		c.lastFlushMsg = err.Error()
	} else {
		c.lastFlushMsg = ""
	}
}

// snapshotNow serializes the current aggregate and queue into the local store.
func (c *Controller) snapshotNow() {
	c.mu.Lock()
	mgr := c.mgr
	c.mu.Unlock()
	if mgr == nil {
		return
	}
	writeSnapshot(c.local, &emergencySnapshot{
		Stats:               mgr.Snapshot(),
		PendingAttempts:     mgr.PendingAttempts(),
		NeedsDailyResetSave: mgr.NeedsDailyResetSave(),
		Timestamp:           c.now(),
		UserID:              c.userID,
	}, c.log)
}

// startTicker begins the periodic status refresh. The tick only re-reads
// state for the UI; it does not force a flush.
func (c *Controller) startTicker() {
	c.mu.Lock()
	if c.stopTicker != nil || c.destroyed {
		c.mu.Unlock()
		return
	}
	c.stopTicker = make(chan struct{})
	c.tickerDone = make(chan struct{})
	stop, done := c.stopTicker, c.tickerDone
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.tick()
			}
		}
	}()
}

func (c *Controller) tick() {
	// Timer callbacks must never panic outward.
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("status tick panicked: %v", r)
		}
	}()

	c.mu.Lock()
	mgr := c.mgr
	online := c.online
	lastAt, lastMsg := c.lastFlushAt, c.lastFlushMsg
	onStatus := c.opts.OnStatus
	c.mu.Unlock()

	if mgr == nil || onStatus == nil {
		return
	}
	onStatus(Status{
		PendingCount:   mgr.PendingCount(),
		Online:         online,
		LastFlushAt:    lastAt,
		LastFlushError: lastMsg,
	})
}

// Shutdown stops the ticker and attempts a final flush; if that fails, the
// emergency snapshot is written instead. The manager is destroyed afterwards.
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	stop, done := c.stopTicker, c.tickerDone
	c.stopTicker = nil
	c.tickerDone = nil
	mgr := c.mgr
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	if err := c.Flush(ctx); err != nil {
		c.log.Warn("shutdown flush failed, snapshot written: %v", err)
	}

	c.mu.Lock()
	c.destroyed = true
	c.mu.Unlock()

	if mgr != nil {
		mgr.Destroy()
	}
	c.log.Info("sync controller shut down")
}
