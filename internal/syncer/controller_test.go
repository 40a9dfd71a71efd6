package syncer_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/openamc/amctrack/internal/kv"
	"github.com/openamc/amctrack/internal/models"
	"github.com/openamc/amctrack/internal/remote"
	"github.com/openamc/amctrack/internal/syncer"
	"github.com/openamc/amctrack/internal/testutil/mocks"
)

const snapshotKey = "amctrack:emergency:user-1"

func newController(t *testing.T, store *mocks.MockRemoteStore, local kv.Store, clock func() time.Time) *syncer.Controller {
	t.Helper()
	tokens := &mocks.MockTokenProvider{}
	tokens.On("Token", mock.Anything).Return("tok", nil)
	return syncer.New("user-1", store, tokens, local, syncer.Options{
		Interval: time.Hour, // keep the ticker quiet during tests
		Clock:    clock,
	})
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func attempt(id string) models.AttemptRecord {
	return models.AttemptRecord{
		ProblemID:  id,
		Topic:      "algebra",
		Difficulty: 2,
		Source:     "AMC10",
		Correct:    true,
	}
}

func TestLoad_FetchesRemoteStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.TotalSolved = 42
	seed.LastDailyReset = now

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)

	c := newController(t, store, kv.NewMemory(), fixedClock(now))
	defer c.Shutdown(context.Background())

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, mgr.Snapshot().TotalSolved)
	store.AssertExpectations(t)
}

func TestLoad_CreatesRowWhenAbsent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(nil, nil)
	store.On("CreateStats", mock.Anything, "tok", "user-1", mock.Anything).Return(nil)

	c := newController(t, store, kv.NewMemory(), fixedClock(now))
	defer c.Shutdown(context.Background())

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, mgr.Snapshot().TotalSolved)
	store.AssertExpectations(t)
}

func TestLoad_RecoversFreshSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	local := kv.NewMemory()

	seed := models.NewStatsAggregate()
	seed.TotalSolved = 7
	seed.LastDailyReset = now
	snap := map[string]any{
		"stats":               seed,
		"pendingAttempts":     []models.AttemptRecord{attempt("p1")},
		"needsDailyResetSave": false,
		"timestamp":           now.Add(-time.Hour),
		"userId":              "user-1",
	}
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, local.Set(snapshotKey, string(raw)))

	store := &mocks.MockRemoteStore{}
	// The recovered queue triggers an immediate flush; no remote fetch happens.
	store.On("UpdateStats", mock.Anything, "tok", "user-1", mock.Anything).Return(nil)

	c := newController(t, store, local, fixedClock(now))
	defer c.Shutdown(context.Background())

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, mgr.Snapshot().TotalSolved)
	assert.Equal(t, 0, mgr.PendingCount(), "recovered queue flushed on load")

	_, ok, err := local.Get(snapshotKey)
	require.NoError(t, err)
	assert.False(t, ok, "snapshot is consumed read-once")
	store.AssertNotCalled(t, "FetchStats", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoad_StaleSnapshotFallsBackToRemote(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	local := kv.NewMemory()

	seed := models.NewStatsAggregate()
	seed.TotalSolved = 7
	snap := map[string]any{
		"stats":     seed,
		"timestamp": now.Add(-25 * time.Hour),
		"userId":    "user-1",
	}
	raw, _ := json.Marshal(snap)
	require.NoError(t, local.Set(snapshotKey, string(raw)))

	remoteSeed := models.NewStatsAggregate()
	remoteSeed.TotalSolved = 100
	remoteSeed.LastDailyReset = now

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(remoteSeed, nil)

	c := newController(t, store, local, fixedClock(now))
	defer c.Shutdown(context.Background())

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, mgr.Snapshot().TotalSolved, "stale snapshot is discarded")

	_, ok, _ := local.Get(snapshotKey)
	assert.False(t, ok, "stale snapshot is still consumed")
}

func TestFlush_ClearsPendingOnSuccess(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)
	store.On("UpdateStats", mock.Anything, "tok", "user-1", mock.Anything).Return(nil)

	c := newController(t, store, kv.NewMemory(), fixedClock(now))
	defer c.Shutdown(context.Background())

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)

	mgr.RecordAttempt(attempt("p1"))
	mgr.RecordAttempt(attempt("p2"))
	require.NoError(t, c.Flush(context.Background()))

	assert.Equal(t, 0, mgr.PendingCount())
	assert.False(t, mgr.HasUnsavedChanges())
	store.AssertExpectations(t)
}

func TestFlush_FailureWritesSnapshotAndKeepsQueue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now
	local := kv.NewMemory()

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)
	store.On("UpdateStats", mock.Anything, "tok", "user-1", mock.Anything).Return(errors.New("network down"))

	c := newController(t, store, local, fixedClock(now))

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)

	mgr.RecordAttempt(attempt("p1"))
	err = c.Flush(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, mgr.PendingCount(), "failed flush keeps the queue")

	raw, ok, err := local.Get(snapshotKey)
	require.NoError(t, err)
	require.True(t, ok, "failure writes an emergency snapshot")

	var snap struct {
		PendingAttempts []models.AttemptRecord `json:"pendingAttempts"`
		UserID          string                 `json:"userId"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	assert.Equal(t, "user-1", snap.UserID)
	require.Len(t, snap.PendingAttempts, 1)
	assert.Equal(t, "p1", snap.PendingAttempts[0].ProblemID)
}

func TestFlush_RetryCarriesFullCounters(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now

	var payloads []int
	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)
	store.On("UpdateStats", mock.Anything, "tok", "user-1", mock.Anything).
		Run(func(args mock.Arguments) {
			payloads = append(payloads, args.Get(3).(*models.StatsAggregate).TotalSolved)
		}).
		Return(errors.New("boom")).Once()
	store.On("UpdateStats", mock.Anything, "tok", "user-1", mock.Anything).
		Run(func(args mock.Arguments) {
			payloads = append(payloads, args.Get(3).(*models.StatsAggregate).TotalSolved)
		}).
		Return(nil).Once()

	c := newController(t, store, kv.NewMemory(), fixedClock(now))
	defer c.Shutdown(context.Background())

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)

	mgr.RecordAttempt(attempt("p1"))
	require.Error(t, c.Flush(context.Background()))
	require.NoError(t, c.Flush(context.Background()))

	// Both writes carry the same cumulative counter; the retry cannot
	// double-count.
	require.Equal(t, []int{1, 1}, payloads)
	assert.Equal(t, 0, mgr.PendingCount())
}

func TestFlush_SkippedWhileOffline(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)

	c := newController(t, store, kv.NewMemory(), fixedClock(now))

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)

	c.SetOnline(false)
	mgr.RecordAttempt(attempt("p1"))

	require.NoError(t, c.Flush(context.Background()), "offline flush is a silent no-op")
	assert.Equal(t, 1, mgr.PendingCount())
	store.AssertNotCalled(t, "UpdateStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPageHidden_OfflineWritesSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now
	local := kv.NewMemory()

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)

	c := newController(t, store, local, fixedClock(now))

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)

	c.SetOnline(false)
	mgr.RecordAttempt(attempt("p1"))
	c.PageHidden(context.Background())

	raw, ok, err := local.Get(snapshotKey)
	require.NoError(t, err)
	require.True(t, ok, "hiding the page offline must leave a snapshot behind")

	var snap struct {
		PendingAttempts []models.AttemptRecord `json:"pendingAttempts"`
		UserID          string                 `json:"userId"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	assert.Equal(t, "user-1", snap.UserID)
	require.Len(t, snap.PendingAttempts, 1)
	assert.Equal(t, "p1", snap.PendingAttempts[0].ProblemID)
	store.AssertNotCalled(t, "UpdateStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPageHidden_NothingUnsavedWritesNoSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now
	local := kv.NewMemory()

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)

	c := newController(t, store, local, fixedClock(now))
	defer c.Shutdown(context.Background())

	_, err := c.Load(context.Background())
	require.NoError(t, err)

	c.PageHidden(context.Background())

	_, ok, err := local.Get(snapshotKey)
	require.NoError(t, err)
	assert.False(t, ok, "a clean session leaves no snapshot")
}

func TestFlush_AttemptDuringFlushStaysQueued(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)

	c := newController(t, store, kv.NewMemory(), fixedClock(now))
	defer c.Shutdown(context.Background())

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)

	// p2 lands while the remote write for p1 is on the wire; clearing the
	// flushed prefix must not swallow it.
	store.On("UpdateStats", mock.Anything, "tok", "user-1", mock.Anything).
		Run(func(mock.Arguments) { mgr.RecordAttempt(attempt("p2")) }).
		Return(nil)

	mgr.RecordAttempt(attempt("p1"))
	require.NoError(t, c.Flush(context.Background()))

	assert.Equal(t, 1, mgr.PendingCount(), "the mid-flush attempt survives the clear")
	assert.True(t, mgr.HasUnsavedChanges(), "the survivor still counts as unsaved")
}

func TestFlush_AuthRejectionInvalidatesToken(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)
	store.On("UpdateStats", mock.Anything, "tok", "user-1", mock.Anything).
		Return(&remote.StatusError{Op: "update stats", Status: 401})

	tokens := &mocks.MockTokenProvider{}
	tokens.On("Token", mock.Anything).Return("tok", nil)
	tokens.On("Invalidate").Return()

	c := syncer.New("user-1", store, tokens, kv.NewMemory(), syncer.Options{
		Interval: time.Hour,
		Clock:    fixedClock(now),
	})

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)

	mgr.RecordAttempt(attempt("p1"))
	require.Error(t, c.Flush(context.Background()))

	tokens.AssertCalled(t, "Invalidate")
}

func TestFlush_NetworkErrorKeepsToken(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)
	store.On("UpdateStats", mock.Anything, "tok", "user-1", mock.Anything).
		Return(errors.New("connection reset"))

	tokens := &mocks.MockTokenProvider{}
	tokens.On("Token", mock.Anything).Return("tok", nil)

	c := syncer.New("user-1", store, tokens, kv.NewMemory(), syncer.Options{
		Interval: time.Hour,
		Clock:    fixedClock(now),
	})

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)

	mgr.RecordAttempt(attempt("p1"))
	require.Error(t, c.Flush(context.Background()))

	tokens.AssertNotCalled(t, "Invalidate")
}

func TestFlush_NothingPendingIsNoOp(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)

	c := newController(t, store, kv.NewMemory(), fixedClock(now))
	defer c.Shutdown(context.Background())

	_, err := c.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Flush(context.Background()))
	store.AssertNotCalled(t, "UpdateStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetOnline_ReconnectFlushesPending(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now

	flushed := make(chan struct{})
	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)
	store.On("UpdateStats", mock.Anything, "tok", "user-1", mock.Anything).
		Run(func(mock.Arguments) { close(flushed) }).
		Return(nil)

	c := newController(t, store, kv.NewMemory(), fixedClock(now))
	defer c.Shutdown(context.Background())

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)

	c.SetOnline(false)
	mgr.RecordAttempt(attempt("p1"))
	c.SetOnline(true)

	select {
	case <-flushed:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect did not trigger a flush")
	}
}

func TestShutdown_FailedFlushLeavesSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed := models.NewStatsAggregate()
	seed.LastDailyReset = now
	local := kv.NewMemory()

	store := &mocks.MockRemoteStore{}
	store.On("FetchStats", mock.Anything, "tok", "user-1").Return(seed, nil)
	store.On("UpdateStats", mock.Anything, "tok", "user-1", mock.Anything).Return(errors.New("down"))

	c := newController(t, store, local, fixedClock(now))

	mgr, err := c.Load(context.Background())
	require.NoError(t, err)

	mgr.RecordAttempt(attempt("p1"))
	c.Shutdown(context.Background())

	_, ok, err := local.Get(snapshotKey)
	require.NoError(t, err)
	assert.True(t, ok, "shutdown with a failed flush leaves a snapshot behind")

	mgr.RecordAttempt(attempt("p2"))
	assert.Equal(t, 1, mgr.PendingCount(), "manager is destroyed after shutdown")
}
