package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/openamc/amctrack/internal/auth"
	"github.com/openamc/amctrack/internal/kv"
	"github.com/openamc/amctrack/internal/models"
	"github.com/openamc/amctrack/internal/services"
	"github.com/openamc/amctrack/internal/syncer"
	"github.com/openamc/amctrack/internal/testutil/mocks"
)

func exchangeServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "session-token"})
	}))
}

func seededStore(t *testing.T, users ...string) *mocks.MockRemoteStore {
	t.Helper()
	store := &mocks.MockRemoteStore{}
	for _, u := range users {
		seed := models.NewStatsAggregate()
		seed.LastDailyReset = time.Now()
		store.On("FetchStats", mock.Anything, "session-token", u).Return(seed, nil)
	}
	store.On("UpdateStats", mock.Anything, "session-token", mock.Anything, mock.Anything).Return(nil).Maybe()
	return store
}

func newService(t *testing.T, store *mocks.MockRemoteStore) *services.SessionService {
	t.Helper()
	srv := exchangeServer(t)
	t.Cleanup(srv.Close)
	return services.NewSessionService(store, kv.NewMemory(), srv.URL, syncer.Options{
		Interval: time.Hour,
	})
}

func TestSignIn_StartsSessionAndBumpsEpoch(t *testing.T) {
	svc := newService(t, seededStore(t, "alice"))
	defer svc.Shutdown(context.Background())

	assert.Equal(t, 0, svc.Epoch())

	err := svc.SignIn(context.Background(), "alice", auth.StaticIdentity("id-token"))
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Epoch())

	mgr, err := svc.Manager("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", mgr.UserID())
}

func TestSignIn_EmptyUserRejected(t *testing.T) {
	svc := newService(t, seededStore(t))
	err := svc.SignIn(context.Background(), "", auth.StaticIdentity("id-token"))
	require.Error(t, err)
}

func TestSignIn_TransfersOwnership(t *testing.T) {
	svc := newService(t, seededStore(t, "alice", "bob"))
	defer svc.Shutdown(context.Background())

	require.NoError(t, svc.SignIn(context.Background(), "alice", auth.StaticIdentity("id-token")))
	aliceMgr, err := svc.Manager("alice")
	require.NoError(t, err)

	require.NoError(t, svc.SignIn(context.Background(), "bob", auth.StaticIdentity("id-token")))
	assert.Equal(t, 2, svc.Epoch())

	_, err = svc.Manager("alice")
	require.Error(t, err, "previous owner lost the session")

	aliceMgr.RecordAttempt(models.AttemptRecord{ProblemID: "p1", Correct: true})
	assert.Equal(t, 0, aliceMgr.PendingCount(), "old manager is destroyed on handoff")

	bobMgr, err := svc.Manager("bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", bobMgr.UserID())
}

func TestManager_EmptyUserMeansCurrentSession(t *testing.T) {
	svc := newService(t, seededStore(t, "alice"))
	defer svc.Shutdown(context.Background())

	require.NoError(t, svc.SignIn(context.Background(), "alice", auth.StaticIdentity("id-token")))

	mgr, err := svc.Manager("")
	require.NoError(t, err)
	assert.Equal(t, "alice", mgr.UserID())
}

func TestManager_NoSession(t *testing.T) {
	svc := newService(t, seededStore(t))
	_, err := svc.Manager("alice")
	require.Error(t, err)
}

func TestRecordAttempt_AppliesToCurrentSession(t *testing.T) {
	svc := newService(t, seededStore(t, "alice"))
	defer svc.Shutdown(context.Background())

	require.NoError(t, svc.SignIn(context.Background(), "alice", auth.StaticIdentity("id-token")))

	err := svc.RecordAttempt("alice", models.AttemptRecord{
		ProblemID: "p1", Topic: "algebra", Difficulty: 2, Source: "AMC10", Correct: true,
	})
	require.NoError(t, err)

	mgr, err := svc.Manager("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, mgr.Snapshot().TotalSolved)

	err = svc.RecordAttempt("bob", models.AttemptRecord{ProblemID: "p2"})
	require.Error(t, err, "attempts for another user are rejected")
}

func TestSignOut_EndsSession(t *testing.T) {
	svc := newService(t, seededStore(t, "alice"))

	require.NoError(t, svc.SignIn(context.Background(), "alice", auth.StaticIdentity("id-token")))
	require.NoError(t, svc.SignOut(context.Background()))

	_, err := svc.Manager("alice")
	require.Error(t, err)

	require.Error(t, svc.SignOut(context.Background()), "second sign-out has no session")
}

func TestBookmarkService_RoundTrip(t *testing.T) {
	svc := newService(t, seededStore(t, "alice"))
	defer svc.Shutdown(context.Background())
	bm := services.NewBookmarkService(svc)

	require.NoError(t, svc.SignIn(context.Background(), "alice", auth.StaticIdentity("id-token")))

	require.NoError(t, bm.AddBookmark("alice", "p1"))
	require.NoError(t, bm.AddBookmark("alice", "p2"))
	require.Error(t, bm.AddBookmark("alice", ""))

	ids, err := bm.Bookmarks("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)

	require.NoError(t, bm.RemoveBookmark("alice", "p1"))
	ids, err = bm.Bookmarks("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, ids)

	mgr, err := svc.Manager("alice")
	require.NoError(t, err)
	assert.True(t, mgr.HasUnsavedChanges(), "bookmark edits ride the next flush")
}

func TestBookmarkService_Collections(t *testing.T) {
	svc := newService(t, seededStore(t, "alice"))
	defer svc.Shutdown(context.Background())
	bm := services.NewBookmarkService(svc)

	require.NoError(t, svc.SignIn(context.Background(), "alice", auth.StaticIdentity("id-token")))

	require.NoError(t, bm.CreateCollection("alice", "review"))
	require.Error(t, bm.CreateCollection("alice", "review"), "duplicate collection is rejected")

	require.NoError(t, bm.AddToCollection("alice", "review", "p1"))
	require.NoError(t, bm.AddToCollection("alice", "review", "p1"), "duplicate member is a no-op")
	require.Error(t, bm.AddToCollection("alice", "missing", "p1"))

	cols, err := bm.Collections("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, cols["review"])

	require.NoError(t, bm.RemoveFromCollection("alice", "review", "p1"))
	require.NoError(t, bm.DeleteCollection("alice", "review"))
	require.Error(t, bm.DeleteCollection("alice", "review"))
}
