package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/openamc/amctrack/internal/kv"
	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/models"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	store := kv.NewMemory()
	log := logger.New()

	stats := models.NewStatsAggregate()
	stats.TotalSolved = 5
	snap := &emergencySnapshot{
		Stats:               stats,
		PendingAttempts:     []models.AttemptRecord{{ProblemID: "p1", Correct: true}},
		NeedsDailyResetSave: true,
		Timestamp:           time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		UserID:              "user-1",
	}

	writeSnapshot(store, snap, log)

	got := readSnapshot(store, "user-1", log)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.Stats.TotalSolved)
	require.Len(t, got.PendingAttempts, 1)
	assert.Equal(t, "p1", got.PendingAttempts[0].ProblemID)
	assert.True(t, got.NeedsDailyResetSave)
	assert.Equal(t, "user-1", got.UserID)
}

func TestSnapshot_ReadOnceDeletesKey(t *testing.T) {
	store := kv.NewMemory()
	log := logger.New()

	writeSnapshot(store, &emergencySnapshot{
		Stats:  models.NewStatsAggregate(),
		UserID: "user-1",
	}, log)

	require.NotNil(t, readSnapshot(store, "user-1", log))
	assert.Nil(t, readSnapshot(store, "user-1", log), "second read finds nothing")
}

func TestSnapshot_MalformedIsConsumedAsAbsent(t *testing.T) {
	store := kv.NewMemory()
	log := logger.New()

	require.NoError(t, store.Set(snapshotKey("user-1"), "{not json"))

	assert.Nil(t, readSnapshot(store, "user-1", log))

	_, ok, err := store.Get(snapshotKey("user-1"))
	require.NoError(t, err)
	assert.False(t, ok, "malformed snapshot is still deleted")
}

func TestSnapshot_MissingStatsDiscarded(t *testing.T) {
	store := kv.NewMemory()
	log := logger.New()

	require.NoError(t, store.Set(snapshotKey("user-1"), `{"userId":"user-1"}`))
	assert.Nil(t, readSnapshot(store, "user-1", log))
}

func TestSnapshot_AbsentKey(t *testing.T) {
	store := kv.NewMemory()
	assert.Nil(t, readSnapshot(store, "user-1", logger.New()))
}

func TestSnapshot_KeyIsNamespacedPerUser(t *testing.T) {
	assert.Equal(t, "amctrack:emergency:user-1", snapshotKey("user-1"))
}
