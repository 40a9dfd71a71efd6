package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/openamc/amctrack/internal/models"
)

func TestEncodeRow_DateFormats(t *testing.T) {
	s := models.NewStatsAggregate()
	s.LastSolvedAt = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	s.LastDailyReset = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	row, err := encodeRow("user-1", s)
	require.NoError(t, err)

	require.NotNil(t, row.LastSolvedAt)
	assert.Equal(t, "2026-03-10T14:30:00Z", *row.LastSolvedAt, "point-in-time field uses RFC3339")
	require.NotNil(t, row.LastDailyReset)
	assert.Equal(t, "2026-03-10", *row.LastDailyReset, "reset field is date-only")
}

func TestEncodeRow_ZeroDatesOmitted(t *testing.T) {
	row, err := encodeRow("user-1", models.NewStatsAggregate())
	require.NoError(t, err)

	assert.Nil(t, row.LastSolvedAt)
	assert.Nil(t, row.LastDailyReset)
	assert.Equal(t, "[]", row.Bookmarks)
}

func TestDecodeRow_UnparseableDatesTreatedAsAbsent(t *testing.T) {
	bad := "not-a-date"
	row := &statsRow{
		LastSolvedAt:   &bad,
		LastDailyReset: &bad,
		Bookmarks:      "[]",
	}

	s, err := decodeRow(row)
	require.NoError(t, err)
	assert.True(t, s.LastSolvedAt.IsZero())
	assert.True(t, s.LastDailyReset.IsZero())
}

func TestDecodeRow_NilMapsInitialized(t *testing.T) {
	s, err := decodeRow(&statsRow{})
	require.NoError(t, err)

	assert.NotNil(t, s.ByTopic)
	assert.NotNil(t, s.ByDifficulty)
	assert.NotNil(t, s.TimingByDate)
	assert.NotNil(t, s.Collections)
}

func TestRow_RoundTrip(t *testing.T) {
	s := models.NewStatsAggregate()
	s.TotalSolved = 12
	s.TotalAttempts = 20
	s.AverageAccuracy = 60
	s.TotalXP = 350
	s.CurrentStreak = 3
	s.LastSolvedAt = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	s.ByTopic["algebra"] = &models.TopicStats{Solved: 12, Attempts: 20, Accuracy: 60}
	s.Bookmarks.Add("p1")
	s.Bookmarks.Add("p2")
	s.Collections["review"] = []string{"p1"}

	row, err := encodeRow("user-1", s)
	require.NoError(t, err)

	got, err := decodeRow(row)
	require.NoError(t, err)
	assert.Equal(t, 12, got.TotalSolved)
	assert.Equal(t, 350, got.TotalXP)
	assert.Equal(t, s.LastSolvedAt.UTC(), got.LastSolvedAt.UTC())
	assert.Equal(t, 12, got.ByTopic["algebra"].Solved)
	assert.Equal(t, []string{"p1", "p2"}, got.Bookmarks.IDs())
	assert.Equal(t, []string{"p1"}, got.Collections["review"])
}

func TestEncodeBookmarks_BracketedCSV(t *testing.T) {
	set := models.NewBookmarkSet("p1", "p2", "p3")
	assert.Equal(t, "[p1,p2,p3]", encodeBookmarks(set))
	assert.Equal(t, "[]", encodeBookmarks(models.NewBookmarkSet()))
}

func TestDecodeBookmarks(t *testing.T) {
	assert.Equal(t, []string{"p1", "p2"}, decodeBookmarks("[p1,p2]").IDs())
	assert.Equal(t, []string{"p1"}, decodeBookmarks("[ p1 , ]").IDs(), "blanks and spaces are dropped")
	assert.Empty(t, decodeBookmarks("[]").IDs())
	assert.Empty(t, decodeBookmarks("").IDs())
	assert.Equal(t, []string{"p1"}, decodeBookmarks("p1").IDs(), "missing brackets degrade gracefully")
}
