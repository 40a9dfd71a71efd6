package remote

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/openamc/amctrack/internal/models"
)

// statsRow is the wire shape of the user_stats table. Point-in-time fields use
// full RFC3339 timestamps; the daily-reset field is date-only. The bookmark
// list is a bracketed CSV text column, an inherited quirk of the schema that
// stays confined to this codec.
type statsRow struct {
	UserID          string  `json:"user_id,omitempty"`
	TotalSolved     int     `json:"total_problems_solved"`
	DailySolved     int     `json:"daily_problems_solved"`
	WeeklySolved    int     `json:"weekly_problems_solved"`
	MonthlySolved   int     `json:"monthly_problems_solved"`
	TotalAttempts   int     `json:"total_attempts"`
	CorrectAttempts int     `json:"correct_attempts"`
	AverageAccuracy float64 `json:"average_accuracy"`
	TotalXP         int     `json:"total_xp"`
	CurrentStreak   int     `json:"current_streak"`
	BestStreak      int     `json:"best_streak"`

	LastSolvedAt   *string `json:"last_problem_solved"`
	LastDailyReset *string `json:"last_daily_reset"`

	ByTopic      map[string]*models.TopicStats      `json:"problems_by_topic"`
	ByDifficulty map[string]*models.DifficultyStats `json:"problems_by_difficulty"`
	TimingByDate map[string]*models.DailyTiming     `json:"daily_timing"`

	Bookmarks   string          `json:"bookmarked_problems"`
	Collections json.RawMessage `json:"problem_collections,omitempty"`
}

const (
	timestampFormat = time.RFC3339
	dateFormat      = "2006-01-02"
)

func encodeRow(userID string, s *models.StatsAggregate) (*statsRow, error) {
	row := &statsRow{
		UserID:          userID,
		TotalSolved:     s.TotalSolved,
		DailySolved:     s.DailySolved,
		WeeklySolved:    s.WeeklySolved,
		MonthlySolved:   s.MonthlySolved,
		TotalAttempts:   s.TotalAttempts,
		CorrectAttempts: s.CorrectAttempts,
		AverageAccuracy: s.AverageAccuracy,
		TotalXP:         s.TotalXP,
		CurrentStreak:   s.CurrentStreak,
		BestStreak:      s.BestStreak,
		ByTopic:         s.ByTopic,
		ByDifficulty:    s.ByDifficulty,
		TimingByDate:    s.TimingByDate,
		Bookmarks:       encodeBookmarks(s.Bookmarks),
	}
	if !s.LastSolvedAt.IsZero() {
		v := s.LastSolvedAt.Format(timestampFormat)
		row.LastSolvedAt = &v
	}
	if !s.LastDailyReset.IsZero() {
		v := s.LastDailyReset.Format(dateFormat)
		row.LastDailyReset = &v
	}
	if s.Collections != nil {
		raw, err := json.Marshal(s.Collections)
		if err != nil {
			return nil, err
		}
		row.Collections = raw
	}
	return row, nil
}

func decodeRow(row *statsRow) (*models.StatsAggregate, error) {
	s := models.NewStatsAggregate()
	s.TotalSolved = row.TotalSolved
	s.DailySolved = row.DailySolved
	s.WeeklySolved = row.WeeklySolved
	s.MonthlySolved = row.MonthlySolved
	s.TotalAttempts = row.TotalAttempts
	s.CorrectAttempts = row.CorrectAttempts
	s.AverageAccuracy = row.AverageAccuracy
	s.TotalXP = row.TotalXP
	s.CurrentStreak = row.CurrentStreak
	s.BestStreak = row.BestStreak

	if row.ByTopic != nil {
		s.ByTopic = row.ByTopic
	}
	if row.ByDifficulty != nil {
		s.ByDifficulty = row.ByDifficulty
	}
	if row.TimingByDate != nil {
		s.TimingByDate = row.TimingByDate
	}

	// Unparseable stored dates are treated as absent, never fatal.
	if row.LastSolvedAt != nil {
		if t, err := time.Parse(timestampFormat, *row.LastSolvedAt); err == nil {
			s.LastSolvedAt = t
		}
	}
	if row.LastDailyReset != nil {
		if t, err := time.ParseInLocation(dateFormat, *row.LastDailyReset, time.Local); err == nil {
			s.LastDailyReset = t
		}
	}

	s.Bookmarks = decodeBookmarks(row.Bookmarks)
	if len(row.Collections) > 0 {
		var collections map[string][]string
		if err := json.Unmarshal(row.Collections, &collections); err == nil && collections != nil {
			s.Collections = collections
		}
	}
	return s, nil
}

// encodeBookmarks renders the ordered set as the store's bracketed CSV text
// column, e.g. "[p1,p2,p3]". An empty set encodes as "[]".
func encodeBookmarks(set models.BookmarkSet) string {
	return "[" + strings.Join(set.IDs(), ",") + "]"
}

// decodeBookmarks parses the bracketed CSV column back into an ordered set.
// Malformed input degrades to an empty set.
func decodeBookmarks(raw string) models.BookmarkSet {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		return models.NewBookmarkSet()
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return models.NewBookmarkSet(ids...)
}
