package models

import "time"

// StatsAggregate is the single mutable statistics record for one user. One
// instance exists per authenticated session; it is owned exclusively by the
// analytics manager and persisted through the sync controller.
type StatsAggregate struct {
	TotalSolved     int     `json:"totalProblemsSolved"`
	DailySolved     int     `json:"dailyProblemsSolved"`
	WeeklySolved    int     `json:"weeklyProblemsSolved"`
	MonthlySolved   int     `json:"monthlyProblemsSolved"`
	TotalAttempts   int     `json:"totalAttempts"`
	CorrectAttempts int     `json:"correctAttempts"`
	AverageAccuracy float64 `json:"averageAccuracy"`
	TotalXP         int     `json:"totalXp"`
	CurrentStreak   int     `json:"currentStreak"`
	BestStreak      int     `json:"bestStreak"`

	LastSolvedAt   time.Time `json:"lastProblemSolved"`
	LastDailyReset time.Time `json:"lastDailyReset"`

	ByTopic      map[string]*TopicStats      `json:"problemsByTopic"`
	ByDifficulty map[string]*DifficultyStats `json:"problemsByDifficulty"`
	TimingByDate map[string]*DailyTiming     `json:"dailyTiming"`

	// Pass-through fields: stored and synced, interpreted only by the
	// bookmark/collection manager, never by the analytics rollups.
	Bookmarks   BookmarkSet         `json:"bookmarkedProblems"`
	Collections map[string][]string `json:"problemCollections"`
}

// NewStatsAggregate returns an all-zero aggregate with initialized maps.
func NewStatsAggregate() *StatsAggregate {
	return &StatsAggregate{
		ByTopic:      map[string]*TopicStats{},
		ByDifficulty: map[string]*DifficultyStats{},
		TimingByDate: map[string]*DailyTiming{},
		Collections:  map[string][]string{},
	}
}

// TopicStats is the per-topic rollup.
type TopicStats struct {
	Solved   int     `json:"solved"`
	Attempts int     `json:"attempts"`
	Accuracy float64 `json:"accuracy"`
	// Difficulty counts correct attempts only, keyed by one-decimal bucket.
	Difficulty map[string]int          `json:"difficulty"`
	Sources    map[string]*SourceStats `json:"sources"`
}

// DifficultyStats is the global per-difficulty-bucket rollup.
type DifficultyStats struct {
	Solved   int     `json:"solved"`
	Attempts int     `json:"attempts"`
	Accuracy float64 `json:"accuracy"`
}

// SourceStats is the per-topic per-source sub-rollup.
type SourceStats struct {
	Solved   int     `json:"solved"`
	Attempts int     `json:"attempts"`
	Accuracy float64 `json:"accuracy"`
}

// DailyTiming is the per-calendar-day timing record. Dates are local calendar
// days formatted YYYY-MM-DD. ProblemsSolved lists distinct solved problem ids;
// TotalSolved counts every correct attempt, so the two deliberately diverge
// when the same problem is solved twice in one day.
type DailyTiming struct {
	Date                  string   `json:"date"`
	ProblemsSolved        []string `json:"problemsSolved"`
	TotalSolved           int      `json:"totalSolved"`
	TotalAttempts         int      `json:"totalAttempts"`
	Accuracy              float64  `json:"accuracy"`
	TotalTimeSpent        float64  `json:"totalTimeSpent"`
	AverageTimePerProblem float64  `json:"averageTimePerProblem"`
}

// Clone returns a deep copy of the aggregate.
func (s *StatsAggregate) Clone() *StatsAggregate {
	if s == nil {
		return nil
	}
	out := *s
	out.ByTopic = make(map[string]*TopicStats, len(s.ByTopic))
	for k, v := range s.ByTopic {
		out.ByTopic[k] = v.clone()
	}
	out.ByDifficulty = make(map[string]*DifficultyStats, len(s.ByDifficulty))
	for k, v := range s.ByDifficulty {
		c := *v
		out.ByDifficulty[k] = &c
	}
	out.TimingByDate = make(map[string]*DailyTiming, len(s.TimingByDate))
	for k, v := range s.TimingByDate {
		c := *v
		c.ProblemsSolved = append([]string(nil), v.ProblemsSolved...)
		out.TimingByDate[k] = &c
	}
	out.Bookmarks = s.Bookmarks.Clone()
	out.Collections = make(map[string][]string, len(s.Collections))
	for k, v := range s.Collections {
		out.Collections[k] = append([]string(nil), v...)
	}
	return &out
}

func (t *TopicStats) clone() *TopicStats {
	c := *t
	c.Difficulty = make(map[string]int, len(t.Difficulty))
	for k, v := range t.Difficulty {
		c.Difficulty[k] = v
	}
	c.Sources = make(map[string]*SourceStats, len(t.Sources))
	for k, v := range t.Sources {
		sc := *v
		c.Sources[k] = &sc
	}
	return &c
}
