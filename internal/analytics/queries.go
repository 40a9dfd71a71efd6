package analytics

import (
	"sort"
	"strconv"
	"time"
)

// Trend classifications returned by TimingInsights.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// trendBand is the accuracy delta, in percentage points, beyond which the
// 7-day trend stops being "stable".
const trendBand = 5.0

// TopicRank is one entry of the top-topics listing.
type TopicRank struct {
	Topic    string  `json:"topic"`
	Solved   int     `json:"solved"`
	Attempts int     `json:"attempts"`
	Accuracy float64 `json:"accuracy"`
}

// DifficultyBucket is one entry of the difficulty distribution.
type DifficultyBucket struct {
	Difficulty string  `json:"difficulty"`
	Solved     int     `json:"solved"`
	Attempts   int     `json:"attempts"`
	Accuracy   float64 `json:"accuracy"`
}

// TopicShare is one entry of the topic breakdown.
type TopicShare struct {
	Topic      string  `json:"topic"`
	Solved     int     `json:"solved"`
	Percentage float64 `json:"percentage"`
}

// SourceRank is one entry of the flattened per-source rollup.
type SourceRank struct {
	Source   string  `json:"source"`
	Solved   int     `json:"solved"`
	Attempts int     `json:"attempts"`
	Accuracy float64 `json:"accuracy"`
}

// DailySummary is one calendar day of the past-30-days series.
type DailySummary struct {
	Date     string  `json:"date"`
	Solved   int     `json:"solved"`
	Attempts int     `json:"attempts"`
	Accuracy float64 `json:"accuracy"`
}

// TimingInsights summarizes the retained timing records.
type TimingInsights struct {
	AverageTimePerProblem float64 `json:"averageTimePerProblem"`
	TotalTimeSpent        float64 `json:"totalTimeSpent"`
	BestDay               string  `json:"bestDay"`
	BestDaySolved         int     `json:"bestDaySolved"`
	Trend                 string  `json:"trend"`
}

// TopTopics returns topics sorted by solved count descending, truncated to
// limit. A non-positive limit defaults to 5.
func (m *Manager) TopTopics(limit int) []TopicRank {
	if limit <= 0 {
		limit = 5
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TopicRank, 0, len(m.stats.ByTopic))
	for topic, ts := range m.stats.ByTopic {
		out = append(out, TopicRank{Topic: topic, Solved: ts.Solved, Attempts: ts.Attempts, Accuracy: ts.Accuracy})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Solved != out[j].Solved {
			return out[i].Solved > out[j].Solved
		}
		return out[i].Topic < out[j].Topic
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DifficultyDistribution returns the global difficulty buckets sorted by
// numeric difficulty ascending.
func (m *Manager) DifficultyDistribution() []DifficultyBucket {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]DifficultyBucket, 0, len(m.stats.ByDifficulty))
	for bucket, ds := range m.stats.ByDifficulty {
		out = append(out, DifficultyBucket{Difficulty: bucket, Solved: ds.Solved, Attempts: ds.Attempts, Accuracy: ds.Accuracy})
	}
	sort.Slice(out, func(i, j int) bool {
		di, _ := strconv.ParseFloat(out[i].Difficulty, 64)
		dj, _ := strconv.ParseFloat(out[j].Difficulty, 64)
		return di < dj
	})
	return out
}

// TopicBreakdown returns each topic's solved count and its percentage of the
// overall solved total, sorted by count descending.
func (m *Manager) TopicBreakdown() []TopicShare {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TopicShare, 0, len(m.stats.ByTopic))
	for topic, ts := range m.stats.ByTopic {
		pct := 0.0
		if m.stats.TotalSolved > 0 {
			pct = 100 * float64(ts.Solved) / float64(m.stats.TotalSolved)
		}
		out = append(out, TopicShare{Topic: topic, Solved: ts.Solved, Percentage: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Solved != out[j].Solved {
			return out[i].Solved > out[j].Solved
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}

// SourceAnalysis re-aggregates the per-topic source sub-rollups into a flat
// per-source rollup, sorted by solved descending.
func (m *Manager) SourceAnalysis() []SourceRank {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := map[string]*SourceRank{}
	for _, ts := range m.stats.ByTopic {
		for source, ss := range ts.Sources {
			r, ok := agg[source]
			if !ok {
				r = &SourceRank{Source: source}
				agg[source] = r
			}
			r.Solved += ss.Solved
			r.Attempts += ss.Attempts
		}
	}
	out := make([]SourceRank, 0, len(agg))
	for _, r := range agg {
		r.Accuracy = accuracy(r.Solved, r.Attempts)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Solved != out[j].Solved {
			return out[i].Solved > out[j].Solved
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// Past30Days returns exactly 30 entries, one per calendar day from 29 days ago
// through today, zero-filled where no timing record exists.
func (m *Manager) Past30Days() []DailySummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := startOfDay(m.now())
	out := make([]DailySummary, 0, 30)
	for i := 29; i >= 0; i-- {
		key := dateKey(today.AddDate(0, 0, -i))
		entry := DailySummary{Date: key}
		if rec, ok := m.stats.TimingByDate[key]; ok {
			entry.Solved = rec.TotalSolved
			entry.Attempts = rec.TotalAttempts
			entry.Accuracy = rec.Accuracy
		}
		out = append(out, entry)
	}
	return out
}

// Insights computes timing aggregates across all retained records: average
// time per solved problem, total time spent, the best day (first date wins
// ties), and a trend comparing mean daily accuracy of the last 7 days against
// the preceding 7.
func (m *Manager) Insights() TimingInsights {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := TimingInsights{Trend: TrendStable}

	dates := make([]string, 0, len(m.stats.TimingByDate))
	for date := range m.stats.TimingByDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var solvedTime float64
	var solved int
	for _, date := range dates {
		rec := m.stats.TimingByDate[date]
		out.TotalTimeSpent += rec.TotalTimeSpent
		solvedTime += rec.AverageTimePerProblem * float64(rec.TotalSolved)
		solved += rec.TotalSolved
		if rec.TotalSolved > out.BestDaySolved {
			out.BestDaySolved = rec.TotalSolved
			out.BestDay = date
		}
	}
	if solved > 0 {
		out.AverageTimePerProblem = solvedTime / float64(solved)
	}

	out.Trend = m.trendLocked()
	return out
}

func (m *Manager) trendLocked() string {
	today := startOfDay(m.now())
	recentStart := today.AddDate(0, 0, -6)
	prevStart := today.AddDate(0, 0, -13)

	var recentSum, prevSum float64
	var recentN, prevN int
	for key, rec := range m.stats.TimingByDate {
		day, err := time.ParseInLocation("2006-01-02", key, today.Location())
		if err != nil {
			continue
		}
		switch {
		case !day.Before(recentStart) && !day.After(today):
			recentSum += rec.Accuracy
			recentN++
		case !day.Before(prevStart) && day.Before(recentStart):
			prevSum += rec.Accuracy
			prevN++
		}
	}
	if recentN == 0 || prevN == 0 {
		return TrendStable
	}
	delta := recentSum/float64(recentN) - prevSum/float64(prevN)
	switch {
	case delta > trendBand:
		return TrendImproving
	case delta < -trendBand:
		return TrendDeclining
	default:
		return TrendStable
	}
}
