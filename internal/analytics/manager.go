package analytics

import (
	"strconv"
	"sync"
	"time"

	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/models"
	"github.com/openamc/amctrack/internal/xp"
)

// timingRetentionDays is how many calendar days of timing records are kept.
const timingRetentionDays = 90

// Manager owns the statistics aggregate and pending-attempt queue for one
// authenticated user. It never touches the network; persistence is the sync
// controller's job. All methods are safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	userID string
	stats  *models.StatsAggregate

	pending        []models.AttemptRecord
	needsResetSave bool
	dirty          bool

	// dailyChecked is the single-fire-per-session daily-reset latch. It is
	// cleared only by ResetDailyProcessedFlag on session handoff.
	dailyChecked bool
	destroyed    bool

	// snapshotFn is installed by the sync controller; Destroy invokes it when
	// unsaved changes would otherwise be lost.
	snapshotFn func()

	now func() time.Time
	log *logger.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the manager's time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New constructs a Manager for the given user. A nil seed starts an all-zero
// aggregate with the daily reset anchored to the start of the current local day.
func New(userID string, seed *models.StatsAggregate, opts ...Option) *Manager {
	m := &Manager{
		userID: userID,
		now:    time.Now,
		log:    logger.Default().WithPrefix("analytics").WithField("user_id", userID),
	}
	for _, opt := range opts {
		opt(m)
	}
	if seed != nil {
		m.stats = seed.Clone()
		m.healAggregate(m.stats)
	} else {
		m.stats = models.NewStatsAggregate()
		m.stats.LastDailyReset = startOfDay(m.now())
	}
	return m
}

// UserID returns the identity that owns this manager.
func (m *Manager) UserID() string {
	return m.userID
}

// SetSnapshotHook installs the emergency-snapshot callback invoked by Destroy.
func (m *Manager) SetSnapshotHook(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshotFn = fn
}

// CheckAndResetDaily zeroes the daily solved counter when the stored reset date
// is not today. It fires at most once per session: subsequent calls return
// false without re-checking dates, until ResetDailyProcessedFlag is called on
// session handoff.
func (m *Manager) CheckAndResetDaily() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dailyChecked || m.destroyed {
		return false
	}
	m.dailyChecked = true

	today := startOfDay(m.now())
	last := startOfDay(m.stats.LastDailyReset)
	if !m.stats.LastDailyReset.IsZero() && last.Equal(today) {
		return false
	}

	m.log.Debug("daily reset: last=%s today=%s", last.Format("2006-01-02"), today.Format("2006-01-02"))
	m.stats.DailySolved = 0
	m.stats.LastDailyReset = today
	m.needsResetSave = true
	return true
}

// ResetDailyProcessedFlag re-arms the daily-reset latch. Intended for session
// handoff, e.g. sign-out followed by sign-in.
func (m *Manager) ResetDailyProcessedFlag() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyChecked = false
}

// RecordAttempt applies one attempt to the aggregate and queues it for sync.
// It never returns an error; a destroyed manager logs a warning and ignores
// the attempt.
func (m *Manager) RecordAttempt(a models.AttemptRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		m.log.Warn("attempt recorded after destroy, ignoring: problem_id=%s", a.ProblemID)
		return
	}

	if a.Timestamp.IsZero() {
		a.Timestamp = m.now()
	}
	if a.Correct && a.XPEarned == 0 {
		a.XPEarned = xp.ForDifficulty(a.Difficulty)
	}

	m.pending = append(m.pending, a)
	m.stats.TotalAttempts++

	if a.Correct {
		m.stats.CorrectAttempts++
		m.stats.TotalSolved++
		m.stats.DailySolved++
		m.stats.WeeklySolved++
		m.stats.MonthlySolved++
		m.updateStreak(a.Timestamp)
		m.stats.LastSolvedAt = a.Timestamp
		m.stats.TotalXP += a.XPEarned + xp.StreakBonus(m.stats.CurrentStreak)
	}

	m.applyTopic(a)
	m.applyDifficulty(a)
	m.stats.AverageAccuracy = accuracy(m.stats.CorrectAttempts, m.stats.TotalAttempts)
	m.applyTiming(a)
	m.pruneTiming()
}

func (m *Manager) applyTopic(a models.AttemptRecord) {
	if m.stats.ByTopic == nil {
		m.log.Warn("topic rollup map missing, recreating")
		m.stats.ByTopic = map[string]*models.TopicStats{}
	}
	ts, ok := m.stats.ByTopic[a.Topic]
	if !ok {
		ts = &models.TopicStats{
			Difficulty: map[string]int{},
			Sources:    map[string]*models.SourceStats{},
		}
		m.stats.ByTopic[a.Topic] = ts
	}
	if ts.Difficulty == nil {
		m.log.Warn("difficulty buckets missing for topic %q, recreating", a.Topic)
		ts.Difficulty = map[string]int{}
	}
	if ts.Sources == nil {
		m.log.Warn("source rollup missing for topic %q, recreating", a.Topic)
		ts.Sources = map[string]*models.SourceStats{}
	}

	ts.Attempts++
	if a.Correct {
		ts.Solved++
		ts.Difficulty[difficultyBucket(a.Difficulty)]++
	}
	ts.Accuracy = accuracy(ts.Solved, ts.Attempts)

	src, ok := ts.Sources[a.Source]
	if !ok {
		src = &models.SourceStats{}
		ts.Sources[a.Source] = src
	}
	src.Attempts++
	if a.Correct {
		src.Solved++
	}
	src.Accuracy = accuracy(src.Solved, src.Attempts)
}

func (m *Manager) applyDifficulty(a models.AttemptRecord) {
	if m.stats.ByDifficulty == nil {
		m.log.Warn("global difficulty rollup missing, recreating")
		m.stats.ByDifficulty = map[string]*models.DifficultyStats{}
	}
	bucket := difficultyBucket(a.Difficulty)
	ds, ok := m.stats.ByDifficulty[bucket]
	if !ok {
		ds = &models.DifficultyStats{}
		m.stats.ByDifficulty[bucket] = ds
	}
	ds.Attempts++
	if a.Correct {
		ds.Solved++
	}
	ds.Accuracy = accuracy(ds.Solved, ds.Attempts)
}

func (m *Manager) applyTiming(a models.AttemptRecord) {
	if m.stats.TimingByDate == nil {
		m.log.Warn("timing records missing, recreating")
		m.stats.TimingByDate = map[string]*models.DailyTiming{}
	}
	key := dateKey(a.Timestamp)
	rec, ok := m.stats.TimingByDate[key]
	if !ok {
		rec = &models.DailyTiming{Date: key}
		m.stats.TimingByDate[key] = rec
	}

	rec.TotalAttempts++
	rec.TotalTimeSpent += a.TimeSpentSec
	if a.Correct {
		// The running average covers solved problems only, so it folds in
		// the time of correct attempts incrementally.
		rec.AverageTimePerProblem = (rec.AverageTimePerProblem*float64(rec.TotalSolved) + a.TimeSpentSec) / float64(rec.TotalSolved+1)
		rec.TotalSolved++
		if !contains(rec.ProblemsSolved, a.ProblemID) {
			rec.ProblemsSolved = append(rec.ProblemsSolved, a.ProblemID)
		}
	}
	rec.Accuracy = accuracy(rec.TotalSolved, rec.TotalAttempts)
}

func (m *Manager) pruneTiming() {
	cutoff := startOfDay(m.now()).AddDate(0, 0, -timingRetentionDays)
	for key := range m.stats.TimingByDate {
		day, err := time.ParseInLocation("2006-01-02", key, m.now().Location())
		if err != nil {
			m.log.Warn("unparseable timing date %q, dropping", key)
			delete(m.stats.TimingByDate, key)
			continue
		}
		if day.Before(cutoff) {
			delete(m.stats.TimingByDate, key)
		}
	}
}

// updateStreak advances the consecutive-day solve streak on the first correct
// attempt of a calendar day.
func (m *Manager) updateStreak(ts time.Time) {
	if m.stats.DailySolved != 1 {
		return
	}
	today := startOfDay(ts)
	switch {
	case m.stats.LastSolvedAt.IsZero():
		m.stats.CurrentStreak = 1
	case startOfDay(m.stats.LastSolvedAt).Equal(today.AddDate(0, 0, -1)):
		m.stats.CurrentStreak++
	case startOfDay(m.stats.LastSolvedAt).Equal(today):
		// Daily counter was reset mid-day; the streak already covers today.
	default:
		m.stats.CurrentStreak = 1
	}
	if m.stats.CurrentStreak > m.stats.BestStreak {
		m.stats.BestStreak = m.stats.CurrentStreak
	}
}

// HasUnsavedChanges reports whether anything is waiting to be flushed.
func (m *Manager) HasUnsavedChanges() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending) > 0 || m.needsResetSave || m.dirty
}

// PendingCount returns the number of queued attempts.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// PendingAttempts returns a copy of the queued attempts.
func (m *Manager) PendingAttempts() []models.AttemptRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AttemptRecord(nil), m.pending...)
}

// NeedsDailyResetSave reports whether a daily reset is waiting to be persisted.
func (m *Manager) NeedsDailyResetSave() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.needsResetSave
}

// MarkDirty flags aggregate-level changes (bookmarks, collections) for flushing.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = true
}

// RestorePending re-injects a recovered queue and reset flag after an
// emergency-snapshot load.
func (m *Manager) RestorePending(attempts []models.AttemptRecord, needsResetSave bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, attempts...)
	m.needsResetSave = m.needsResetSave || needsResetSave
}

// ClearFlushed removes the first n queued attempts and clears the persistence
// flags after a confirmed remote write. Attempts recorded while the flush was
// in flight stay queued.
func (m *Manager) ClearFlushed(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n >= len(m.pending) {
		m.pending = nil
	} else {
		m.pending = append([]models.AttemptRecord(nil), m.pending[n:]...)
	}
	m.needsResetSave = false
	m.dirty = false
}

// Snapshot returns a deep copy of the current aggregate.
func (m *Manager) Snapshot() *models.StatsAggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.Clone()
}

// Mutate runs fn against the live aggregate under the manager's lock and marks
// the aggregate dirty. Used by the bookmark/collection manager for the
// pass-through fields.
func (m *Manager) Mutate(fn func(*models.StatsAggregate)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		m.log.Warn("mutation after destroy, ignoring")
		return
	}
	fn(m.stats)
	m.dirty = true
}

// Destroy marks the manager dead. If unsaved changes exist, the installed
// snapshot hook runs first so the data survives to the next session. Further
// RecordAttempt calls become logged no-ops.
func (m *Manager) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	unsaved := len(m.pending) > 0 || m.needsResetSave || m.dirty
	hook := m.snapshotFn
	m.mu.Unlock()

	if unsaved && hook != nil {
		m.log.Info("destroying with unsaved changes, writing emergency snapshot")
		hook()
	}
}

// healAggregate recreates any missing maps on a seeded aggregate so later
// increments cannot hit a nil map.
func (m *Manager) healAggregate(s *models.StatsAggregate) {
	if s.ByTopic == nil {
		s.ByTopic = map[string]*models.TopicStats{}
	}
	if s.ByDifficulty == nil {
		s.ByDifficulty = map[string]*models.DifficultyStats{}
	}
	if s.TimingByDate == nil {
		s.TimingByDate = map[string]*models.DailyTiming{}
	}
	if s.Collections == nil {
		s.Collections = map[string][]string{}
	}
}

// difficultyBucket keys rollups by difficulty rounded to one decimal, e.g. "2.0".
func difficultyBucket(d float64) string {
	return strconv.FormatFloat(round1(d), 'f', 1, 64)
}

func round1(d float64) float64 {
	if d < 0 {
		return -round1(-d)
	}
	return float64(int(d*10+0.5)) / 10
}

func accuracy(solved, attempts int) float64 {
	if attempts == 0 {
		return 0
	}
	return 100 * float64(solved) / float64(attempts)
}

func startOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
