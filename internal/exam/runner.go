// Package exam runs timed mock exams against the local problem bank and feeds
// the results into the analytics pipeline.
package exam

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openamc/amctrack/internal/errors"
	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/models"
	"github.com/openamc/amctrack/internal/problems"
)

// Recorder receives one attempt per answered problem when an exam finishes.
type Recorder interface {
	RecordAttempt(userID string, a models.AttemptRecord)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(userID string, a models.AttemptRecord)

func (f RecorderFunc) RecordAttempt(userID string, a models.AttemptRecord) {
	f(userID, a)
}

// Runner manages mock-exam sessions, one active session per user.
type Runner struct {
	mu       sync.Mutex
	problems problems.Repository
	recorder Recorder
	sessions map[string]*session // keyed by user id
	now      func() time.Time
	log      *logger.Logger
}

type session struct {
	exam *models.ExamSession
	// answeredAt records when each answer landed, for per-problem timing.
	answeredAt   map[string]time.Time
	lastActivity time.Time
}

// NewRunner creates a Runner over the given problem bank.
func NewRunner(repo problems.Repository, recorder Recorder) *Runner {
	return &Runner{
		problems: repo,
		recorder: recorder,
		sessions: map[string]*session{},
		now:      time.Now,
		log:      logger.Default().WithPrefix("exam"),
	}
}

// SetClock overrides the time source, for tests.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Start begins a mock exam for the user. An existing active session is a
// validation error; a finished one is replaced.
func (r *Runner) Start(ctx context.Context, userID string, cfg models.ExamConfig) (*models.ExamSession, error) {
	log := logger.FromContext(ctx).WithField("user_id", userID)

	if cfg.NumProblems <= 0 {
		cfg.NumProblems = 25
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 75 * time.Minute
	}

	r.mu.Lock()
	if s, ok := r.sessions[userID]; ok && s.exam.Active(r.now()) {
		r.mu.Unlock()
		return nil, errors.NewValidationError("exam", "an active exam session already exists")
	}
	r.mu.Unlock()

	selected, err := r.problems.Random(ctx, models.ProblemFilter{
		Source: cfg.Source,
		Topic:  cfg.Topic,
	}, cfg.NumProblems)
	if err != nil {
		log.Error("failed to select exam problems: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if len(selected) == 0 {
		return nil, errors.NewValidationError("exam", "no problems match the requested configuration")
	}

	now := r.now()
	exam := &models.ExamSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Config:    cfg,
		Problems:  selected,
		Answers:   map[string]string{},
		StartedAt: now,
	}

	r.mu.Lock()
	r.sessions[userID] = &session{
		exam:         exam,
		answeredAt:   map[string]time.Time{},
		lastActivity: now,
	}
	r.mu.Unlock()

	log.Info("exam started: id=%s, problems=%d, duration=%v", exam.ID, len(selected), cfg.Duration)
	return exam, nil
}

// Answer records the user's answer for one problem of the active exam.
func (r *Runner) Answer(ctx context.Context, userID, problemID, answer string) (*models.ExamSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil, errors.NewNotFoundError("exam session", userID)
	}
	now := r.now()
	if !s.exam.Active(now) {
		// Time ran out; close the session so the caller sees the final score.
		r.finishLocked(ctx, s)
		return nil, errors.NewValidationError("exam", "exam session has expired")
	}

	found := false
	for _, p := range s.exam.Problems {
		if p.ID == problemID {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.NewValidationError("problemId", "problem is not part of this exam")
	}

	s.exam.Answers[problemID] = answer
	s.answeredAt[problemID] = now
	s.lastActivity = now
	return s.exam, nil
}

// Current returns the user's exam session, finished or not, or nil.
func (r *Runner) Current(userID string) *models.ExamSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		return s.exam
	}
	return nil
}

// Finish scores the exam and emits one attempt per answered problem.
func (r *Runner) Finish(ctx context.Context, userID string) (*models.ExamSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil, errors.NewNotFoundError("exam session", userID)
	}
	if s.exam.CompletedAt != nil {
		return s.exam, nil
	}
	r.finishLocked(ctx, s)
	return s.exam, nil
}

func (r *Runner) finishLocked(ctx context.Context, s *session) {
	log := logger.FromContext(ctx).WithField("exam_id", s.exam.ID)

	now := r.now()
	end := s.exam.StartedAt.Add(s.exam.Config.Duration)
	if now.After(end) {
		now = end
	}
	s.exam.CompletedAt = &now

	elapsed := now.Sub(s.exam.StartedAt).Seconds()
	answered := len(s.exam.Answers)
	perProblem := 0.0
	if answered > 0 {
		perProblem = elapsed / float64(answered)
	}

	for _, p := range s.exam.Problems {
		answer, ok := s.exam.Answers[p.ID]
		if !ok || strings.TrimSpace(answer) == "" {
			s.exam.NumBlank++
			continue
		}
		correct := answersMatch(answer, p.Answer)
		if correct {
			s.exam.NumCorrect++
		} else {
			s.exam.NumWrong++
		}
		if r.recorder != nil {
			r.recorder.RecordAttempt(s.exam.UserID, models.AttemptRecord{
				ProblemID:    p.ID,
				Topic:        p.Topic,
				Difficulty:   p.Difficulty,
				Source:       p.Source,
				Correct:      correct,
				TimeSpentSec: perProblem,
				Answer:       answer,
				Timestamp:    s.answeredAt[p.ID],
			})
		}
	}
	s.exam.Score = Score(s.exam.NumCorrect, s.exam.NumBlank)
	s.exam.MaxScore = MaxScore(len(s.exam.Problems))

	log.Info("exam finished: correct=%d, blank=%d, wrong=%d, score=%.1f/%.0f",
		s.exam.NumCorrect, s.exam.NumBlank, s.exam.NumWrong, s.exam.Score, s.exam.MaxScore)
}

func answersMatch(got, want string) bool {
	return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
}
