package models

import "time"

// ExamConfig describes a mock exam to start.
type ExamConfig struct {
	Source      string        `json:"source"`
	Topic       string        `json:"topic,omitempty"`
	NumProblems int           `json:"numProblems"`
	Duration    time.Duration `json:"duration"`
}

// ExamSession is one mock-exam run. Scoring follows AMC rules: 6 points per
// correct answer, 1.5 per blank, 0 per wrong answer.
type ExamSession struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Config      ExamConfig        `json:"config"`
	Problems    []Problem         `json:"problems"`
	Answers     map[string]string `json:"answers"`
	StartedAt   time.Time         `json:"startedAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Score       float64           `json:"score"`
	MaxScore    float64           `json:"maxScore"`
	NumCorrect  int               `json:"numCorrect"`
	NumBlank    int               `json:"numBlank"`
	NumWrong    int               `json:"numWrong"`
}

// Active reports whether the session is still accepting answers at t.
func (e *ExamSession) Active(t time.Time) bool {
	if e.CompletedAt != nil {
		return false
	}
	return t.Before(e.StartedAt.Add(e.Config.Duration))
}
