package models

import "time"

// AttemptRecord is one submitted answer to one problem. Records are immutable:
// they are created when the user submits an answer, queued until flushed to the
// remote store, and discarded afterwards.
type AttemptRecord struct {
	ProblemID    string    `json:"problemId"`
	Topic        string    `json:"topic"`
	Difficulty   float64   `json:"difficulty"`
	Source       string    `json:"source"`
	Correct      bool      `json:"correct"`
	TimeSpentSec float64   `json:"timeSpent"`
	Answer       string    `json:"answer"`
	XPEarned     int       `json:"xpEarned,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
