package models

// Problem is one competition problem in the local bank.
type Problem struct {
	ID         string   `json:"id"`
	Source     string   `json:"source"` // e.g. "AMC10", "AMC12"
	Year       int      `json:"year"`
	Number     int      `json:"number"`
	Topic      string   `json:"topic"`
	Difficulty float64  `json:"difficulty"`
	Statement  string   `json:"statement"`
	Choices    []string `json:"choices"`
	Answer     string   `json:"answer"`
}

// ProblemFilter narrows problem listings and exam selection.
type ProblemFilter struct {
	Source        string
	Topic         string
	Year          int
	MinDifficulty float64
	MaxDifficulty float64
	Limit         int
	Offset        int
}
