package exam

// AMC scoring: 6 points per correct answer, 1.5 per blank, 0 per wrong answer.
const (
	pointsCorrect = 6.0
	pointsBlank   = 1.5
)

// Score computes the AMC score for a finished exam.
func Score(correct, blank int) float64 {
	return pointsCorrect*float64(correct) + pointsBlank*float64(blank)
}

// MaxScore returns the highest possible score for an exam of n problems.
func MaxScore(n int) float64 {
	return pointsCorrect * float64(n)
}
