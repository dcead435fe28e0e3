package attemptrunner

import (
	"math"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// Outcome is the deterministic evaluation of a finished answer sheet.
// Side-effect-free: safe to re-run for review or recompute without touching
// stored answers.
type Outcome struct {
	Tally         Tally
	Score         float64
	Passed        bool
	PassThreshold int
}

// Evaluate buckets and scores a complete answer sheet.
//
// Unscoreable slots (empty correctness snapshot) go to the invalid bucket
// and are excluded from the weighted score and from the pass-rule
// denominator. The pass rule is the explicit minimum when configured,
// otherwise the absolute majority floor(total/2)+1 over scoreable slots.
func Evaluate(answers []entity.AttemptAnswer, cfg Config) Outcome {
	var t Tally
	for i := range answers {
		a := &answers[i]
		switch {
		case !a.IsScoreable():
			t.Invalid++
		case a.IsSkipped():
			t.Blank++
		case a.IsCorrect:
			t.Correct++
		default:
			t.Wrong++
		}
	}

	threshold := passThreshold(t.TotalScoreable(), cfg.MinCorrect)
	return Outcome{
		Tally:         t,
		Score:         Score(t, cfg.Weights),
		Passed:        t.Correct >= threshold,
		PassThreshold: threshold,
	}
}

// Score applies the weight scheme to a tally, rounded to two decimals.
func Score(t Tally, w Weights) float64 {
	raw := float64(t.Correct)*w.Correct + float64(t.Wrong)*w.Wrong + float64(t.Blank)*w.Blank
	return math.Round(raw*100) / 100
}

func passThreshold(total int, minCorrect *int) int {
	if minCorrect != nil {
		return *minCorrect
	}
	return total/2 + 1
}
