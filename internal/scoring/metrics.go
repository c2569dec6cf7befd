package scoring

import "math"

// MaxAllowedSeconds is the ceiling used for the speed score: the longest any
// calculation-style drill should reasonably take. Attempts at or beyond it
// floor the speed score at 0.
const MaxAllowedSeconds = 300

// Performance tiers, evaluated in descending order of efficiency.
const (
	TierExcellent        = "Excellent"
	TierGood             = "Good"
	TierSatisfactory     = "Satisfactory"
	TierNeedsImprovement = "Needs Improvement"
)

// PerformanceMetrics combines timing and accuracy into a composite view of a
// single attempt. Derived on demand, never persisted on its own.
type PerformanceMetrics struct {
	SpeedScore    int    `json:"speed_score"`
	AccuracyScore int    `json:"accuracy_score"`
	Efficiency    int    `json:"efficiency"`
	Tier          string `json:"tier"`
}

// CalculateMetrics derives the speed score from time spent, passes the
// accuracy score through unchanged, and averages the two into efficiency.
func CalculateMetrics(timeSpentSeconds int, accuracyScore int) PerformanceMetrics {
	if timeSpentSeconds < 0 {
		timeSpentSeconds = 0
	}
	accuracyScore = ClampScore(accuracyScore)

	speedRaw := 100 * (1 - float64(timeSpentSeconds)/float64(MaxAllowedSeconds))
	speed := ClampScore(int(math.Round(speedRaw)))

	efficiency := int(math.Round(float64(speed+accuracyScore) / 2))

	return PerformanceMetrics{
		SpeedScore:    speed,
		AccuracyScore: accuracyScore,
		Efficiency:    efficiency,
		Tier:          tierFor(efficiency),
	}
}

func tierFor(efficiency int) string {
	switch {
	case efficiency >= 90:
		return TierExcellent
	case efficiency >= 75:
		return TierGood
	case efficiency >= 60:
		return TierSatisfactory
	default:
		return TierNeedsImprovement
	}
}
