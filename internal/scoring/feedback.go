package scoring

import "fmt"

const caseMathCategory = "CASE_MATH"

// Feedback is the final qualitative outcome attached to an evaluation.
type Feedback struct {
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// SynthesizeFeedback merges evaluator-level feedback with the metrics-derived
// lines. Evaluator lines come first; each rule below appends independently.
func SynthesizeFeedback(eval CalculationResult, metrics PerformanceMetrics, drillCategory string) Feedback {
	fb := Feedback{
		Strengths:    append([]string(nil), eval.Strengths...),
		Improvements: append([]string(nil), eval.Improvements...),
	}

	if metrics.SpeedScore >= 90 {
		fb.Strengths = append(fb.Strengths, "Excellent calculation speed")
	}
	if metrics.SpeedScore < 60 {
		fb.Improvements = append(fb.Improvements, "Work on improving calculation speed")
	}

	switch {
	case metrics.Efficiency >= 85:
		fb.Strengths = append(fb.Strengths, "Strong balance of speed and accuracy")
	case metrics.AccuracyScore < metrics.SpeedScore:
		fb.Improvements = append(fb.Improvements, "Focus on accuracy over speed")
	default:
		fb.Improvements = append(fb.Improvements, "Practice mental math techniques for faster calculations")
	}

	if drillCategory == caseMathCategory {
		fb.Strengths = append(fb.Strengths, "Applied case math principles effectively")
	}

	fb.Summary = fmt.Sprintf("%s performance: %d/100 accuracy with a speed score of %d/100.",
		metrics.Tier, metrics.AccuracyScore, metrics.SpeedScore)
	return fb
}
