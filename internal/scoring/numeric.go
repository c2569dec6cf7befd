package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTolerancePercent is the relative error, in percent, that fully
// consumes the scoring budget. At the default, an answer 1% off the expected
// value scores 0 and the score degrades linearly in between.
const DefaultTolerancePercent = 1.0

const invalidInputFeedback = "Invalid numerical input"

// CalculationOptions tune the numeric comparison for one drill template.
type CalculationOptions struct {
	// TolerancePercent is on the percent scale: 1 means 1%. When the expected
	// answer is zero the same value is reinterpreted as an absolute band,
	// since relative error is undefined there.
	TolerancePercent  float64
	RequireExactMatch bool
}

// CalculationResult carries the accuracy score plus the evaluator-level
// feedback lines that the synthesizer later merges with the metrics-derived
// ones.
type CalculationResult struct {
	Score        int
	Feedback     string
	Strengths    []string
	Improvements []string
}

// EvaluateCalculation scores a free-form numeric answer against the expected
// value. An unparseable answer is a reported condition, not an error: it
// scores 0 with explanatory feedback.
func EvaluateCalculation(userAnswerText string, correctAnswer float64, opts CalculationOptions) CalculationResult {
	tolerance := opts.TolerancePercent
	if tolerance <= 0 {
		tolerance = DefaultTolerancePercent
	}

	userValue, err := parseNumeric(userAnswerText)
	if err != nil {
		return CalculationResult{
			Score:    0,
			Feedback: invalidInputFeedback,
			Improvements: []string{
				"Provide your answer as a plain number, for example 42 or 3.14",
			},
		}
	}

	var score int
	if opts.RequireExactMatch {
		if userValue == correctAnswer {
			score = 100
		}
	} else {
		score = toleranceScore(userValue, correctAnswer, tolerance)
	}

	result := CalculationResult{Score: score}
	result.Feedback = fmt.Sprintf("Accuracy %d/100 against the expected result.", score)

	switch {
	case score >= 95:
		result.Strengths = append(result.Strengths, "Excellent accuracy in calculation")
	case score >= 80:
		result.Strengths = append(result.Strengths, "Good approximation skills")
		result.Improvements = append(result.Improvements, "Minor refinements needed to reach full precision")
	default:
		result.Improvements = append(result.Improvements,
			"Review calculation methodology",
			fmt.Sprintf("Expected %s but received %s", formatNumber(correctAnswer), formatNumber(userValue)),
		)
	}
	return result
}

// toleranceScore maps the deviation onto 0-100. Relative error is used when
// the expected value is non-zero; otherwise the tolerance acts as an absolute
// band around zero.
func toleranceScore(userValue, correctAnswer, tolerance float64) int {
	var consumed float64
	if correctAnswer != 0 {
		percentageError := math.Abs(userValue-correctAnswer) / math.Abs(correctAnswer) * 100
		consumed = percentageError / tolerance
	} else {
		consumed = math.Abs(userValue) / tolerance
	}

	raw := 100 * (1 - consumed)
	return ClampScore(int(math.Round(raw)))
}

// ClampScore bounds a score to the 0-100 scale.
func ClampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// thousandsGrouped matches numbers whose commas sit in proper thousands
// positions. Anything else with a comma ("1,2", ",5") is ambiguous and
// rejected rather than silently reinterpreted.
var thousandsGrouped = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// parseNumeric accepts the forms users actually type: optional sign, thousands
// separators, surrounding whitespace.
func parseNumeric(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty input")
	}
	if strings.Contains(s, ",") {
		if !thousandsGrouped.MatchString(s) {
			return 0, fmt.Errorf("ambiguous separators: %q", s)
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value: %q", s)
	}
	return v, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CalculationConstraints restrict what a calculation-style input may contain.
// Zero values disable the corresponding check.
type CalculationConstraints struct {
	MaxDigits        int
	MaxDecimalPlaces int
	// AllowedOperators lists the permitted operator characters. Empty means
	// the default set "+-*/()".
	AllowedOperators string
}

const defaultOperators = "+-*/()"

// ValidateCalculation is a pure string-level check that the input only uses
// digits, whitespace, decimal points, and permitted operators, and honours
// the template's digit and decimal-place limits. It is independent from
// numeric scoring: a valid string can still score 0.
func ValidateCalculation(input string, constraints CalculationConstraints) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	operators := constraints.AllowedOperators
	if operators == "" {
		operators = defaultOperators
	}

	digits := 0
	decimals := 0
	inFraction := false
	for _, r := range input {
		switch {
		case r >= '0' && r <= '9':
			digits++
			if inFraction {
				decimals++
			}
		case r == '.':
			if inFraction {
				return false
			}
			inFraction = true
		case r == ' ' || r == '\t':
			inFraction = false
		case strings.ContainsRune(operators, r):
			inFraction = false
		default:
			return false
		}
	}

	if digits == 0 {
		return false
	}
	if constraints.MaxDigits > 0 && digits > constraints.MaxDigits {
		return false
	}
	if constraints.MaxDecimalPlaces > 0 && decimals > constraints.MaxDecimalPlaces {
		return false
	}
	return true
}
