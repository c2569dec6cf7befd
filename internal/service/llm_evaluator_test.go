package service

import (
	"testing"

	"github.com/caseforge/drillapi/internal/apperr"
	"github.com/caseforge/drillapi/internal/dto"
	"github.com/caseforge/drillapi/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rubric = []model.EvaluationCriterion{
	{Name: "Structure", Weight: 0.6, Position: 1},
	{Name: "Creativity", Weight: 0.4, Position: 2},
}

func TestParseEvaluationResponse(t *testing.T) {
	raw := "Score: 78\n" +
		"Criteria:\n" +
		"- Structure: 85\n" +
		"- Creativity: 70\n" +
		"Feedback:\n" +
		"Solid framework. Push for more unconventional ideas."

	outcome, err := parseEvaluationResponse(raw, rubric)
	require.NoError(t, err)
	assert.Equal(t, 78, outcome.OverallScore)
	assert.Equal(t, map[string]int{"Structure": 85, "Creativity": 70}, outcome.CriteriaScores)
	assert.Equal(t, "Solid framework. Push for more unconventional ideas.", outcome.Feedback)
}

func TestParseEvaluationResponseMissingCriteriaFallBack(t *testing.T) {
	raw := "Score: 64\nFeedback:\nDecent."

	outcome, err := parseEvaluationResponse(raw, rubric)
	require.NoError(t, err)
	assert.Equal(t, 64, outcome.OverallScore)
	// Unscored criteria inherit the overall score.
	assert.Equal(t, map[string]int{"Structure": 64, "Creativity": 64}, outcome.CriteriaScores)
}

func TestParseEvaluationResponseClampsAndTolerates(t *testing.T) {
	raw := "Here is my assessment.\nScore: 110%\nCriteria:\n- structure: -5\nFeedback:\nOverflow."

	outcome, err := parseEvaluationResponse(raw, rubric)
	require.NoError(t, err)
	assert.Equal(t, 100, outcome.OverallScore)
	// Criterion matching is case-insensitive; negative values clamp to 0.
	assert.Equal(t, 0, outcome.CriteriaScores["Structure"])
}

func TestParseEvaluationResponseRejectsMissingScore(t *testing.T) {
	_, err := parseEvaluationResponse("The candidate did well overall.", rubric)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}

func TestBuildEvaluationPromptIncludesRubricAndResponse(t *testing.T) {
	template := &model.DrillTemplate{
		Category: model.CategoryBrainstorming,
		Prompt:   "List revenue levers for an airline.",
		Criteria: rubric,
	}
	payload := &dto.DrillResponsePayload{Kind: dto.PayloadFreeText, Text: "Ancillary fees, cargo, loyalty."}

	prompt := buildEvaluationPrompt(template, payload)
	assert.Contains(t, prompt, "List revenue levers for an airline.")
	assert.Contains(t, prompt, "Structure (weight 60%)")
	assert.Contains(t, prompt, "Ancillary fees, cargo, loyalty.")
	assert.Contains(t, prompt, "Score:")
}
