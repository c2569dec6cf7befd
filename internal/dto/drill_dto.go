package dto

import (
	"time"

	"github.com/google/uuid"
)

// CriterionCreateDTO is one rubric dimension in an admin drill-creation
// request. Weights across a drill must sum to 1.
type CriterionCreateDTO struct {
	Name        string  `json:"name" binding:"required"`
	Weight      float64 `json:"weight" binding:"required,gt=0,lte=1"`
	Description string  `json:"description,omitempty"`
	Position    int     `json:"position" binding:"required,min=1"`
}

// DrillCreateDTO is the admin request to author a new drill template.
type DrillCreateDTO struct {
	Title       string `json:"title" binding:"required"`
	Category    string `json:"category" binding:"required,oneof=CASE_PROMPT CALCULATIONS CASE_MATH BRAINSTORMING MARKET_SIZING SYNTHESIZING"`
	Difficulty  string `json:"difficulty" binding:"required,oneof=easy medium hard"`
	Prompt      string `json:"prompt" binding:"required"`
	Description string `json:"description,omitempty"`

	TimeLimitSeconds int `json:"time_limit_seconds" binding:"required,min=10"`

	CorrectAnswer     *float64 `json:"correct_answer,omitempty"`
	TolerancePercent  float64  `json:"tolerance_percent,omitempty"`
	RequireExactMatch bool     `json:"require_exact_match,omitempty"`

	Criteria []CriterionCreateDTO `json:"criteria" binding:"required,min=1,dive"`
}

// CriterionDTO mirrors EvaluationCriterion for responses.
type CriterionDTO struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description,omitempty"`
	Position    int     `json:"position"`
}

// DrillResponseDTO is the full template view, including rubric criteria.
// The expected answer is deliberately omitted from user-facing responses.
type DrillResponseDTO struct {
	ID               uint           `json:"id"`
	PublicID         uuid.UUID      `json:"public_id"`
	Title            string         `json:"title"`
	Category         string         `json:"category"`
	Difficulty       string         `json:"difficulty"`
	Prompt           string         `json:"prompt"`
	Description      string         `json:"description,omitempty"`
	TimeLimitSeconds int            `json:"time_limit_seconds"`
	Criteria         []CriterionDTO `json:"criteria,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// DrillSummaryDTO lists available drills.
type DrillSummaryDTO struct {
	ID               uint      `json:"id"`
	PublicID         uuid.UUID `json:"public_id"`
	Title            string    `json:"title"`
	Category         string    `json:"category"`
	Difficulty       string    `json:"difficulty"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
	CriteriaCount    int       `json:"criteria_count"`
	CreatedAt        time.Time `json:"created_at"`
}
