package dto

import (
	"time"

	"github.com/google/uuid"
)

// AttemptDTO is the state-machine view of one attempt returned by every
// transition endpoint.
type AttemptDTO struct {
	ID          uint       `json:"id"`
	PublicID    uuid.UUID  `json:"public_id"`
	TemplateID  uint       `json:"template_id"`
	DrillTitle  string     `json:"drill_title,omitempty"`
	UserID      uint       `json:"user_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	TimedOut    bool       `json:"timed_out"`
	Score       *int       `json:"score,omitempty"`
	Version     int        `json:"version"`
}

// AttemptSummaryDTO lists a user's attempts for one drill.
type AttemptSummaryDTO struct {
	ID          uint       `json:"id"`
	PublicID    uuid.UUID  `json:"public_id"`
	TemplateID  uint       `json:"template_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	TimedOut    bool       `json:"timed_out"`
	Score       *int       `json:"score,omitempty"`
}

// AttemptDetailDTO is the full attempt view including the stored response
// and, once evaluated, the evaluation.
type AttemptDetailDTO struct {
	AttemptDTO
	Response       *DrillResponsePayload `json:"response,omitempty"`
	CriteriaScores map[string]int        `json:"criteria_scores,omitempty"`
	Evaluation     *EvaluationDTO        `json:"evaluation,omitempty"`
}

// EvaluationDTO is the immutable evaluation outcome.
type EvaluationDTO struct {
	AttemptID      uint           `json:"attempt_id"`
	OverallScore   int            `json:"overall_score"`
	Summary        string         `json:"summary"`
	Strengths      []string       `json:"strengths"`
	Improvements   []string       `json:"improvements"`
	CriteriaScores map[string]int `json:"criteria_scores,omitempty"`
	LLMFeedback    *string        `json:"llm_feedback,omitempty"`
	SpeedScore     int            `json:"speed_score"`
	AccuracyScore  int            `json:"accuracy_score"`
	Efficiency     int            `json:"efficiency"`
	Tier           string         `json:"tier"`
	EvaluatedAt    time.Time      `json:"evaluated_at"`
}

// SubmitAttemptDTO is the body of a submit request.
type SubmitAttemptDTO struct {
	Response DrillResponsePayload `json:"response" binding:"required"`
}

// ErrorResponse is the uniform error envelope. Kind matches the apperr
// taxonomy so clients can branch without parsing messages.
type ErrorResponse struct {
	Kind      string   `json:"kind"`
	Message   string   `json:"message"`
	Retryable bool     `json:"retryable,omitempty"`
	Details   []string `json:"details,omitempty"`
}
