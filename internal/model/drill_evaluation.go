package model

import (
	"time"

	"gorm.io/gorm"
)

// DrillEvaluation is the immutable scored outcome of a completed attempt.
// Exactly one evaluation exists per EVALUATED attempt; it is written in the
// same transaction as the attempt's final transition and never updated.
type DrillEvaluation struct {
	ID        uint `gorm:"primarykey" json:"id"`
	AttemptID uint `gorm:"not null;uniqueIndex" json:"attempt_id"`

	OverallScore     int     `gorm:"not null" json:"overall_score"` // 0-100
	Summary          string  `gorm:"type:text;not null" json:"summary"`
	StrengthsJSON    string  `gorm:"type:text;not null" json:"-"`
	ImprovementsJSON string  `gorm:"type:text;not null" json:"-"`
	LLMFeedback      *string `gorm:"type:text" json:"llm_feedback,omitempty"`

	EvaluatedAt time.Time `gorm:"not null" json:"evaluated_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
