package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DrillCategory classifies a drill template. Numeric categories are scored
// locally by the tolerance evaluator; the rest go through the LLM.
type DrillCategory string

const (
	CategoryCasePrompt    DrillCategory = "CASE_PROMPT"
	CategoryCalculations  DrillCategory = "CALCULATIONS"
	CategoryCaseMath      DrillCategory = "CASE_MATH"
	CategoryBrainstorming DrillCategory = "BRAINSTORMING"
	CategoryMarketSizing  DrillCategory = "MARKET_SIZING"
	CategorySynthesizing  DrillCategory = "SYNTHESIZING"
)

func (c DrillCategory) Valid() bool {
	switch c {
	case CategoryCasePrompt, CategoryCalculations, CategoryCaseMath,
		CategoryBrainstorming, CategoryMarketSizing, CategorySynthesizing:
		return true
	}
	return false
}

// Numeric reports whether attempts in this category carry a numeric answer
// and are scored without the LLM.
func (c DrillCategory) Numeric() bool {
	switch c {
	case CategoryCalculations, CategoryCaseMath, CategoryMarketSizing:
		return true
	}
	return false
}

// DrillTemplate is the immutable definition of one practice exercise.
// Authored by admins, read-only to the attempt flow.
type DrillTemplate struct {
	ID          uint          `gorm:"primarykey" json:"id"`
	PublicID    uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"public_id"`
	Title       string        `gorm:"not null" json:"title"`
	Category    DrillCategory `gorm:"type:varchar(32);not null;index" json:"category"`
	Difficulty  string        `gorm:"type:varchar(16);not null" json:"difficulty"` // "easy", "medium", "hard"
	Prompt      string        `gorm:"type:text;not null" json:"prompt"`
	Description string        `json:"description,omitempty"`

	TimeLimitSeconds int `gorm:"not null" json:"time_limit_seconds"`

	// Numeric-category scoring parameters. CorrectAnswer is nil for free-text
	// categories.
	CorrectAnswer     *float64 `json:"correct_answer,omitempty"`
	TolerancePercent  float64  `gorm:"not null;default:1" json:"tolerance_percent"`
	RequireExactMatch bool     `gorm:"not null;default:false" json:"require_exact_match"`

	Criteria []EvaluationCriterion `gorm:"foreignKey:TemplateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"criteria,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
