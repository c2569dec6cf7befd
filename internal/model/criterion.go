package model

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// WeightEpsilon is the rounding slack allowed when checking that a template's
// criteria weights sum to 1.
const WeightEpsilon = 1e-6

// EvaluationCriterion is one weighted rubric dimension of a drill template.
type EvaluationCriterion struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	TemplateID  uint    `gorm:"not null;index" json:"template_id"`
	Name        string  `gorm:"not null" json:"name"`
	Weight      float64 `gorm:"not null" json:"weight"` // fraction of the overall score
	Description string  `gorm:"type:text" json:"description,omitempty"`
	Position    int     `gorm:"not null" json:"position"` // order within the template

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// WeightsSumToOne checks the template invariant over a criteria list.
func WeightsSumToOne(criteria []EvaluationCriterion) bool {
	sum := 0.0
	for _, c := range criteria {
		sum += c.Weight
	}
	return math.Abs(sum-1.0) <= WeightEpsilon
}
