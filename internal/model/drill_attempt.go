package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttemptStatus is the state-machine state of a drill attempt.
type AttemptStatus string

const (
	StatusNotStarted AttemptStatus = "NOT_STARTED"
	StatusInProgress AttemptStatus = "IN_PROGRESS"
	StatusCompleted  AttemptStatus = "COMPLETED"
	StatusEvaluated  AttemptStatus = "EVALUATED"
	StatusAbandoned  AttemptStatus = "ABANDONED"
)

// CanTransitionTo encodes the legal state machine edges:
// NOT_STARTED -> IN_PROGRESS -> COMPLETED -> EVALUATED, with
// IN_PROGRESS -> ABANDONED as the only other edge. EVALUATED and ABANDONED
// are terminal.
func (s AttemptStatus) CanTransitionTo(next AttemptStatus) bool {
	switch s {
	case StatusNotStarted:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted || next == StatusAbandoned
	case StatusCompleted:
		return next == StatusEvaluated
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s AttemptStatus) Terminal() bool {
	return s == StatusEvaluated || s == StatusAbandoned
}

// DrillAttempt is one user's timed try at a drill template. Attempts are
// created at start, mutated only through state-machine transitions, and never
// physically deleted; abandonment is a terminal state, not removal.
// The partial unique index on (user_id, template_id) enforces the one-active-
// attempt rule at the database, closing the race between concurrent starts.
type DrillAttempt struct {
	ID         uint          `gorm:"primarykey" json:"id"`
	PublicID   uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"public_id"`
	UserID     uint          `gorm:"not null;index;uniqueIndex:uniq_active_attempt,where:status = 'IN_PROGRESS'" json:"user_id"`
	TemplateID uint          `gorm:"not null;index;uniqueIndex:uniq_active_attempt,where:status = 'IN_PROGRESS'" json:"template_id"`
	Template   DrillTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`

	Status      AttemptStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	StartedAt   time.Time     `gorm:"not null" json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`

	// Response payload as submitted, serialized from the tagged-union DTO.
	ResponseKind *string `gorm:"type:varchar(32)" json:"response_kind,omitempty"`
	ResponseJSON *string `gorm:"type:text" json:"response_json,omitempty"`
	TimedOut     bool    `gorm:"not null;default:false" json:"timed_out"`

	Score              *int    `json:"score,omitempty"` // 0-100, set at evaluation
	CriteriaScoresJSON *string `gorm:"type:text" json:"criteria_scores_json,omitempty"`

	// Version backs the optimistic-concurrency guard: every transition saves
	// with a compare-and-swap on this counter.
	Version int `gorm:"not null;default:0" json:"version"`

	Evaluation *DrillEvaluation `gorm:"foreignKey:AttemptID" json:"evaluation,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TimeSpentSeconds derives the attempt duration from its timestamps; for an
// unfinished attempt it measures against now.
func (a *DrillAttempt) TimeSpentSeconds(now time.Time) int {
	end := now
	if a.CompletedAt != nil {
		end = *a.CompletedAt
	}
	if !end.After(a.StartedAt) {
		return 0
	}
	return int(end.Sub(a.StartedAt) / time.Second)
}

// OwnedBy reports whether the caller owns this attempt. Every transition
// checks this before touching the record.
func (a *DrillAttempt) OwnedBy(userID uint) bool {
	return a.UserID == userID
}
