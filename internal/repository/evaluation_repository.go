package repository

import (
	"errors"

	"github.com/caseforge/drillapi/internal/apperr"
	"github.com/caseforge/drillapi/internal/model"
	"gorm.io/gorm"
)

type EvaluationRepository interface {
	// CreateWithAttempt inserts the evaluation and applies the attempt's
	// final transition in one transaction. If the version check loses a race
	// the whole write rolls back: a partially-evaluated attempt is never
	// persisted.
	CreateWithAttempt(eval *model.DrillEvaluation, attempt *model.DrillAttempt, expectedVersion int) error
	FindByAttemptID(attemptID uint) (*model.DrillEvaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) CreateWithAttempt(eval *model.DrillEvaluation, attempt *model.DrillAttempt, expectedVersion int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(eval).Error; err != nil {
			return err
		}
		return saveAttemptCAS(tx, attempt, expectedVersion)
	})
}

func (r *evaluationRepository) FindByAttemptID(attemptID uint) (*model.DrillEvaluation, error) {
	var eval model.DrillEvaluation
	err := r.db.Where("attempt_id = ?", attemptID).First(&eval).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.KindNotFound, "no evaluation for attempt %d", attemptID)
	}
	if err != nil {
		return nil, err
	}
	return &eval, nil
}
