package repository

import (
	"errors"
	"time"

	"github.com/caseforge/drillapi/internal/apperr"
	"github.com/caseforge/drillapi/internal/model"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	Create(attempt *model.DrillAttempt) error
	FindByID(id uint) (*model.DrillAttempt, error)
	FindByIDWithTemplate(id uint) (*model.DrillAttempt, error)
	FindByIDWithDetails(id uint) (*model.DrillAttempt, error)
	FindActiveByUserAndTemplate(userID, templateID uint) (*model.DrillAttempt, error)
	FindAllByTemplateAndUser(templateID, userID uint) ([]model.DrillAttempt, error)
	// SaveWithVersion applies a transition with a compare-and-swap on the
	// version column: the update only lands if the stored version still
	// equals expectedVersion. A lost race surfaces as a Conflict error, so
	// concurrent writers can never corrupt the record.
	SaveWithVersion(attempt *model.DrillAttempt, expectedVersion int) error
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.DrillAttempt) error {
	return translateActiveDuplicate(r.db.Create(attempt).Error, attempt.TemplateID)
}

// translateActiveDuplicate maps a violation of the one-active-attempt unique
// index to the same error kind the service-level guard raises, so concurrent
// starts that slip past the pre-check still answer 409.
func translateActiveDuplicate(err error, templateID uint) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Newf(apperr.KindAlreadyInProgress,
			"an attempt for drill %d is already in progress", templateID)
	}
	return err
}

func (r *attemptRepository) FindByID(id uint) (*model.DrillAttempt, error) {
	var attempt model.DrillAttempt
	if err := r.db.First(&attempt, id).Error; err != nil {
		return nil, translateNotFound(err, "attempt", id)
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIDWithTemplate(id uint) (*model.DrillAttempt, error) {
	var attempt model.DrillAttempt
	err := r.db.Preload("Template").Preload("Template.Criteria").First(&attempt, id).Error
	if err != nil {
		return nil, translateNotFound(err, "attempt", id)
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIDWithDetails(id uint) (*model.DrillAttempt, error) {
	var attempt model.DrillAttempt
	err := r.db.Preload("Template").Preload("Evaluation").First(&attempt, id).Error
	if err != nil {
		return nil, translateNotFound(err, "attempt", id)
	}
	return &attempt, nil
}

func (r *attemptRepository) FindActiveByUserAndTemplate(userID, templateID uint) (*model.DrillAttempt, error) {
	var attempt model.DrillAttempt
	err := r.db.
		Where("user_id = ? AND template_id = ? AND status = ?", userID, templateID, model.StatusInProgress).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindAllByTemplateAndUser(templateID, userID uint) ([]model.DrillAttempt, error) {
	var attempts []model.DrillAttempt
	err := r.db.
		Where("template_id = ? AND user_id = ?", templateID, userID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) SaveWithVersion(attempt *model.DrillAttempt, expectedVersion int) error {
	return saveAttemptCAS(r.db, attempt, expectedVersion)
}

// saveAttemptCAS is shared with the evaluation repository so the final
// transition can run inside the same transaction as the evaluation insert.
func saveAttemptCAS(db *gorm.DB, attempt *model.DrillAttempt, expectedVersion int) error {
	next := expectedVersion + 1
	res := db.Model(&model.DrillAttempt{}).
		Where("id = ? AND version = ?", attempt.ID, expectedVersion).
		Updates(map[string]any{
			"status":               attempt.Status,
			"completed_at":         attempt.CompletedAt,
			"response_kind":        attempt.ResponseKind,
			"response_json":        attempt.ResponseJSON,
			"timed_out":            attempt.TimedOut,
			"score":                attempt.Score,
			"criteria_scores_json": attempt.CriteriaScoresJSON,
			"version":              next,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Newf(apperr.KindConflict, "attempt %d was modified concurrently", attempt.ID).
			With("attempt_id", attempt.ID).
			With("expected_version", expectedVersion)
	}
	attempt.Version = next
	return nil
}
