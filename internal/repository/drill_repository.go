package repository

import (
	"errors"

	"github.com/caseforge/drillapi/internal/apperr"
	"github.com/caseforge/drillapi/internal/model"
	"gorm.io/gorm"
)

type DrillRepository interface {
	Create(template *model.DrillTemplate) error
	FindByID(id uint) (*model.DrillTemplate, error)
	FindByIDWithCriteria(id uint) (*model.DrillTemplate, error)
	FindAllWithCriteriaCount() ([]DrillWithCriteriaCount, error)
}

type DrillWithCriteriaCount struct {
	model.DrillTemplate
	CriteriaCount int
}

type drillRepository struct {
	db *gorm.DB
}

func NewDrillRepository(db *gorm.DB) DrillRepository {
	return &drillRepository{db: db}
}

func (r *drillRepository) Create(template *model.DrillTemplate) error {
	// Creating with associations also inserts the criteria children.
	return r.db.Create(template).Error
}

func (r *drillRepository) FindByID(id uint) (*model.DrillTemplate, error) {
	var template model.DrillTemplate
	if err := r.db.First(&template, id).Error; err != nil {
		return nil, translateNotFound(err, "drill template", id)
	}
	return &template, nil
}

func (r *drillRepository) FindByIDWithCriteria(id uint) (*model.DrillTemplate, error) {
	var template model.DrillTemplate
	err := r.db.Preload("Criteria", func(db *gorm.DB) *gorm.DB {
		return db.Order("evaluation_criteria.position ASC")
	}).First(&template, id).Error
	if err != nil {
		return nil, translateNotFound(err, "drill template", id)
	}
	return &template, nil
}

func (r *drillRepository) FindAllWithCriteriaCount() ([]DrillWithCriteriaCount, error) {
	var results []DrillWithCriteriaCount
	err := r.db.Model(&model.DrillTemplate{}).
		Select("drill_templates.*, (SELECT COUNT(*) FROM evaluation_criteria WHERE evaluation_criteria.template_id = drill_templates.id AND evaluation_criteria.deleted_at IS NULL) as criteria_count").
		Where("drill_templates.deleted_at IS NULL").
		Order("drill_templates.created_at DESC").
		Scan(&results).Error
	return results, err
}

func translateNotFound(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Newf(apperr.KindNotFound, "%s %d not found", entity, id).With("id", id)
	}
	return err
}
