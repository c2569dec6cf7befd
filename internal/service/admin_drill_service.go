package service

import (
	"github.com/caseforge/drillapi/internal/apperr"
	"github.com/caseforge/drillapi/internal/dto"
	"github.com/caseforge/drillapi/internal/model"
	"github.com/caseforge/drillapi/internal/repository"
	"github.com/caseforge/drillapi/internal/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AdminDrillService covers the authoring surface: creating drill templates
// with their rubric criteria.
type AdminDrillService interface {
	CreateDrill(req *dto.DrillCreateDTO) (*dto.DrillResponseDTO, error)
}

type adminDrillService struct {
	drills repository.DrillRepository
}

func NewAdminDrillService(drills repository.DrillRepository) AdminDrillService {
	return &adminDrillService{drills: drills}
}

func (s *adminDrillService) CreateDrill(req *dto.DrillCreateDTO) (*dto.DrillResponseDTO, error) {
	category := model.DrillCategory(req.Category)
	if !category.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "unknown drill category %q", req.Category)
	}

	criteria := make([]model.EvaluationCriterion, 0, len(req.Criteria))
	for _, c := range req.Criteria {
		criteria = append(criteria, model.EvaluationCriterion{
			Name:        c.Name,
			Weight:      c.Weight,
			Description: c.Description,
			Position:    c.Position,
		})
	}
	if !model.WeightsSumToOne(criteria) {
		return nil, apperr.New(apperr.KindValidation, "criteria weights must sum to 1")
	}

	template := &model.DrillTemplate{
		PublicID:          uuid.New(),
		Title:             req.Title,
		Category:          category,
		Difficulty:        req.Difficulty,
		Prompt:            req.Prompt,
		Description:       req.Description,
		TimeLimitSeconds:  req.TimeLimitSeconds,
		CorrectAnswer:     req.CorrectAnswer,
		TolerancePercent:  req.TolerancePercent,
		RequireExactMatch: req.RequireExactMatch,
		Criteria:          criteria,
	}

	if category.Numeric() {
		if template.CorrectAnswer == nil {
			return nil, apperr.Newf(apperr.KindValidation,
				"category %s requires a correct_answer", category)
		}
		if template.TolerancePercent < 0 {
			return nil, apperr.New(apperr.KindValidation, "tolerance_percent must not be negative")
		}
		if template.TolerancePercent == 0 {
			template.TolerancePercent = scoring.DefaultTolerancePercent
		}
	} else if template.CorrectAnswer != nil {
		return nil, apperr.Newf(apperr.KindValidation,
			"category %s must not carry a correct_answer", category)
	}

	if err := s.drills.Create(template); err != nil {
		return nil, err
	}

	log.Info().Uint("drillID", template.ID).Str("category", string(category)).
		Msg("Drill template created")
	return drillToResponseDTO(template), nil
}
