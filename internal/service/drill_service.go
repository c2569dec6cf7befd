package service

import (
	"github.com/caseforge/drillapi/internal/dto"
	"github.com/caseforge/drillapi/internal/model"
	"github.com/caseforge/drillapi/internal/repository"
)

// DrillService is the read-only catalog surface for practicing users.
type DrillService interface {
	ListDrills() ([]dto.DrillSummaryDTO, error)
	GetDrill(drillID uint) (*dto.DrillResponseDTO, error)
}

type drillService struct {
	drills repository.DrillRepository
}

func NewDrillService(drills repository.DrillRepository) DrillService {
	return &drillService{drills: drills}
}

func (s *drillService) ListDrills() ([]dto.DrillSummaryDTO, error) {
	rows, err := s.drills.FindAllWithCriteriaCount()
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.DrillSummaryDTO, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, dto.DrillSummaryDTO{
			ID:               row.ID,
			PublicID:         row.PublicID,
			Title:            row.Title,
			Category:         string(row.Category),
			Difficulty:       row.Difficulty,
			TimeLimitSeconds: row.TimeLimitSeconds,
			CriteriaCount:    row.CriteriaCount,
			CreatedAt:        row.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *drillService) GetDrill(drillID uint) (*dto.DrillResponseDTO, error) {
	template, err := s.drills.FindByIDWithCriteria(drillID)
	if err != nil {
		return nil, err
	}
	return drillToResponseDTO(template), nil
}

// drillToResponseDTO maps a template to its user-facing view. The expected
// answer and tolerance stay server-side.
func drillToResponseDTO(template *model.DrillTemplate) *dto.DrillResponseDTO {
	criteria := make([]dto.CriterionDTO, 0, len(template.Criteria))
	for _, c := range template.Criteria {
		criteria = append(criteria, dto.CriterionDTO{
			ID:          c.ID,
			Name:        c.Name,
			Weight:      c.Weight,
			Description: c.Description,
			Position:    c.Position,
		})
	}
	return &dto.DrillResponseDTO{
		ID:               template.ID,
		PublicID:         template.PublicID,
		Title:            template.Title,
		Category:         string(template.Category),
		Difficulty:       template.Difficulty,
		Prompt:           template.Prompt,
		Description:      template.Description,
		TimeLimitSeconds: template.TimeLimitSeconds,
		Criteria:         criteria,
		CreatedAt:        template.CreatedAt,
	}
}
