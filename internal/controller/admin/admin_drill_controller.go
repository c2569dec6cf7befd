package admin

import (
	"net/http"

	"github.com/caseforge/drillapi/internal/controller"
	"github.com/caseforge/drillapi/internal/dto"
	"github.com/caseforge/drillapi/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type AdminDrillController struct {
	adminDrillService service.AdminDrillService
}

func NewAdminDrillController(adminDrillService service.AdminDrillService) *AdminDrillController {
	return &AdminDrillController{adminDrillService: adminDrillService}
}

// CreateDrill godoc
// @Summary (Admin) Create a new drill template
// @Description Admin authors a drill template with its weighted rubric criteria. Numeric categories must carry the expected answer; weights must sum to 1.
// @Tags Admin - Drills
// @Accept json
// @Produce json
// @Param drill_data body dto.DrillCreateDTO true "Drill template data including rubric criteria"
// @Success 201 {object} dto.DrillResponseDTO "Drill created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid input data (e.g., bad category, weights not summing to 1)"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/drills [post]
func (c *AdminDrillController) CreateDrill(ctx *gin.Context) {
	var req dto.DrillCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Admin CreateDrill: Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Kind:    "validation",
			Message: "Invalid request body",
			Details: []string{err.Error()},
		})
		return
	}

	drillResp, err := c.adminDrillService.CreateDrill(&req)
	if err != nil {
		log.Error().Err(err).Str("title", req.Title).Msg("Admin CreateDrill: Service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, drillResp)
}
