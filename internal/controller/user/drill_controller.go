package user

import (
	"net/http"

	"github.com/caseforge/drillapi/internal/controller"
	"github.com/caseforge/drillapi/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type DrillController struct {
	drillService service.DrillService
}

func NewDrillController(drillService service.DrillService) *DrillController {
	return &DrillController{drillService: drillService}
}

// ListDrills godoc
// @Summary (User) List all available drills
// @Description Get the drill catalog with category, difficulty, time limit, and rubric size.
// @Tags User - Drills
// @Produce json
// @Success 200 {array} dto.DrillSummaryDTO
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /drills [get]
func (c *DrillController) ListDrills(ctx *gin.Context) {
	drills, err := c.drillService.ListDrills()
	if err != nil {
		log.Error().Err(err).Msg("User ListDrills: Service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, drills)
}

// GetDrill godoc
// @Summary (User) Get details of a specific drill
// @Description Get the full drill template including its rubric criteria. The expected answer is never exposed.
// @Tags User - Drills
// @Produce json
// @Param drill_id path int true "Drill ID"
// @Success 200 {object} dto.DrillResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Drill ID format"
// @Failure 404 {object} dto.ErrorResponse "Drill not found"
// @Security BearerAuth
// @Router /drills/{drill_id} [get]
func (c *DrillController) GetDrill(ctx *gin.Context) {
	drillID, ok := controller.ParseIDParam(ctx, "drill_id")
	if !ok {
		return
	}

	drill, err := c.drillService.GetDrill(drillID)
	if err != nil {
		log.Warn().Err(err).Uint("drillID", drillID).Msg("User GetDrill: Service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, drill)
}
