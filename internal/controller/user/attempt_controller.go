package user

import (
	"net/http"

	"github.com/caseforge/drillapi/internal/controller"
	"github.com/caseforge/drillapi/internal/dto"
	"github.com/caseforge/drillapi/internal/middleware"
	"github.com/caseforge/drillapi/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type AttemptController struct {
	attemptService service.AttemptService
}

func NewAttemptController(attemptService service.AttemptService) *AttemptController {
	return &AttemptController{attemptService: attemptService}
}

// StartAttempt godoc
// @Summary (User) Start a timed attempt on a drill
// @Description Creates a new IN_PROGRESS attempt. A user may hold at most one active attempt per drill.
// @Tags User - Attempts
// @Produce json
// @Param drill_id path int true "Drill ID"
// @Success 201 {object} dto.AttemptDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Drill ID format"
// @Failure 404 {object} dto.ErrorResponse "Drill not found"
// @Failure 409 {object} dto.ErrorResponse "An attempt is already in progress"
// @Security BearerAuth
// @Router /drills/{drill_id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	drillID, ok := controller.ParseIDParam(ctx, "drill_id")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(ctx)

	attempt, err := c.attemptService.Start(userID, drillID)
	if err != nil {
		log.Warn().Err(err).Uint("drillID", drillID).Uint("userID", userID).
			Msg("User StartAttempt: Service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, attempt)
}

// SubmitAttempt godoc
// @Summary (User) Submit the response for an attempt
// @Description Records the response and completes the attempt. Submissions after the deadline are accepted but flagged as timed out.
// @Tags User - Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param submission body dto.SubmitAttemptDTO true "The response payload (tagged union by kind)"
// @Success 200 {object} dto.AttemptDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid payload"
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt is not in progress or was modified concurrently"
// @Security BearerAuth
// @Router /attempts/{attempt_id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(ctx)

	var req dto.SubmitAttemptDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("User SubmitAttempt: Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Kind:    "validation",
			Message: "Invalid request body",
			Details: []string{err.Error()},
		})
		return
	}

	attempt, err := c.attemptService.Submit(attemptID, userID, req.Response)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("User SubmitAttempt: Service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

// TimeUp godoc
// @Summary (User) Force-complete an attempt whose deadline passed
// @Description Completes the attempt with a synthetic empty response once the countdown has expired.
// @Tags User - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDTO
// @Failure 400 {object} dto.ErrorResponse "Deadline has not passed yet"
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt is not in progress"
// @Security BearerAuth
// @Router /attempts/{attempt_id}/time-up [post]
func (c *AttemptController) TimeUp(ctx *gin.Context) {
	attemptID, ok := controller.ParseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(ctx)

	attempt, err := c.attemptService.TimeUp(attemptID, userID)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("User TimeUp: Service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

// EvaluateAttempt godoc
// @Summary (User) Evaluate a completed attempt
// @Description Scores the attempt: numeric categories locally against the expected answer, free-text categories via the AI evaluator. On evaluator failure the attempt stays COMPLETED and evaluation can be retried.
// @Tags User - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.EvaluationDTO
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt is not completed"
// @Failure 502 {object} dto.ErrorResponse "Evaluation failed; retry later"
// @Security BearerAuth
// @Router /attempts/{attempt_id}/evaluate [post]
func (c *AttemptController) EvaluateAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(ctx)

	evaluation, err := c.attemptService.Evaluate(ctx.Request.Context(), attemptID, userID)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("User EvaluateAttempt: Service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, evaluation)
}

// AbandonAttempt godoc
// @Summary (User) Abandon an in-progress attempt
// @Description Moves the attempt to the terminal ABANDONED state. The record is kept; nothing is deleted.
// @Tags User - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDTO
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt is not in progress"
// @Security BearerAuth
// @Router /attempts/{attempt_id}/abandon [post]
func (c *AttemptController) AbandonAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(ctx)

	attempt, err := c.attemptService.Abandon(attemptID, userID)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("User AbandonAttempt: Service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

// GetAttempt godoc
// @Summary (User) Get full details of one attempt
// @Description Retrieves the attempt with its stored response, per-criterion scores, and evaluation once present.
// @Tags User - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDetailDTO
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Security BearerAuth
// @Router /attempts/{attempt_id} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(ctx)

	detail, err := c.attemptService.Get(attemptID, userID)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("User GetAttempt: Service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

// GetTimer godoc
// @Summary (User) Get the countdown state of an attempt
// @Description Returns elapsed and remaining seconds plus the warning band for the client timer display.
// @Tags User - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} scoring.TimerState
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Security BearerAuth
// @Router /attempts/{attempt_id}/timer [get]
func (c *AttemptController) GetTimer(ctx *gin.Context) {
	attemptID, ok := controller.ParseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(ctx)

	state, err := c.attemptService.Timer(attemptID, userID)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("User GetTimer: Service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// GetMyAttempts godoc
// @Summary (User) List the caller's attempts for a drill
// @Description Retrieves summaries of all attempts the authenticated user made on the drill, newest first.
// @Tags User - Attempts
// @Produce json
// @Param drill_id path int true "Drill ID"
// @Success 200 {array} dto.AttemptSummaryDTO
// @Failure 404 {object} dto.ErrorResponse "Drill not found"
// @Security BearerAuth
// @Router /drills/{drill_id}/my-attempts [get]
func (c *AttemptController) GetMyAttempts(ctx *gin.Context) {
	drillID, ok := controller.ParseIDParam(ctx, "drill_id")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(ctx)

	attempts, err := c.attemptService.ListForDrill(drillID, userID)
	if err != nil {
		log.Warn().Err(err).Uint("drillID", drillID).Msg("User GetMyAttempts: Service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}
