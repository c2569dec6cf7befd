package controller

import (
	"net/http"
	"strconv"

	"github.com/caseforge/drillapi/internal/apperr"
	"github.com/caseforge/drillapi/internal/dto"
	"github.com/gin-gonic/gin"
)

// RespondError renders the uniform error envelope with the HTTP status that
// matches the error's kind. Foreign errors map to 500 with a generic message
// so internals never leak to clients.
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	message := err.Error()
	if kind == apperr.KindInternal {
		message = "internal server error"
	}

	c.JSON(statusFor(kind), dto.ErrorResponse{
		Kind:      string(kind),
		Message:   message,
		Retryable: apperr.Retryable(err),
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidState, apperr.KindAlreadyInProgress, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindEvaluationFailed, apperr.KindUpstream:
		return http.StatusBadGateway
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ParseIDParam reads a uint path parameter, answering 400 itself on failure.
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Kind:    string(apperr.KindValidation),
			Message: "invalid " + name + " format",
		})
		return 0, false
	}
	return uint(id), true
}
