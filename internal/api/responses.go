package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spotshare/internal/apperror"
	"spotshare/internal/logger"
)

type ErrorResponse struct {
	Error   string       `json:"error" example:"something went wrong"`
	Code    string       `json:"code,omitempty" example:"availability_error"`
	Reason  string       `json:"reason,omitempty" example:"blackout"`
	Details []FieldError `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case apperror.KindAvailability, apperror.KindInvalidState, apperror.KindConflict, apperror.KindSettlementConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as JSON. Errors outside the apperror taxonomy are
// logged and reported as a generic 500.
func RespondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := statusFor(kind)

	if status == http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, ErrorResponse{Error: "internal server error", Code: "internal_error"})
		return
	}

	c.JSON(status, ErrorResponse{
		Error:  err.Error(),
		Code:   string(kind),
		Reason: apperror.ReasonOf(err),
	})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: string(apperror.KindValidation)})
}

func Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "user not authenticated"})
}
