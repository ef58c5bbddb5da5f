package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/models"
)

// writeError maps a service error to an HTTP response. Domain errors carry
// their own code; anything else is a 500 with a generic message.
func writeError(c echo.Context, err error) error {
	switch {
	case domain.IsNotFound(err):
		return c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case domain.IsInvalidStatus(err):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_status",
			Message: err.Error(),
		})
	case domain.IsInvalidState(err):
		return c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "invalid_state",
			Message: err.Error(),
		})
	case domain.IsConflict(err):
		return c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
	default:
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
