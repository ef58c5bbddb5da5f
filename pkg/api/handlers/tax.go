package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/referlink/backend/pkg/models"
	"github.com/referlink/backend/pkg/tax"
)

// TaxHandler exposes per rep-year earnings threshold state.
type TaxHandler struct {
	service *tax.Service
}

// NewTaxHandler creates a new tax handler.
func NewTaxHandler(service *tax.Service) *TaxHandler {
	return &TaxHandler{service: service}
}

func parseYear(c echo.Context) (int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 2000 || year > 2200 {
		return 0, false
	}
	return year, true
}

// GetState godoc
// @Summary Get tax threshold state
// @Description Yearly earnings total and threshold state for a rep
// @Tags Tax
// @Produce json
// @Param id path string true "Rep ID"
// @Param year path int true "Calendar year"
// @Success 200 {object} models.TaxRecord
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/reps/{id}/tax/{year} [get]
func (h *TaxHandler) GetState(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	year, ok := parseYear(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_year",
			Message: "Invalid year",
		})
	}

	rec, err := h.service.GetState(ctx, c.Param("id"), year)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ProvideInfo godoc
// @Summary Provide tax information
// @Description Submit taxpayer details for a rep whose yearly earnings crossed the reporting threshold
// @Tags Tax
// @Accept json
// @Produce json
// @Param id path string true "Rep ID"
// @Param year path int true "Calendar year"
// @Param request body models.TaxInfoRequest true "Taxpayer details"
// @Success 200 {object} models.TaxRecord
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/reps/{id}/tax/{year}/info [post]
func (h *TaxHandler) ProvideInfo(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	year, ok := parseYear(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_year",
			Message: "Invalid year",
		})
	}

	var req models.TaxInfoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	rec, err := h.service.ProvideTaxInfo(ctx, c.Param("id"), year, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}
