package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/referlink/backend/pkg/incentive"
	"github.com/referlink/backend/pkg/referral"
)

// RepHandler exposes per-rep incentive state and pipeline stats.
type RepHandler struct {
	incentives *incentive.Service
	referrals  *referral.Service
}

// NewRepHandler creates a new rep handler.
func NewRepHandler(incentives *incentive.Service, referrals *referral.Service) *RepHandler {
	return &RepHandler{
		incentives: incentives,
		referrals:  referrals,
	}
}

// Incentives godoc
// @Summary Get rep incentive state
// @Description Current tier unlocks, progress toward the next milestone, and earnings totals
// @Tags Reps
// @Produce json
// @Param id path string true "Rep ID"
// @Success 200 {object} models.IncentiveState
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/reps/{id}/incentives [get]
func (h *RepHandler) Incentives(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	state, err := h.incentives.Compute(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

// Stats godoc
// @Summary Get rep pipeline stats
// @Description Referral counts per status and the conversion rate
// @Tags Reps
// @Produce json
// @Param id path string true "Rep ID"
// @Success 200 {object} models.RepStats
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/reps/{id}/stats [get]
func (h *RepHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	stats, err := h.referrals.Stats(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
