package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/referlink/backend/pkg/models"
	"github.com/referlink/backend/pkg/referral"
)

// ReferralHandler handles referral intake and lifecycle endpoints.
type ReferralHandler struct {
	service *referral.Service
}

// NewReferralHandler creates a new referral handler.
func NewReferralHandler(service *referral.Service) *ReferralHandler {
	return &ReferralHandler{service: service}
}

// Submit godoc
// @Summary Submit a referral
// @Description Create a new referral in "submitted" status
// @Tags Referrals
// @Accept json
// @Produce json
// @Param request body models.SubmitReferralRequest true "Referral intake request"
// @Success 201 {object} models.Referral
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/referrals [post]
func (h *ReferralHandler) Submit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var req models.SubmitReferralRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	ref, err := h.service.Submit(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, ref)
}

// List godoc
// @Summary List referrals
// @Description List referrals, newest first, optionally filtered by rep, referrer, or status
// @Tags Referrals
// @Produce json
// @Param rep_id query string false "Filter by assigned rep"
// @Param referrer_id query string false "Filter by referrer"
// @Param status query string false "Filter by status" Enums(submitted, contacted, quoted, sold)
// @Success 200 {array} models.Referral
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/referrals [get]
func (h *ReferralHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	filter := models.ReferralFilter{
		RepID:      c.QueryParam("rep_id"),
		ReferrerID: c.QueryParam("referrer_id"),
	}
	if status := c.QueryParam("status"); status != "" {
		s := models.ReferralStatus(status)
		if !s.Valid() {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_status",
				Message: "Invalid status value. Must be one of: submitted, contacted, quoted, sold",
			})
		}
		filter.Status = s
	}

	refs, err := h.service.List(ctx, filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, refs)
}

// Get godoc
// @Summary Get a referral
// @Tags Referrals
// @Produce json
// @Param id path string true "Referral ID"
// @Success 200 {object} models.Referral
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/referrals/{id} [get]
func (h *ReferralHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ref, err := h.service.Get(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ref)
}

// UpdateStatus godoc
// @Summary Update referral status
// @Description Move a referral through the pipeline (submitted → contacted → quoted → sold); backward moves are admin corrections
// @Tags Referrals
// @Accept json
// @Produce json
// @Param id path string true "Referral ID"
// @Param request body models.UpdateStatusRequest true "Status update request"
// @Success 200 {object} models.Referral
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/referrals/{id}/status [put]
func (h *ReferralHandler) UpdateStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	actorID, _ := c.Get("user_id").(string)
	if actorID == "" {
		actorID = c.Request().Header.Get("X-Actor-ID")
	}

	ref, err := h.service.Transition(ctx, c.Param("id"), actorID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ref)
}

// History godoc
// @Summary Get referral status history
// @Description Complete log of status changes for a referral, newest first
// @Tags Referrals
// @Produce json
// @Param id path string true "Referral ID"
// @Success 200 {array} models.StatusChange
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/referrals/{id}/history [get]
func (h *ReferralHandler) History(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	history, err := h.service.History(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, history)
}
