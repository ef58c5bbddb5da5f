package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/referlink/backend/pkg/models"
	"github.com/referlink/backend/pkg/notify"
)

const defaultNotificationLimit = 50

// NotificationHandler exposes the in-app notification inbox.
type NotificationHandler struct {
	service *notify.Service
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(service *notify.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List notifications for a recipient
// @Tags Notifications
// @Produce json
// @Param recipient_id query string true "Recipient ID"
// @Param limit query int false "Limit (default 50, max 200)"
// @Success 200 {array} models.Notification
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recipientID := c.QueryParam("recipient_id")
	if recipientID == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "missing_recipient",
			Message: "recipient_id query parameter is required",
		})
	}

	limit := defaultNotificationLimit
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	notifications, err := h.service.ListFor(ctx, recipientID, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, notifications)
}

// Dismiss godoc
// @Summary Dismiss a notification
// @Description Permanently remove a single notification from the inbox
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/notifications/{id} [delete]
func (h *NotificationHandler) Dismiss(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Dismiss(ctx, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead godoc
// @Summary Mark all notifications read
// @Description Flip the read flag on every notification for a recipient; rows are kept
// @Tags Notifications
// @Produce json
// @Param recipient_id query string true "Recipient ID"
// @Success 200 {object} map[string]int
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recipientID := c.QueryParam("recipient_id")
	if recipientID == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "missing_recipient",
			Message: "recipient_id query parameter is required",
		})
	}

	updated, err := h.service.MarkAllRead(ctx, recipientID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": updated})
}
