package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/referlink/backend/pkg/jobs"
	"github.com/referlink/backend/pkg/logger"
)

// AdminHandler exposes operational endpoints.
type AdminHandler struct {
	sweeper *jobs.Sweeper
	log     logger.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(sweeper *jobs.Sweeper, log logger.Logger) *AdminHandler {
	if log == nil {
		log = logger.Default()
	}
	return &AdminHandler{sweeper: sweeper, log: log}
}

// TriggerSweep godoc
// @Summary Run the daily sweep now
// @Description Kick off the staleness scan and tax reconciliation outside the cron schedule
// @Tags Admin
// @Produce json
// @Success 202 {object} map[string]string
// @Router /api/v1/admin/sweep [post]
func (h *AdminHandler) TriggerSweep(c echo.Context) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()

		if err := h.sweeper.Run(ctx); err != nil {
			h.log.Error("manual sweep failed", "error", err)
			return
		}
		h.log.Info("manual sweep completed")
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"status": "sweep started"})
}
