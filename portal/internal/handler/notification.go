package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/equipment-lending/portal/internal/model"
)

func (h *Handler) ListOverdue(c echo.Context) error {
	items, err := h.notificationSvc.ListOverdueNotifications(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// CheckOverdue runs the overdue scan without waiting for the next tick.
func (h *Handler) CheckOverdue(c echo.Context) error {
	created, err := h.notificationSvc.CheckOverdue(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, model.OverdueCheckResult{Flagged: len(created)})
}
