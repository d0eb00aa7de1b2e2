package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/equipment-lending/portal/internal/model"
)

// ListEquipment godoc
// @Summary  List the equipment catalog
// @Tags     equipment
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} model.Equipment
// @Router   /equipment [get]
func (h *Handler) ListEquipment(c echo.Context) error {
	items, err := h.equipmentSvc.ListEquipment(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetEquipment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	eq, err := h.equipmentSvc.GetEquipment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, eq)
}

// CreateEquipment godoc
// @Summary  Add a catalog item, every unit starts available
// @Tags     equipment
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    input body model.EquipmentInput true "equipment"
// @Success  201 {object} model.Equipment
// @Failure  400 {object} echo.HTTPError
// @Failure  403 {object} echo.HTTPError
// @Router   /equipment [post]
func (h *Handler) CreateEquipment(c echo.Context) error {
	var in model.EquipmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	eq, err := h.equipmentSvc.CreateEquipment(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, eq)
}

func (h *Handler) UpdateEquipment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in model.EquipmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	eq, err := h.equipmentSvc.UpdateEquipment(c.Request().Context(), id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, eq)
}

// DeleteEquipment godoc
// @Summary  Delete a catalog item without active or historical requests
// @Tags     equipment
// @Security BearerAuth
// @Success  204
// @Failure  409 {object} echo.HTTPError
// @Router   /equipment/{id} [delete]
func (h *Handler) DeleteEquipment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.equipmentSvc.DeleteEquipment(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
