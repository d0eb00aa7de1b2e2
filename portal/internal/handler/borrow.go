package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/equipment-lending/pkg/auth"
	"github.com/Astemirdum/equipment-lending/portal/internal/model"
)

// CreateBorrowRequest godoc
// @Summary  Request equipment for a date range
// @Tags     borrow
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    input body model.CreateBorrowRequest true "request"
// @Success  201 {object} model.BorrowRequest
// @Failure  400 {object} echo.HTTPError
// @Router   /borrow/request [post]
func (h *Handler) CreateBorrowRequest(c echo.Context) error {
	p, err := actor(c)
	if err != nil {
		return err
	}
	var req model.CreateBorrowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.borrowSvc.CreateBorrowRequest(c.Request().Context(), p, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListPending(c echo.Context) error {
	items, err := h.borrowSvc.ListPending(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListIssued(c echo.Context) error {
	items, err := h.borrowSvc.ListIssued(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListMine(c echo.Context) error {
	p, err := actor(c)
	if err != nil {
		return err
	}
	items, err := h.borrowSvc.ListMine(c.Request().Context(), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// Approve godoc
// @Summary  Approve a pending request, comment optional
// @Tags     borrow
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    input body model.ActionRequest false "comment"
// @Success  200 {object} model.BorrowRequest
// @Failure  409 {object} echo.HTTPError
// @Router   /borrow/{id}/approve [put]
func (h *Handler) Approve(c echo.Context) error {
	return h.commented(c, h.borrowSvc.Approve)
}

// Reject godoc
// @Summary  Reject a pending request with a mandatory comment
// @Tags     borrow
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    input body model.ActionRequest true "comment"
// @Success  200 {object} model.BorrowRequest
// @Failure  400 {object} echo.HTTPError
// @Failure  409 {object} echo.HTTPError
// @Router   /borrow/{id}/reject [put]
func (h *Handler) Reject(c echo.Context) error {
	return h.commented(c, h.borrowSvc.Reject)
}

func (h *Handler) Issue(c echo.Context) error {
	return h.plain(c, h.borrowSvc.Issue)
}

func (h *Handler) Return(c echo.Context) error {
	return h.plain(c, h.borrowSvc.Return)
}

type (
	commentedAction func(ctx context.Context, actor auth.Profile, id int64, comment string) (model.BorrowRequest, error)
	plainAction     func(ctx context.Context, actor auth.Profile, id int64) (model.BorrowRequest, error)
)

func (h *Handler) commented(c echo.Context, do commentedAction) error {
	p, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	// an empty body of unknown length is an approve without comment
	var req model.ActionRequest
	if err := c.Bind(&req); err != nil && !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := do(c.Request().Context(), p, id, req.Comment)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) plain(c echo.Context, do plainAction) error {
	p, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	updated, err := do(c.Request().Context(), p, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}
