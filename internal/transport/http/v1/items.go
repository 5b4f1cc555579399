package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/transport/http/respond"
)

// CreateItem adds a checklist item to a session.
// POST /v1/sessions/:session_id/items
func (h *Handler) CreateItem(c echo.Context) error {
	var req domain.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return respond.BadRequest(c, "invalid request body")
	}

	item, err := h.service.CreateItem(c.Request().Context(), respond.Access(c), c.Param("session_id"), req)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// ListItems lists a session's items in order.
// GET /v1/sessions/:session_id/items
func (h *Handler) ListItems(c echo.Context) error {
	items, err := h.service.ListItems(c.Request().Context(), respond.Access(c), c.Param("session_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// GetItem returns one item.
// GET /v1/items/:item_id
func (h *Handler) GetItem(c echo.Context) error {
	item, err := h.service.GetItem(c.Request().Context(), respond.Access(c), c.Param("item_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// UpdateItem edits an item.
// PATCH /v1/items/:item_id
func (h *Handler) UpdateItem(c echo.Context) error {
	var req domain.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return respond.BadRequest(c, "invalid request body")
	}

	item, err := h.service.UpdateItem(c.Request().Context(), respond.Access(c), c.Param("item_id"), req)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteItem deletes an item with its steps, runs and comments.
// DELETE /v1/items/:item_id
func (h *Handler) DeleteItem(c echo.Context) error {
	if err := h.service.DeleteItem(c.Request().Context(), respond.Access(c), c.Param("item_id")); err != nil {
		return respond.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateStep appends a step to an item.
// POST /v1/items/:item_id/steps
func (h *Handler) CreateStep(c echo.Context) error {
	var req domain.StepInput
	if err := c.Bind(&req); err != nil {
		return respond.BadRequest(c, "invalid request body")
	}

	step, err := h.service.CreateStep(c.Request().Context(), respond.Access(c), c.Param("item_id"), req)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusCreated, step)
}

// UpdateStep replaces a step's editable fields.
// PATCH /v1/steps/:step_id
func (h *Handler) UpdateStep(c echo.Context) error {
	var req domain.StepInput
	if err := c.Bind(&req); err != nil {
		return respond.BadRequest(c, "invalid request body")
	}

	step, err := h.service.UpdateStep(c.Request().Context(), respond.Access(c), c.Param("step_id"), req)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, step)
}

// DeleteStep removes a step.
// DELETE /v1/steps/:step_id
func (h *Handler) DeleteStep(c echo.Context) error {
	if err := h.service.DeleteStep(c.Request().Context(), respond.Access(c), c.Param("step_id")); err != nil {
		return respond.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CloseRun closes a run without starting another.
// POST /v1/runs/:run_id/close
func (h *Handler) CloseRun(c echo.Context) error {
	run, err := h.service.CloseRun(c.Request().Context(), respond.Access(c), c.Param("run_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, run)
}
