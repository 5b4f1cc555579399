// Package checklist serves the item, run and comment endpoints shared by the
// internal API and the token portals. The caller is resolved by the group's
// middleware before these handlers run.
package checklist

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/service"
	"github.com/xiaot623/uatdesk/internal/transport/http/respond"
)

// Handler handles checklist execution requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new checklist handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the shared routes on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/items/:item_id/steps", h.ListSteps)
	g.GET("/items/:item_id/summary", h.GetItemSummary)
	g.GET("/items/:item_id/active-run", h.GetActiveRun)
	g.GET("/items/:item_id/runs", h.ListRuns)
	g.POST("/items/:item_id/runs", h.StartRun)
	g.PATCH("/runs/:run_id/steps/:step_id", h.UpdateStepResult)

	g.GET("/items/:item_id/comments", h.ListComments)
	g.POST("/items/:item_id/comments", h.CreateComment)
	g.PATCH("/items/:item_id/comments/:comment_id", h.EditComment)
}

// ListSteps lists an item's steps.
// GET /items/:item_id/steps
func (h *Handler) ListSteps(c echo.Context) error {
	steps, err := h.service.ListSteps(c.Request().Context(), respond.Access(c), c.Param("item_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, steps)
}

// GetItemSummary returns an item with its derived status.
// GET /items/:item_id/summary
func (h *Handler) GetItemSummary(c echo.Context) error {
	summary, err := h.service.GetItemSummary(c.Request().Context(), respond.Access(c), c.Param("item_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// GetActiveRun returns the item's current run and results. The run is null
// before the first start.
// GET /items/:item_id/active-run
func (h *Handler) GetActiveRun(c echo.Context) error {
	active, err := h.service.GetActiveRun(c.Request().Context(), respond.Access(c), c.Param("item_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, active)
}

// ListRuns returns the item's run history.
// GET /items/:item_id/runs
func (h *Handler) ListRuns(c echo.Context) error {
	runs, err := h.service.ListRuns(c.Request().Context(), respond.Access(c), c.Param("item_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, runs)
}

// StartRun starts a new run, superseding the active one.
// POST /items/:item_id/runs
func (h *Handler) StartRun(c echo.Context) error {
	started, err := h.service.StartRun(c.Request().Context(), respond.Access(c), c.Param("item_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusCreated, started)
}

// UpdateStepResult records a step outcome.
// PATCH /runs/:run_id/steps/:step_id
func (h *Handler) UpdateStepResult(c echo.Context) error {
	var req domain.StepResultUpdateRequest
	if err := c.Bind(&req); err != nil {
		return respond.BadRequest(c, "invalid request body")
	}

	result, err := h.service.UpdateStepResult(c.Request().Context(), respond.Access(c), c.Param("run_id"), c.Param("step_id"), req)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListComments lists an item's comments.
// GET /items/:item_id/comments
func (h *Handler) ListComments(c echo.Context) error {
	comments, err := h.service.ListComments(c.Request().Context(), respond.Access(c), c.Param("item_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, comments)
}

// CreateComment posts a comment or reply.
// POST /items/:item_id/comments
func (h *Handler) CreateComment(c echo.Context) error {
	var req domain.CommentRequest
	if err := c.Bind(&req); err != nil {
		return respond.BadRequest(c, "invalid request body")
	}

	comment, err := h.service.CreateComment(c.Request().Context(), respond.Access(c), c.Param("item_id"), req)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// EditComment replaces the body of the caller's own comment.
// PATCH /items/:item_id/comments/:comment_id
func (h *Handler) EditComment(c echo.Context) error {
	var req domain.CommentRequest
	if err := c.Bind(&req); err != nil {
		return respond.BadRequest(c, "invalid request body")
	}

	comment, err := h.service.EditComment(c.Request().Context(), respond.Access(c), c.Param("item_id"), c.Param("comment_id"), req.Body)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, comment)
}
