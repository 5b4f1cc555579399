// Package v1 provides the internal staff API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/uatdesk/internal/service"
	"github.com/xiaot623/uatdesk/internal/transport/http/checklist"
	"github.com/xiaot623/uatdesk/internal/transport/http/respond"
)

// Headers set by the authenticating proxy in front of the internal API.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the internal API with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/v1", h.internalActor)

	// Sessions
	g.POST("/sessions", h.CreateSession)
	g.POST("/sessions/import", h.ImportSession)
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:session_id", h.GetSession)
	g.PATCH("/sessions/:session_id", h.UpdateSession)
	g.DELETE("/sessions/:session_id", h.DeleteSession)
	g.GET("/sessions/:session_id/summary", h.GetSessionSummary)
	g.GET("/sessions/:session_id/events", h.ListEvents)
	g.POST("/sessions/:session_id/notify", h.SendSessionUpdate)

	// Items and steps
	g.POST("/sessions/:session_id/items", h.CreateItem)
	g.GET("/sessions/:session_id/items", h.ListItems)
	g.GET("/items/:item_id", h.GetItem)
	g.PATCH("/items/:item_id", h.UpdateItem)
	g.DELETE("/items/:item_id", h.DeleteItem)
	g.POST("/items/:item_id/steps", h.CreateStep)
	g.PATCH("/steps/:step_id", h.UpdateStep)
	g.DELETE("/steps/:step_id", h.DeleteStep)
	g.POST("/runs/:run_id/close", h.CloseRun)

	// Portal links
	g.POST("/sessions/:session_id/guests", h.CreateGuest)
	g.GET("/sessions/:session_id/guests", h.ListGuests)
	g.DELETE("/sessions/:session_id/guests/:guest_id", h.DeleteGuest)
	g.POST("/sessions/:session_id/collaborators", h.CreateCollaborator)
	g.GET("/sessions/:session_id/collaborators", h.ListCollaborators)
	g.DELETE("/sessions/:session_id/collaborators/:collaborator_id", h.DeleteCollaborator)

	// Runs and comments
	checklist.NewHandler(h.service).RegisterRoutes(g)

	// Owner link in session update emails
	e.GET("/uat/sessions/:session_id", h.GetSessionSummary, h.internalActor)

	e.GET("/health", h.Health)
}

// internalActor resolves the staff member from the proxy headers.
func (h *Handler) internalActor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		actor, err := h.service.InternalActor(req.Header.Get(HeaderUserID), req.Header.Get(HeaderUserName), req.Header.Get(HeaderUserEmail))
		if err != nil {
			return respond.Error(c, err)
		}
		respond.SetAccess(c, service.InternalAccess(actor))
		return next(c)
	}
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
