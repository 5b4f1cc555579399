package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/transport/http/respond"
)

// CreateGuest issues a guest link.
// POST /v1/sessions/:session_id/guests
func (h *Handler) CreateGuest(c echo.Context) error {
	var req domain.CreateGuestRequest
	if err := c.Bind(&req); err != nil {
		return respond.BadRequest(c, "invalid request body")
	}

	guest, err := h.service.CreateGuest(c.Request().Context(), respond.Access(c), c.Param("session_id"), req)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusCreated, guest)
}

// ListGuests lists a session's guests.
// GET /v1/sessions/:session_id/guests
func (h *Handler) ListGuests(c echo.Context) error {
	guests, err := h.service.ListGuests(c.Request().Context(), respond.Access(c), c.Param("session_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, guests)
}

// DeleteGuest revokes a guest link.
// DELETE /v1/sessions/:session_id/guests/:guest_id
func (h *Handler) DeleteGuest(c echo.Context) error {
	if err := h.service.DeleteGuest(c.Request().Context(), respond.Access(c), c.Param("session_id"), c.Param("guest_id")); err != nil {
		return respond.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateCollaborator issues a PM link.
// POST /v1/sessions/:session_id/collaborators
func (h *Handler) CreateCollaborator(c echo.Context) error {
	var req domain.CreateCollaboratorRequest
	if err := c.Bind(&req); err != nil {
		return respond.BadRequest(c, "invalid request body")
	}

	collaborator, err := h.service.CreateCollaborator(c.Request().Context(), respond.Access(c), c.Param("session_id"), req)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusCreated, collaborator)
}

// ListCollaborators lists a session's PM collaborators.
// GET /v1/sessions/:session_id/collaborators
func (h *Handler) ListCollaborators(c echo.Context) error {
	collaborators, err := h.service.ListCollaborators(c.Request().Context(), respond.Access(c), c.Param("session_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, collaborators)
}

// DeleteCollaborator revokes a PM link.
// DELETE /v1/sessions/:session_id/collaborators/:collaborator_id
func (h *Handler) DeleteCollaborator(c echo.Context) error {
	if err := h.service.DeleteCollaborator(c.Request().Context(), respond.Access(c), c.Param("session_id"), c.Param("collaborator_id")); err != nil {
		return respond.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
