package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/importer"
	"github.com/xiaot623/uatdesk/internal/transport/http/respond"
)

// CreateSession creates a draft session.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req domain.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return respond.BadRequest(c, "invalid request body")
	}

	session, err := h.service.CreateSession(c.Request().Context(), respond.Access(c), req)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// ImportSession creates a session from a YAML checklist document.
// POST /v1/sessions/import
func (h *Handler) ImportSession(c echo.Context) error {
	doc, err := importer.Load(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":    "invalid checklist",
			"problems": []*importer.ValidationError{{Phase: importer.PhaseStructural, Message: err.Error()}},
		})
	}

	res, err := importer.Apply(c.Request().Context(), h.service, respond.Access(c), doc)
	if err != nil {
		var invalid *importer.InvalidDocumentError
		if errors.As(err, &invalid) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":    "invalid checklist",
				"problems": invalid.Problems,
			})
		}
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListSessions lists sessions, optionally filtered by owner.
// GET /v1/sessions?owner=
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context(), respond.Access(c), c.QueryParam("owner"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// GetSession returns one session.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.service.GetSession(c.Request().Context(), respond.Access(c), c.Param("session_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// UpdateSession edits a session or moves it through its lifecycle.
// PATCH /v1/sessions/:session_id
func (h *Handler) UpdateSession(c echo.Context) error {
	var req domain.UpdateSessionRequest
	if err := c.Bind(&req); err != nil {
		return respond.BadRequest(c, "invalid request body")
	}

	session, err := h.service.UpdateSession(c.Request().Context(), respond.Access(c), c.Param("session_id"), req)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// DeleteSession deletes a session and everything it owns.
// DELETE /v1/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.service.DeleteSession(c.Request().Context(), respond.Access(c), c.Param("session_id")); err != nil {
		return respond.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetSessionSummary returns every item with its derived status.
// GET /v1/sessions/:session_id/summary
// GET /uat/sessions/:session_id
func (h *Handler) GetSessionSummary(c echo.Context) error {
	summary, err := h.service.GetSessionSummary(c.Request().Context(), respond.Access(c), c.Param("session_id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// ListEvents returns session events newer than after (unix ms).
// GET /v1/sessions/:session_id/events?after=&limit=
func (h *Handler) ListEvents(c echo.Context) error {
	after, err := respond.QueryInt(c, "after")
	if err != nil {
		return respond.BadRequest(c, "after must be an integer")
	}
	limit, err := respond.QueryInt(c, "limit")
	if err != nil {
		return respond.BadRequest(c, "limit must be an integer")
	}

	events, err := h.service.ListEvents(c.Request().Context(), respond.Access(c), c.Param("session_id"), after, int(limit))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// SendSessionUpdate emails the session status to everyone on it. Delivery
// failures come back as success=false with a 200.
// POST /v1/sessions/:session_id/notify
func (h *Handler) SendSessionUpdate(c echo.Context) error {
	var req domain.NotifyRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return respond.BadRequest(c, "invalid request body")
		}
	}

	res, err := h.service.SendSessionUpdate(c.Request().Context(), respond.Access(c), c.Param("session_id"), req.CustomDomain)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
