// Package portal serves the token-scoped review, PM and developer portals.
package portal

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/hub"
	"github.com/xiaot623/uatdesk/internal/service"
	"github.com/xiaot623/uatdesk/internal/transport/http/checklist"
	"github.com/xiaot623/uatdesk/internal/transport/http/respond"
)

const portalContextKey = "uat.portal"

// Prefixes maps each portal route prefix to its portal. The review portal is
// reachable under a short and a long form.
var Prefixes = map[string]domain.Portal{
	"/r/:token":          domain.PortalReview,
	"/uat/review/:token": domain.PortalReview,
	"/p/:token":          domain.PortalPM,
	"/d/:token":          domain.PortalDeveloper,
}

// Handler handles portal requests.
type Handler struct {
	service  *service.Service
	wsServer *hub.Server
}

// NewHandler creates a portal handler. wsServer may be nil to disable live
// subscriptions.
func NewHandler(service *service.Service, wsServer *hub.Server) *Handler {
	return &Handler{
		service:  service,
		wsServer: wsServer,
	}
}

// RegisterRoutes registers every portal with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	shared := checklist.NewHandler(h.service)
	for prefix, portal := range Prefixes {
		g := e.Group(prefix, h.resolve(portal))
		g.GET("", h.GetContext)
		g.GET("/items", h.ListItems)
		g.GET("/events", h.ListEvents)
		g.GET("/ws", h.Subscribe)
		shared.RegisterRoutes(g)
	}
}

// resolve turns the path token into the portal caller.
func (h *Handler) resolve(portal domain.Portal) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			pc, err := h.service.ResolvePortal(c.Request().Context(), portal, c.Param("token"))
			if err != nil {
				return respond.Error(c, err)
			}
			c.Set(portalContextKey, pc)
			respond.SetAccess(c, service.PortalAccess(pc))
			return next(c)
		}
	}
}

func portalContext(c echo.Context) *domain.PortalContext {
	pc, _ := c.Get(portalContextKey).(*domain.PortalContext)
	return pc
}

// GetContext returns the caller, its session and whether the link is read-only.
// GET {portal}
func (h *Handler) GetContext(c echo.Context) error {
	return c.JSON(http.StatusOK, portalContext(c))
}

// ListItems returns the session's items with their derived status.
// GET {portal}/items
func (h *Handler) ListItems(c echo.Context) error {
	pc := portalContext(c)
	summary, err := h.service.GetSessionSummary(c.Request().Context(), respond.Access(c), pc.Session.SessionID)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, summary.Items)
}

// ListEvents returns session events newer than after (unix ms) for polling
// clients.
// GET {portal}/events?after=&limit=
func (h *Handler) ListEvents(c echo.Context) error {
	after, err := respond.QueryInt(c, "after")
	if err != nil {
		return respond.BadRequest(c, "after must be an integer")
	}
	limit, err := respond.QueryInt(c, "limit")
	if err != nil {
		return respond.BadRequest(c, "limit must be an integer")
	}

	pc := portalContext(c)
	events, err := h.service.ListEvents(c.Request().Context(), respond.Access(c), pc.Session.SessionID, after, int(limit))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// Subscribe upgrades to a WebSocket that receives the session's events.
// GET {portal}/ws
func (h *Handler) Subscribe(c echo.Context) error {
	if h.wsServer == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "live updates are disabled"})
	}
	pc := portalContext(c)
	// Serve has written the HTTP response by the time it returns.
	_ = h.wsServer.Serve(c.Response(), c.Request(), pc.Session.SessionID, pc.Actor)
	return nil
}
