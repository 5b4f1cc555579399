// Package http provides the HTTP server for the UAT service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/uatdesk/internal/hub"
	"github.com/xiaot623/uatdesk/internal/service"
	"github.com/xiaot623/uatdesk/internal/transport/http/portal"
	v1 "github.com/xiaot623/uatdesk/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server: the internal API under
// /v1 and the token portals.
func NewServer(svc *service.Service, wsServer *hub.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)
	portalHandler := portal.NewHandler(svc, wsServer)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	portalHandler.RegisterRoutes(e)

	return e
}
