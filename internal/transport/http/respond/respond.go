// Package respond holds the request helpers shared by the internal API and the
// token portals.
package respond

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/service"
)

const accessKey = "uat.access"

// SetAccess stores the resolved caller on the request context.
func SetAccess(c echo.Context, access service.Access) {
	c.Set(accessKey, access)
}

// Access returns the caller stored by SetAccess.
func Access(c echo.Context) service.Access {
	access, _ := c.Get(accessKey).(service.Access)
	return access
}

// Error maps service errors onto HTTP statuses.
func Error(c echo.Context, err error) error {
	var ve *domain.ValidationError
	var fe *domain.ForbiddenError
	switch {
	case errors.As(err, &ve):
		body := map[string]string{"error": ve.Error()}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, domain.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": domain.ErrUnauthorized.Error()})
	case errors.As(err, &fe):
		return c.JSON(http.StatusForbidden, map[string]string{"error": fe.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, map[string]string{"error": domain.ErrForbidden.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		log.Printf("ERROR: %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// BadRequest answers 400 with msg.
func BadRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

// QueryInt parses an optional integer query parameter.
func QueryInt(c echo.Context, name string) (int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
