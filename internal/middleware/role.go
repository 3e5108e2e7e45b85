package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/edu-platform/internal/model"
)

// RequireRole returns a middleware that lets the request through only when
// the role stored by JWTAuth is one of kinds. Anything else is answered
// with 403 Forbidden.
func RequireRole(kinds ...model.Kind) echo.MiddlewareFunc {
	// Set of allowed roles; the value is always true when present.
	allowed := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		allowed[string(k)] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
