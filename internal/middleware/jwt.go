package middleware // reusable HTTP middleware shared by every route group

import (
	"net/http" // HTTP status codes for responses
	"strings"  // prefix checks on the Authorization header

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/edu-platform/internal/utils" // token parsing shared with the auth service
)

// Context keys written by JWTAuth.
const (
	ContextUserID = "user_id" // uint64 account id from the "sub" claim
	ContextRole   = "role"    // account kind from the "role" claim
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the account id and role into the request context. Refresh
// tokens and reset permissions carry a different typ and are rejected, so
// only access tokens open protected routes. Every failure produces the
// same 401 body.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c)
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			// ParseToken pins HS256 and requires exp.
			claims, err := utils.ParseToken(secret, raw)
			if err != nil || claims.Type != utils.TokenTypeAccess {
				return unauthorized(c)
			}
			id, err := claims.AccountID()
			if err != nil {
				return unauthorized(c)
			}

			c.Set(ContextUserID, id)
			c.Set(ContextRole, claims.Role)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}
