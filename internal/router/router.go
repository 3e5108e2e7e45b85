package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/edu-platform/internal/handler"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	StudentAuth *handler.AuthHandler
	AdminAuth   *handler.AuthHandler
	TeacherAuth *handler.AuthHandler
	Accounts    *handler.AccountHandler
	Catalog     *handler.CatalogHandler
	Ledger      *handler.LedgerHandler
}

// RegisterRoutes registers routes that need neither a session nor rate
// limiting: the health check and the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Check) {
	e.GET("/healthz", handler.Health(checks))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Credential route prefixes, one per account kind.
const (
	StudentAuthPrefix = "/v1/auth"
	AdminAuthPrefix   = "/v1/admin/auth"
	TeacherAuthPrefix = "/v1/teacher/auth"
)

// RegisterAuth registers the credential endpoints of every account kind.
// limit guards the endpoints that accept passwords or reset codes; refresh
// and logout are not throttled because they need a valid token anyway.
// Each kind's refresh cookie is scoped to its own prefix so a student and
// an admin session in one browser do not overwrite each other.
func RegisterAuth(e *echo.Echo, h Handlers, limit echo.MiddlewareFunc) {
	// Students register themselves and own the public /v1/auth prefix.
	s := mountCredentials(e, StudentAuthPrefix, h.StudentAuth, limit)
	s.POST("/register", h.StudentAuth.Register, limit)

	// Staff accounts are created by admins; they only log in here.
	mountCredentials(e, AdminAuthPrefix, h.AdminAuth, limit)
	mountCredentials(e, TeacherAuthPrefix, h.TeacherAuth, limit)
}

func mountCredentials(e *echo.Echo, prefix string, a *handler.AuthHandler, limit echo.MiddlewareFunc) *echo.Group {
	a.Cookie.Path = prefix
	g := e.Group(prefix)
	g.POST("/login", a.Login, limit)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/password/forgot", a.ForgotPassword, limit)
	g.POST("/password/verify", a.VerifyResetCode, limit)
	g.POST("/password/reset", a.ResetPassword, limit)
	return g
}
