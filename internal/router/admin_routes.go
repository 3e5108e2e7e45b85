package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/edu-platform/internal/middleware"
	"github.com/iliyamo/edu-platform/internal/model"
)

// RegisterAdmin registers admin-scoped endpoints. All routes require a
// valid JWT and the admin role.
func RegisterAdmin(e *echo.Echo, h Handlers, jwtSecret string) {
	guard := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.KindAdmin)}

	e.GET("/v1/admins/me", h.Accounts.Me, guard...)

	g := e.Group("/v1/admin", guard...)

	// ---- Accounts ----
	g.POST("/staff", h.Accounts.CreateStaff)
	g.POST("/students/:id/logout-all", h.Accounts.LogoutAll)

	// ---- Receipts ----
	g.POST("/receipts", h.Ledger.IssueReceipt)
	g.GET("/students/:id/receipts", h.Ledger.StudentReceipts)

	// ---- Catalog ----
	c := g.Group("/catalog/:year/:term/:lang/:subject")
	c.PUT("", h.Catalog.EnsureSubject)
	c.POST("/chapters", h.Catalog.CreateChapter)
	c.PUT("/chapters/:id", h.Catalog.UpdateChapter)
	c.DELETE("/chapters/:id", h.Catalog.DeleteChapter)
	c.POST("/lessons", h.Catalog.CreateLesson)
	c.PUT("/lessons/:id", h.Catalog.UpdateLesson)
	c.DELETE("/lessons/:id", h.Catalog.DeleteLesson)
}
