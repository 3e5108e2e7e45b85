package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/edu-platform/internal/middleware"
	"github.com/iliyamo/edu-platform/internal/model"
)

// RegisterStudent registers student-scoped endpoints. All routes require a
// valid access token with the student role, except the payment webhook,
// which the gateway calls without one.
func RegisterStudent(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group("/v1/students/me",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.KindStudent),
	)
	g.GET("", h.Accounts.Me)
	g.PUT("", h.Accounts.UpdateMe)
	g.GET("/receipts", h.Ledger.MyReceipts)
	g.GET("/content/:year/:term/:lang/:subject", h.Ledger.MyContent)

	e.POST("/v1/payments/initiate", h.Ledger.InitiatePayment,
		middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.KindStudent))
	e.POST("/v1/payments/webhook", h.Ledger.Webhook)

	e.GET("/v1/teachers/me", h.Accounts.Me,
		middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.KindTeacher))
}
