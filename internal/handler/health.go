package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Check probes one backing service.
type Check func(ctx context.Context) error

// Health is used by load balancers and monitoring systems. It runs every
// check with a short deadline and answers 200 "ok" when all pass, 503 with
// the failing names otherwise.
func Health(checks map[string]Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		failed := echo.Map{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.Logger().Warnf("health: %s: %v", name, err)
				failed[name] = "down"
			}
		}
		if len(failed) > 0 {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "checks": failed})
		}
		return c.String(http.StatusOK, "ok")
	}
}
