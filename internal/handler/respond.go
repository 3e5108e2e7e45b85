package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/edu-platform/internal/apperr"
	"github.com/iliyamo/edu-platform/internal/catalog"
	"github.com/iliyamo/edu-platform/internal/middleware"
)

// requestTimeout bounds the storage work of one request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// fail maps a service error onto a status code. Auth failures always get
// the same body so clients cannot tell a wrong password from a revoked
// token. Unclassified errors are logged and hidden.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": apperr.Message(err, "invalid request")})
	case errors.Is(err, apperr.ErrAuth):
		c.Logger().Debugf("auth rejected: %v", err)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, apperr.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": apperr.Message(err, "conflict")})
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFoundMessage(err)})
	case errors.Is(err, apperr.ErrCapacity):
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":   "too_many_sessions",
			"message": apperr.Message(err, "too many active sessions"),
		})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func notFoundMessage(err error) string {
	var nf *catalog.NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	return apperr.Message(err, "not found")
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// accountID reads the id stored by JWTAuth.
func accountID(c echo.Context) (uint64, error) {
	id, ok := middleware.AccountID(c)
	if !ok {
		return 0, apperr.Auth("no principal in context")
	}
	return id, nil
}

func intParam(c echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n <= 0 {
		return 0, apperr.Validation("%s must be a positive integer", name)
	}
	return n, nil
}

func uintParam(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Validation("%s must be a positive integer", name)
	}
	return n, nil
}

// catalogPath reads the four path segments that address a subject.
func catalogPath(c echo.Context) (catalog.Path, error) {
	p := catalog.Path{
		Year:     c.Param("year"),
		Term:     c.Param("term"),
		Language: c.Param("lang"),
		Subject:  c.Param("subject"),
	}
	return p, p.Validate()
}
