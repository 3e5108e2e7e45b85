package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/edu-platform/internal/apperr"
	"github.com/iliyamo/edu-platform/internal/catalog"
)

func TestFailMapsErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", apperr.Validation("name is required"), http.StatusBadRequest, `{"error":"name is required"}`},
		{"auth hides reason", apperr.Auth("refresh token replayed"), http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"conflict", fmt.Errorf("register: %w", apperr.Conflict("phone already registered")), http.StatusConflict, `{"error":"phone already registered"}`},
		{"catalog level", &catalog.NotFoundError{Level: "term", Key: "third"}, http.StatusNotFound, `{"error":"term \"third\" not found"}`},
		{"capacity", apperr.Capacity("limit"), http.StatusTooManyRequests, `{"error":"too_many_sessions","message":"limit"}`},
		{"unclassified", errors.New("db down"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			assert.NoError(t, fail(c, tc.err))
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestCatalogPathRejectsEmptySegments(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("year", "term", "lang", "subject")
	c.SetParamValues("2025", "", "en", "math")

	_, err := catalogPath(c)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	c.SetParamValues("2025", "first", "en", "math")
	p, err := catalogPath(c)
	assert.NoError(t, err)
	assert.Equal(t, "2025/first/en/math", p.String())
}
