package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/edu-platform/internal/auth"
	"github.com/iliyamo/edu-platform/internal/model"
)

// AccountHandler serves profile and staff-management endpoints.
type AccountHandler struct {
	Auth *auth.Service
}

func NewAccountHandler(svc *auth.Service) *AccountHandler {
	if svc == nil {
		panic("nil auth service passed to NewAccountHandler")
	}
	return &AccountHandler{Auth: svc}
}

// Me returns the redacted profile of the caller. The route group guard
// decides which kinds may call it.
func (h *AccountHandler) Me(c echo.Context) error {
	id, err := accountID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Auth.Account(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a.Profile())
}

// UpdateMe applies a partial profile update for a student.
func (h *AccountHandler) UpdateMe(c echo.Context) error {
	id, err := accountID(c)
	if err != nil {
		return fail(c, err)
	}
	var req auth.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Auth.UpdateProfile(ctx, id, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a.Profile())
}

// CreateStaff lets an admin add admin or teacher accounts.
func (h *AccountHandler) CreateStaff(c echo.Context) error {
	var req auth.StaffInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Auth.CreateStaff(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, a.Profile())
}

// LogoutAll ends every session of a student.
func (h *AccountHandler) LogoutAll(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Auth.Account(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if a.Kind != model.KindStudent {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
	}
	if err := h.Auth.LogoutAll(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "all sessions ended"})
}
