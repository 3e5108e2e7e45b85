package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/edu-platform/internal/auth"
	"github.com/iliyamo/edu-platform/internal/config"
	"github.com/iliyamo/edu-platform/internal/model"
)

// AuthHandler serves the credential endpoints of one account kind. The
// student, admin and teacher route groups each get their own instance.
type AuthHandler struct {
	Auth   *auth.Service
	Kind   model.Kind
	Cookie config.CookieConfig
}

func NewAuthHandler(svc *auth.Service, kind model.Kind, cookie config.CookieConfig) *AuthHandler {
	if svc == nil {
		panic("nil auth service passed to NewAuthHandler")
	}
	return &AuthHandler{Auth: svc, Kind: kind, Cookie: cookie}
}

// ----- DTOs -----

type loginReq struct {
	Identifier string `json:"identifier"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	UniqueCode string `json:"unique_code"`
	Password   string `json:"password"`
}

// identifier returns the first non-empty of identifier, phone, email and
// unique_code.
func (r loginReq) identifier() string {
	for _, v := range []string{r.Identifier, r.Phone, r.Email, r.UniqueCode} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotReq struct {
	Email string `json:"email"`
}

type verifyReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetReq struct {
	PermissionToken string `json:"permission_token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type authResp struct {
	User    model.Profile `json:"user"`
	Access  auth.Token    `json:"access"`
	Refresh auth.Token    `json:"refresh"`
}

func (h *AuthHandler) session(c echo.Context, status int, s *auth.Session) error {
	h.setRefreshCookie(c, s.Refresh.Value, s.Refresh.Expires)
	return c.JSON(status, authResp{User: s.Profile, Access: s.Access, Refresh: s.Refresh})
}

// setRefreshCookie writes the refresh token cookie. An empty value with a
// past expiry clears it.
func (h *AuthHandler) setRefreshCookie(c echo.Context, value string, exp time.Time) {
	ck := &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    value,
		Path:     h.Cookie.Path,
		Domain:   h.Cookie.Domain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteNoneMode,
	}
	if value == "" {
		ck.MaxAge = -1
	}
	c.SetCookie(ck)
}

// refreshToken reads the refresh token from the cookie, falling back to
// the JSON body.
func (h *AuthHandler) refreshToken(c echo.Context) string {
	if ck, err := c.Cookie(h.Cookie.Name); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req refreshReq
	_ = c.Bind(&req)
	return strings.TrimSpace(req.RefreshToken)
}

// Register creates a student and returns its first session.
func (h *AuthHandler) Register(c echo.Context) error {
	var req auth.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.Register(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return h.session(c, http.StatusCreated, s)
}

// Login: verify credentials and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.Login(ctx, h.Kind, req.identifier(), req.Password)
	if err != nil {
		return fail(c, err)
	}
	return h.session(c, http.StatusOK, s)
}

// Refresh: rotate the presented refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.refreshToken(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.Refresh(ctx, h.Kind, raw)
	if err != nil {
		return fail(c, err)
	}
	return h.session(c, http.StatusOK, s)
}

// Logout: revoke the presented refresh token and clear the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := h.refreshToken(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, raw); err != nil {
		return fail(c, err)
	}
	h.setRefreshCookie(c, "", time.Unix(0, 0))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// ForgotPassword answers the same way whether or not the email exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.RequestPasswordReset(ctx, h.Kind, req.Email); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if the email is registered, a reset code has been sent"})
}

// VerifyResetCode exchanges an emailed code for a reset permission token.
func (h *AuthHandler) VerifyResetCode(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	permit, err := h.Auth.VerifyResetCode(ctx, h.Kind, req.Email, req.Code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"permission_token": permit.Value, "expires": permit.Expires})
}

// ResetPassword takes the permission token from the Authorization header
// or the body.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	permit := strings.TrimSpace(req.PermissionToken)
	if hdr := c.Request().Header.Get(echo.HeaderAuthorization); permit == "" && strings.HasPrefix(hdr, "Bearer ") {
		permit = strings.TrimSpace(strings.TrimPrefix(hdr, "Bearer "))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, permit, req.NewPassword, req.ConfirmPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated, please log in again"})
}
