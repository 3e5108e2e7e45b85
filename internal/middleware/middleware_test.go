package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/edu-platform/internal/config"
	"github.com/iliyamo/edu-platform/internal/model"
	"github.com/iliyamo/edu-platform/internal/testutil"
	"github.com/iliyamo/edu-platform/internal/utils"
)

const secret = "mw-secret"

func protected(e *echo.Echo) {
	g := e.Group("/me", JWTAuth(secret), RequireRole(model.KindStudent))
	g.GET("", func(c echo.Context) error {
		id, ok := AccountID(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id})
	})
}

func do(e *echo.Echo, method, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAcceptsOnlyAccessTokens(t *testing.T) {
	e := echo.New()
	protected(e)

	access, err := utils.NewAccessToken(secret, 42, "student", time.Minute)
	require.NoError(t, err)
	rec := do(e, http.MethodGet, "/me", access.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42}`, rec.Body.String())

	refresh, _ := utils.NewRefreshToken(secret, 42, "student", time.Minute)
	permit, _ := utils.NewScopedToken(secret, 42, "student", utils.ScopeResetPassword, time.Minute)
	expired, _ := utils.NewAccessToken(secret, 42, "student", -time.Minute)
	foreign, _ := utils.NewAccessToken("other", 42, "student", time.Minute)
	for name, tok := range map[string]string{
		"missing": "", "refresh": refresh.Token, "permit": permit.Token,
		"expired": expired.Token, "foreign": foreign.Token, "garbage": "abc",
	} {
		rec := do(e, http.MethodGet, "/me", tok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String(), name)
	}
}

func TestRequireRoleForbidsOtherKinds(t *testing.T) {
	e := echo.New()
	protected(e)

	admin, err := utils.NewAccessToken(secret, 1, "admin", time.Minute)
	require.NoError(t, err)
	rec := do(e, http.MethodGet, "/me", admin.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: time.Hour, KeyStrategy: "ip_route", Prefix: "rl",
	}
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/login", "").Code)
	rec := do(e, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(e, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/x", "").Code)
	}
}

func TestRedisCacheHitMissAndInvalidate(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "catalog-cache", MaxBodyBytes: 1 << 20,
	}
	calls := 0
	e := echo.New()
	e.GET("/catalog/:year", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"year": c.Param("year"), "calls": calls})
	}, NewRedisCache(cfg, rdb))

	rec := do(e, http.MethodGet, "/catalog/2025", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	first := rec.Body.String()

	rec = do(e, http.MethodGet, "/catalog/2025", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, first, rec.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))

	rec = do(e, http.MethodGet, "/catalog/2026", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"), "different path, different entry")
	assert.Equal(t, 2, calls)

	require.NoError(t, InvalidateCache(context.Background(), rdb, cfg.Prefix))
	rec = do(e, http.MethodGet, "/catalog/2025", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestRedisCacheSkipsErrorsAndLargeBodies(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		Prefix: "c", MaxBodyBytes: 8,
	}
	e := echo.New()
	e.GET("/missing", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "nope"})
	}, NewRedisCache(cfg, rdb))
	e.GET("/big", func(c echo.Context) error {
		return c.String(http.StatusOK, "this body is longer than eight bytes")
	}, NewRedisCache(cfg, rdb))

	do(e, http.MethodGet, "/missing", "")
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/missing", "").Header().Get("X-Cache"))
	do(e, http.MethodGet, "/big", "")
	rec := do(e, http.MethodGet, "/big", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "this body is longer than eight bytes", rec.Body.String())
}
