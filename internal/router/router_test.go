package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/edu-platform/internal/auth"
	"github.com/iliyamo/edu-platform/internal/catalog"
	"github.com/iliyamo/edu-platform/internal/config"
	"github.com/iliyamo/edu-platform/internal/handler"
	"github.com/iliyamo/edu-platform/internal/ledger"
	"github.com/iliyamo/edu-platform/internal/middleware"
	"github.com/iliyamo/edu-platform/internal/model"
	"github.com/iliyamo/edu-platform/internal/payment"
	"github.com/iliyamo/edu-platform/internal/repository"
	"github.com/iliyamo/edu-platform/internal/router"
	"github.com/iliyamo/edu-platform/internal/testutil"
)

const (
	secret     = "router-test-secret"
	cookieName = "refresh_token"
)

type server struct {
	e    *echo.Echo
	auth *auth.Service
	rdb  *redis.Client
}

func newServer(t *testing.T, maxActive int) *server {
	t.Helper()
	_, rdb := testutil.NewRedis(t)
	accounts := testutil.NewAccounts()

	authSvc := auth.NewService(auth.Config{
		Secret:         secret,
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     24 * time.Hour,
		ResetCodeTTL:   10 * time.Minute,
		ResetPermitTTL: 5 * time.Minute,
		MaxActive:      maxActive,
		BcryptCost:     bcrypt.MinCost,
	}, accounts, testutil.NewTokens(),
		repository.NewBlacklistStore(rdb, "test"),
		repository.NewResetCodeStore(rdb, "test"),
		testutil.NewNotifier())

	cacheCfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "test-cache",
		MaxBodyBytes: 1 << 20,
	}
	catalogSvc := catalog.NewService(testutil.NewCatalogStore(), func(ctx context.Context) {
		require.NoError(t, middleware.InvalidateCache(ctx, rdb, cacheCfg.Prefix))
	})
	receipts := testutil.NewReceipts()
	ledgerSvc := ledger.NewService(accounts, receipts, testutil.NewPayments(receipts), catalogSvc,
		payment.NewStubGateway("https://pay.example.test/checkout"), "card")

	cookie := config.CookieConfig{Name: cookieName, Path: "/"}
	h := router.Handlers{
		StudentAuth: handler.NewAuthHandler(authSvc, model.KindStudent, cookie),
		AdminAuth:   handler.NewAuthHandler(authSvc, model.KindAdmin, cookie),
		TeacherAuth: handler.NewAuthHandler(authSvc, model.KindTeacher, cookie),
		Accounts:    handler.NewAccountHandler(authSvc),
		Catalog:     handler.NewCatalogHandler(catalogSvc),
		Ledger:      handler.NewLedgerHandler(ledgerSvc),
	}

	e := echo.New()
	router.RegisterRoutes(e, map[string]handler.Check{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	router.RegisterAuth(e, h, passthrough)
	router.RegisterStudent(e, h, secret)
	router.RegisterAdmin(e, h, secret)
	router.RegisterCatalog(e, h, middleware.NewRedisCache(cacheCfg, rdb))
	return &server{e: e, auth: authSvc, rdb: rdb}
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

type request struct {
	method, path string
	body         any
	token        string
	cookies      []*http.Cookie
}

func (s *server) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if r.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+r.token)
	}
	for _, ck := range r.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

type authBody struct {
	User   model.Profile `json:"user"`
	Access auth.Token    `json:"access"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == cookieName {
			return ck
		}
	}
	t.Fatalf("no %s cookie in response", cookieName)
	return nil
}

var student = map[string]string{
	"name":             "Mona",
	"phone":            "01000000001",
	"email":            "mona@example.com",
	"parent_phone":     "01000000002",
	"city":             "Cairo",
	"grade":            "10",
	"lang":             "en",
	"password":         "s3cret",
	"confirm_password": "s3cret",
}

func (s *server) registerStudent(t *testing.T) (*httptest.ResponseRecorder, authBody) {
	t.Helper()
	rec := s.do(t, request{method: http.MethodPost, path: "/v1/auth/register", body: student})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return rec, decode[authBody](t, rec)
}

func (s *server) adminToken(t *testing.T) string {
	t.Helper()
	_, err := s.auth.CreateStaff(context.Background(), auth.StaffInput{
		Kind: "admin", Name: "Root", Email: "root@example.com", Password: "adm1n-pass",
	})
	require.NoError(t, err)
	rec := s.do(t, request{method: http.MethodPost, path: "/v1/admin/auth/login",
		body: map[string]string{"email": "root@example.com", "password": "adm1n-pass"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authBody](t, rec).Access.Value
}

func TestStudentSessionLifecycle(t *testing.T) {
	s := newServer(t, 0)
	rec, body := s.registerStudent(t)
	assert.Equal(t, model.RedactedPassword, body.User.Password)
	first := refreshCookie(t, rec)
	assert.True(t, first.HttpOnly)

	rec = s.do(t, request{method: http.MethodGet, path: "/v1/students/me", token: body.Access.Value})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mona@example.com", decode[model.Profile](t, rec).Email)

	rec = s.do(t, request{method: http.MethodPost, path: "/v1/auth/refresh", cookies: []*http.Cookie{first}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := refreshCookie(t, rec)
	assert.NotEqual(t, first.Value, second.Value)

	rec = s.do(t, request{method: http.MethodPost, path: "/v1/auth/refresh", cookies: []*http.Cookie{first}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "replayed refresh token")
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	rec = s.do(t, request{method: http.MethodPost, path: "/v1/auth/logout", cookies: []*http.Cookie{second}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -1, refreshCookie(t, rec).MaxAge)

	rec = s.do(t, request{method: http.MethodPost, path: "/v1/auth/refresh",
		body: map[string]string{"refresh_token": second.Value}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "logged out token")
}

func TestRefreshCookieScopedPerKind(t *testing.T) {
	s := newServer(t, 0)
	rec, _ := s.registerStudent(t)
	assert.Equal(t, router.StudentAuthPrefix, refreshCookie(t, rec).Path)

	s.adminToken(t)
	rec = s.do(t, request{method: http.MethodPost, path: "/v1/admin/auth/login",
		body: map[string]string{"email": "root@example.com", "password": "adm1n-pass"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, router.AdminAuthPrefix, refreshCookie(t, rec).Path)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	s := newServer(t, 0)
	s.registerStudent(t)

	wrong := s.do(t, request{method: http.MethodPost, path: "/v1/auth/login",
		body: map[string]string{"phone": "01000000001", "password": "nope"}})
	unknown := s.do(t, request{method: http.MethodPost, path: "/v1/auth/login",
		body: map[string]string{"identifier": "ghost@example.com", "password": "nope"}})
	staff := s.do(t, request{method: http.MethodPost, path: "/v1/admin/auth/login",
		body: map[string]string{"phone": "01000000001", "password": "s3cret"}})

	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown, staff} {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	}
}

func TestSessionLimitAnswers429(t *testing.T) {
	s := newServer(t, 1)
	s.registerStudent(t)

	rec := s.do(t, request{method: http.MethodPost, path: "/v1/auth/login",
		body: map[string]string{"email": "mona@example.com", "password": "s3cret"}})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too_many_sessions", decode[map[string]string](t, rec)["error"])
}

func TestValidationErrorsAnswer400(t *testing.T) {
	s := newServer(t, 0)
	body := map[string]string{}
	for k, v := range student {
		body[k] = v
	}
	body["confirm_password"] = "different"
	rec := s.do(t, request{method: http.MethodPost, path: "/v1/auth/register", body: body})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.registerStudent(t)
	rec = s.do(t, request{method: http.MethodPost, path: "/v1/auth/register", body: student})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRoleGuards(t *testing.T) {
	s := newServer(t, 0)
	_, st := s.registerStudent(t)

	rec := s.do(t, request{method: http.MethodPut, path: "/v1/admin/catalog/2025/first/en/biology"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, request{method: http.MethodPut, path: "/v1/admin/catalog/2025/first/en/biology", token: st.Access.Value})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := s.adminToken(t)
	rec = s.do(t, request{method: http.MethodGet, path: "/v1/students/me", token: admin})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, request{method: http.MethodGet, path: "/v1/admins/me", token: admin})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogWritesRefreshCachedReads(t *testing.T) {
	s := newServer(t, 0)
	admin := s.adminToken(t)
	base := "/v1/admin/catalog/2025/first/en/biology"

	rec := s.do(t, request{method: http.MethodGet, path: "/v1/catalog/2025/first/en/biology"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, request{method: http.MethodPut, path: base, token: admin})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, request{method: http.MethodPost, path: base + "/chapters", token: admin,
		body: map[string]any{"title": "Cells", "price": 100}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ch := decode[catalog.Chapter](t, rec)

	type view struct {
		Chapters []catalog.Chapter `json:"chapters"`
		Lessons  []catalog.Lesson  `json:"lessons"`
	}
	rec = s.do(t, request{method: http.MethodGet, path: "/v1/catalog/2025/first/en/biology"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[view](t, rec).Chapters, 1)
	keys, err := s.rdb.Keys(context.Background(), "test-cache:*").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, keys, "subject read is cached")

	rec = s.do(t, request{method: http.MethodPost, path: base + "/lessons", token: admin,
		body: map[string]any{"chapter_id": ch.ID, "title": "Mitosis", "price": 10}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, request{method: http.MethodGet, path: "/v1/catalog/2025/first/en/biology"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[view](t, rec).Lessons, 1, "write flushed the cached subject")

	rec = s.do(t, request{method: http.MethodDelete, path: base + "/chapters/" + strconv.Itoa(ch.ID), token: admin})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, request{method: http.MethodGet, path: "/v1/catalog/2025/first/en/biology/lessons/1"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "lessons go with their chapter")

	rec = s.do(t, request{method: http.MethodGet, path: "/v1/catalog/2025/first/en/biology/chapters/abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, 0)
	rec := s.do(t, request{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(t, request{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPaymentWebhookGrantsContentOnce(t *testing.T) {
	s := newServer(t, 0)
	admin := s.adminToken(t)
	base := "/v1/admin/catalog/2025/first/en/biology"
	require.Equal(t, http.StatusOK, s.do(t, request{method: http.MethodPut, path: base, token: admin}).Code)
	rec := s.do(t, request{method: http.MethodPost, path: base + "/chapters", token: admin,
		body: map[string]any{"title": "Cells", "price": 100}})
	require.Equal(t, http.StatusCreated, rec.Code)
	ch := decode[catalog.Chapter](t, rec)

	_, st := s.registerStudent(t)
	rec = s.do(t, request{method: http.MethodPost, path: "/v1/payments/initiate", token: st.Access.Value,
		body: map[string]any{
			"item_type": "chapter",
			"item_id":   ch.ID,
			"path":      map[string]string{"year": "2025", "term": "first", "language": "en", "subject": "biology"},
		}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	initiated := decode[struct {
		Payment     model.Payment `json:"payment"`
		CheckoutURL string        `json:"checkout_url"`
	}](t, rec)
	assert.Equal(t, 100.0, initiated.Payment.Amount)
	assert.Contains(t, initiated.CheckoutURL, initiated.Payment.MerchantOrderID)

	callback := map[string]any{"merchant_order_id": initiated.Payment.MerchantOrderID, "success": true, "is_paid": true, "id": 9001}
	rec = s.do(t, request{method: http.MethodPost, path: "/v1/payments/webhook", body: callback})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"paid"}`, rec.Body.String())

	rec = s.do(t, request{method: http.MethodPost, path: "/v1/payments/webhook", body: callback})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"already_processed"}`, rec.Body.String())

	rec = s.do(t, request{method: http.MethodGet, path: "/v1/students/me/receipts", token: st.Access.Value})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Receipt](t, rec), 1)

	rec = s.do(t, request{method: http.MethodGet, path: "/v1/students/me/content/2025/first/en/biology", token: st.Access.Value})
	require.Equal(t, http.StatusOK, rec.Code)
	content := decode[struct {
		Chapters []json.RawMessage `json:"chapters"`
	}](t, rec)
	assert.Len(t, content.Chapters, 1)

	rec = s.do(t, request{method: http.MethodPost, path: "/v1/payments/webhook",
		body: map[string]any{"merchant_order_id": "unknown", "success": true, "is_paid": true}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
