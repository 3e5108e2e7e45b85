package middleware

// identity.go holds helpers that read the principal stored by JWTAuth. The
// rate limiter and the response cache key on it; handlers use AccountID.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// AccountID returns the authenticated account id, or false when the request
// did not pass through JWTAuth.
func AccountID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ContextUserID).(uint64)
	return id, ok && id != 0
}

// principal identifies the caller for rate limiting: the account id when
// authenticated, otherwise the client IP.
func principal(c echo.Context) string {
	if id, ok := AccountID(c); ok {
		return "acct:" + strconv.FormatUint(id, 10)
	}
	return "ip:" + c.RealIP()
}
