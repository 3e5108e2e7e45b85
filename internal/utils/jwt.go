package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA‑256 hashing for stored refresh tokens
	"encoding/hex"  // hex encoding of digests
	"errors"
	"strconv"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // unique jti per refresh token
)

// Token types carried in the "typ" claim. A refresh token is never accepted
// where an access token is expected and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ScopeResetPassword tags the short-lived token that authorizes a password
// reset. Only tokens carrying this scope can complete the flow.
const ScopeResetPassword = "reset_password_permission"

// ErrInvalidSubject is returned when the sub claim is not an account id.
var ErrInvalidSubject = errors.New("invalid subject claim")

// Claims is the payload of every token this service signs. Role holds the
// account kind, Type the token type and Scope an optional narrow grant.
type Claims struct {
	Role  string `json:"role,omitempty"`
	Type  string `json:"typ,omitempty"`
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim.
func (c *Claims) AccountID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidSubject
	}
	return id, nil
}

// SignedToken is a serialized JWT along with its expiry.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 access token for an account.
func NewAccessToken(secret string, accountID uint64, role string, ttl time.Duration) (SignedToken, error) {
	return sign(secret, accountID, Claims{Role: role, Type: TokenTypeAccess}, ttl)
}

// NewRefreshToken builds and signs an HS256 refresh token. Each token gets
// a random jti so two tokens minted in the same second never collide.
func NewRefreshToken(secret string, accountID uint64, role string, ttl time.Duration) (SignedToken, error) {
	c := Claims{Role: role, Type: TokenTypeRefresh}
	c.ID = uuid.NewString()
	return sign(secret, accountID, c, ttl)
}

// NewScopedToken signs a token limited to scope. It carries no typ claim,
// so it is rejected by both the access and refresh paths. The jti keeps two
// permits issued in the same second apart once one is retired.
func NewScopedToken(secret string, accountID uint64, role, scope string, ttl time.Duration) (SignedToken, error) {
	c := Claims{Role: role, Scope: scope}
	c.ID = uuid.NewString()
	return sign(secret, accountID, c, ttl)
}

func sign(secret string, accountID uint64, c Claims, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	c.Subject = strconv.FormatUint(accountID, 10)
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(exp)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// ParseToken verifies signature and expiry of raw. Only HS256 is accepted
// and tokens without exp are rejected.
func ParseToken(secret, raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// HashToken returns the SHA‑256 hash of a token as a hex string. Refresh
// tokens and blacklist keys are stored by hash only.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
