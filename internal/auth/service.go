// Package auth implements account registration, login and the refresh
// token lifecycle: issuance, rotation, logout revocation and the password
// reset flow.
//
// A refresh token is usable while it is unexpired, present in its owner's
// active list and not blacklisted. Refresh removes the presented token and
// appends a new one in one transaction; logout removes it and blacklists it
// for the rest of its lifetime. Access tokens are stateless.
package auth

import (
	"context"
	"time"

	"github.com/iliyamo/edu-platform/internal/model"
)

// AccountStore is the account persistence the service needs.
type AccountStore interface {
	Create(ctx context.Context, a *model.Account) error
	GetByID(ctx context.Context, id uint64) (*model.Account, error)
	FindByIdentifier(ctx context.Context, kind model.Kind, identifier string) (*model.Account, error)
	FindByEmail(ctx context.Context, kind model.Kind, email string) (*model.Account, error)
	PhoneOrEmailTaken(ctx context.Context, kind model.Kind, phone, email string, excludeID uint64) (bool, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	UpdateProfile(ctx context.Context, a *model.Account) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

// TokenStore holds the active refresh token hashes of each account.
type TokenStore interface {
	Push(ctx context.Context, accountID uint64, tokenHash string, exp time.Time, limit int) error
	Rotate(ctx context.Context, accountID uint64, oldHash, newHash string, exp time.Time) error
	Pull(ctx context.Context, accountID uint64, tokenHash string) (bool, error)
	Clear(ctx context.Context, accountID uint64) error
	Count(ctx context.Context, accountID uint64) (int, error)
}

// Blacklist records revoked tokens until they expire.
type Blacklist interface {
	Add(ctx context.Context, tokenHash string, ttl time.Duration) error
	Contains(ctx context.Context, tokenHash string) (bool, error)
	Claim(ctx context.Context, tokenHash string, ttl time.Duration) (bool, error)
}

// ResetCodeStore keeps the latest reset code hash per kind and email.
type ResetCodeStore interface {
	Save(ctx context.Context, kind, email, codeHash string, ttl time.Duration) error
	Consume(ctx context.Context, kind, email, codeHash string) (bool, error)
}

// Notifier delivers password-reset codes. Failures never reach the caller
// of RequestPasswordReset.
type Notifier interface {
	SendPasswordResetCode(ctx context.Context, email, name, code string, validFor time.Duration) error
}

// Config carries the signing key and lifetimes.
type Config struct {
	Secret         string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	ResetCodeTTL   time.Duration
	ResetPermitTTL time.Duration
	MaxActive      int // 0 = unbounded
	BcryptCost     int
	NotifyTimeout  time.Duration
}

// Service is the auth and session manager.
type Service struct {
	cfg       Config
	accounts  AccountStore
	tokens    TokenStore
	blacklist Blacklist
	resets    ResetCodeStore
	notifier  Notifier
}

// NewService panics if a dependency is missing.
func NewService(cfg Config, accounts AccountStore, tokens TokenStore, blacklist Blacklist, resets ResetCodeStore, notifier Notifier) *Service {
	if accounts == nil || tokens == nil || blacklist == nil || resets == nil || notifier == nil {
		panic("nil dependency passed to auth.NewService")
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	return &Service{
		cfg:       cfg,
		accounts:  accounts,
		tokens:    tokens,
		blacklist: blacklist,
		resets:    resets,
		notifier:  notifier,
	}
}

// Session is the result of register, login and refresh.
type Session struct {
	Profile model.Profile
	Access  Token
	Refresh Token
}

// Token is a signed JWT with its expiry.
type Token struct {
	Value   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
