package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/edu-platform/internal/apperr"
	"github.com/iliyamo/edu-platform/internal/metrics"
	"github.com/iliyamo/edu-platform/internal/model"
	"github.com/iliyamo/edu-platform/internal/repository"
	"github.com/iliyamo/edu-platform/internal/utils"
)

// Login authenticates an account of kind by phone, email or unique code
// and starts a new session.
func (s *Service) Login(ctx context.Context, kind model.Kind, identifier, password string) (*Session, error) {
	if identifier == "" || password == "" {
		return nil, apperr.Validation("identifier and password are required")
	}
	a, err := s.accounts.FindByIdentifier(ctx, kind, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.AuthEvent("login", "bad_credentials")
		return nil, apperr.Auth("unknown identifier")
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if !utils.VerifyPassword(a.PasswordHash, password) {
		metrics.AuthEvent("login", "bad_credentials")
		return nil, apperr.Auth("wrong password")
	}
	sess, err := s.startSession(ctx, a)
	if err != nil {
		return nil, err
	}
	metrics.AuthEvent("login", "ok")
	return sess, nil
}

// startSession mints an access/refresh pair and appends the refresh token
// to the account's active list.
func (s *Service) startSession(ctx context.Context, a *model.Account) (*Session, error) {
	access, refresh, err := s.mint(a)
	if err != nil {
		return nil, err
	}
	err = s.tokens.Push(ctx, a.ID, utils.HashToken(refresh.Token), refresh.Exp, s.cfg.MaxActive)
	if errors.Is(err, repository.ErrSessionLimit) {
		metrics.AuthEvent("login", "session_limit")
		return nil, apperr.Capacity("maximum of %d active sessions reached, log out another device first", s.cfg.MaxActive)
	}
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return newSession(a, access, refresh), nil
}

func (s *Service) mint(a *model.Account) (utils.SignedToken, utils.SignedToken, error) {
	access, err := utils.NewAccessToken(s.cfg.Secret, a.ID, string(a.Kind), s.cfg.AccessTTL)
	if err != nil {
		return utils.SignedToken{}, utils.SignedToken{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.Secret, a.ID, string(a.Kind), s.cfg.RefreshTTL)
	if err != nil {
		return utils.SignedToken{}, utils.SignedToken{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return access, refresh, nil
}

func newSession(a *model.Account, access, refresh utils.SignedToken) *Session {
	return &Session{
		Profile: a.Profile(),
		Access:  Token{Value: access.Token, Expires: access.Exp},
		Refresh: Token{Value: refresh.Token, Expires: refresh.Exp},
	}
}

// Refresh exchanges a refresh token of kind for a new pair. The presented
// token is removed from the active list in the same transaction that adds
// the new one; a token that was already rotated away or logged out fails
// with ErrAuth. The old token is not blacklisted.
func (s *Service) Refresh(ctx context.Context, kind model.Kind, raw string) (*Session, error) {
	if raw == "" {
		return nil, apperr.Auth("missing refresh token")
	}
	hash := utils.HashToken(raw)
	revoked, err := s.blacklist.Contains(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		metrics.AuthEvent("refresh", "revoked")
		return nil, apperr.Auth("refresh token revoked")
	}
	claims := s.Decode(raw)
	if claims == nil || claims.Type != utils.TokenTypeRefresh || claims.Role != string(kind) {
		metrics.AuthEvent("refresh", "invalid")
		return nil, apperr.Auth("invalid refresh token")
	}
	id, err := claims.AccountID()
	if err != nil {
		return nil, apperr.Auth("invalid refresh token subject")
	}
	a, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && a.Kind != kind) {
		return nil, apperr.Auth("account for refresh token no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	access, refresh, err := s.mint(a)
	if err != nil {
		return nil, err
	}
	err = s.tokens.Rotate(ctx, a.ID, hash, utils.HashToken(refresh.Token), refresh.Exp)
	if errors.Is(err, repository.ErrTokenNotActive) {
		log.Warnf("auth: refresh token reuse for account %d", a.ID)
		metrics.AuthEvent("refresh", "reuse")
		return nil, apperr.Auth("refresh token not active")
	}
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	metrics.AuthEvent("refresh", "ok")
	return newSession(a, access, refresh), nil
}

// Logout ends the session of a refresh token: the token leaves the active
// list and is blacklisted until it expires, so a replay is rejected even
// before the active-list check runs.
func (s *Service) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return apperr.Validation("refresh token is required")
	}
	claims := s.Decode(raw)
	if claims == nil || claims.Type != utils.TokenTypeRefresh {
		return apperr.Auth("invalid refresh token")
	}
	id, err := claims.AccountID()
	if err != nil {
		return apperr.Auth("invalid refresh token subject")
	}
	hash := utils.HashToken(raw)
	if _, err := s.tokens.Pull(ctx, id, hash); err != nil {
		return fmt.Errorf("pull refresh token: %w", err)
	}
	if err := s.blacklist.Add(ctx, hash, time.Until(claims.ExpiresAt.Time)); err != nil {
		return fmt.Errorf("blacklist refresh token: %w", err)
	}
	metrics.AuthEvent("logout", "ok")
	return nil
}

// LogoutAll drops every active refresh token of an account.
func (s *Service) LogoutAll(ctx context.Context, accountID uint64) error {
	if err := s.tokens.Clear(ctx, accountID); err != nil {
		return fmt.Errorf("clear refresh tokens: %w", err)
	}
	return nil
}

// ActiveSessions returns the number of live refresh tokens of an account.
func (s *Service) ActiveSessions(ctx context.Context, accountID uint64) (int, error) {
	return s.tokens.Count(ctx, accountID)
}

// Decode verifies raw and returns its claims, or nil when the signature,
// algorithm or expiry check fails.
func (s *Service) Decode(raw string) *utils.Claims {
	claims, err := utils.ParseToken(s.cfg.Secret, raw)
	if err != nil {
		return nil
	}
	return claims
}
