package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/edu-platform/internal/apperr"
	"github.com/iliyamo/edu-platform/internal/model"
	"github.com/iliyamo/edu-platform/internal/repository"
	"github.com/iliyamo/edu-platform/internal/utils"
)

// RequestPasswordReset stores a fresh code for the account of kind with
// this email and hands it to the notifier in the background. The result is
// the same whether or not the email is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, kind model.Kind, email string) error {
	email = repository.NormalizeEmail(email)
	if email == "" {
		return apperr.Validation("email is required")
	}
	a, err := s.accounts.FindByEmail(ctx, kind, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	code, err := utils.NewResetCode()
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}
	if err := s.resets.Save(ctx, string(kind), email, s.hashCode(code), s.cfg.ResetCodeTTL); err != nil {
		return fmt.Errorf("save reset code: %w", err)
	}
	go s.notifyReset(a.Email, a.Name, code)
	return nil
}

// notifyReset runs detached from the request: it has its own deadline and
// only logs failures.
func (s *Service) notifyReset(email, name, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
	defer cancel()
	if err := s.notifier.SendPasswordResetCode(ctx, email, name, code, s.cfg.ResetCodeTTL); err != nil {
		log.Errorf("auth: password reset notification for %s failed: %v", email, err)
	}
}

// VerifyResetCode consumes a reset code and returns a short-lived token
// whose scope authorizes exactly one password reset.
func (s *Service) VerifyResetCode(ctx context.Context, kind model.Kind, email, code string) (*Token, error) {
	email = repository.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, apperr.Validation("email and code are required")
	}
	ok, err := s.resets.Consume(ctx, string(kind), email, s.hashCode(code))
	if err != nil {
		return nil, fmt.Errorf("consume reset code: %w", err)
	}
	if !ok {
		return nil, apperr.Auth("invalid or expired reset code")
	}
	a, err := s.accounts.FindByEmail(ctx, kind, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Auth("account no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	permit, err := utils.NewScopedToken(s.cfg.Secret, a.ID, string(a.Kind), utils.ScopeResetPassword, s.cfg.ResetPermitTTL)
	if err != nil {
		return nil, fmt.Errorf("issue reset permission: %w", err)
	}
	return &Token{Value: permit.Token, Expires: permit.Exp}, nil
}

// ResetPassword sets a new password using a reset permission token and
// ends every session of the account. The permission token is single use:
// it is claimed in the blacklist before the password changes, so of two
// concurrent resets with the same token only one proceeds.
func (s *Service) ResetPassword(ctx context.Context, permission, password, confirm string) error {
	claims := s.Decode(permission)
	if claims == nil || claims.Scope != utils.ScopeResetPassword {
		return apperr.Auth("missing reset permission")
	}
	id, err := claims.AccountID()
	if err != nil {
		return apperr.Auth("invalid reset permission subject")
	}
	if password == "" {
		return apperr.Validation("new password is required")
	}
	if password != confirm {
		return apperr.Validation("passwords do not match")
	}
	claimed, err := s.blacklist.Claim(ctx, utils.HashToken(permission), time.Until(claims.ExpiresAt.Time))
	if err != nil {
		return fmt.Errorf("claim reset permission: %w", err)
	}
	if !claimed {
		return apperr.Auth("reset permission already used")
	}
	if _, err := s.accounts.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Auth("account no longer exists")
		}
		return fmt.Errorf("load account: %w", err)
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, id, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.tokens.Clear(ctx, id); err != nil {
		return fmt.Errorf("clear refresh tokens: %w", err)
	}
	return nil
}

// hashCode keys the stored code hash with the signing secret so a leaked
// Redis value cannot be brute-forced offline.
func (s *Service) hashCode(code string) string {
	return utils.HashToken(s.cfg.Secret + ":" + code)
}
