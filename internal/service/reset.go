package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/grmaxv/users_api/internal/hash"
	"github.com/grmaxv/users_api/internal/logging"
	"github.com/grmaxv/users_api/internal/repo"
	"github.com/grmaxv/users_api/internal/tokens"
)

const defaultResetTTL = 15 * time.Minute

// RequestPasswordReset mints a short-lived reset token for the account's
// email and hands it to the notifier. Notifier failures are logged, never
// returned: SMTP outages must not leak into the auth API.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.password_reset")

	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEmailUnknown
		}
		l.Error("reset_request_failed", "reason", "db_error", "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	ttl := s.ResetTTL
	if ttl == 0 {
		ttl = defaultResetTTL
	}
	token, _, err := s.Codec.MintScoped(user.Email, tokens.ScopePasswordReset, ttl)
	if err != nil {
		l.Error("reset_request_failed", "reason", "cannot create token", "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if err := s.Mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		l.Error("reset_email_failed", "email", user.Email, "error", err)
	}

	l.Info("reset_requested", "email", user.Email)
	return nil
}

// ResetPassword applies a new password for the account named by a valid
// reset token. Only tokens minted with the password-reset scope are accepted,
// and a token works at most once: a successful reset puts it on the
// revocation ledger.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.password_reset_confirm")

	claims, err := s.Codec.Decode(token)
	if err != nil {
		l.Warn("reset_failed", "reason", reasonOf(err))
		return err
	}
	if claims.Scope != tokens.ScopePasswordReset {
		l.Warn("reset_failed", "reason", "wrong_scope")
		return ErrTokenMalformed
	}
	if len(newPassword) < minPasswordLen {
		return ErrWeakPassword
	}

	revoked, err := s.Repo.IsRevoked(ctx, token)
	if err != nil {
		l.Error("reset_failed", "reason", "db_error", "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if revoked {
		l.Warn("reset_failed", "reason", "token_revoked")
		return ErrTokenRevoked
	}

	user, err := s.Repo.UserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEmailUnknown
		}
		l.Error("reset_failed", "reason", "db_error", "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		l.Error("reset_failed", "reason", "cannot hash the password", "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if err := s.Repo.UpdatePassword(ctx, user.ID, pwHash); err != nil {
		l.Error("reset_failed", "reason", "db_error", "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if err := s.Repo.Revoke(ctx, token, claims.ExpiresAt.Time); err != nil && !errors.Is(err, repo.ErrAlreadyRevoked) {
		l.Error("reset_token_revoke_failed", "error", err)
	}

	l.Info("password_reset", "email", user.Email)
	return nil
}
