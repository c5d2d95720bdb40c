package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grmaxv/users_api/internal/hash"
	"github.com/grmaxv/users_api/internal/logging"
	"github.com/grmaxv/users_api/internal/mailer"
	"github.com/grmaxv/users_api/internal/models"
	"github.com/grmaxv/users_api/internal/mykafka"
	"github.com/grmaxv/users_api/internal/repo"
	"github.com/grmaxv/users_api/internal/tokens"
)

const minPasswordLen = 8

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type AuthService struct {
	Repo     repo.GormRepo
	Codec    *tokens.Codec
	Producer *mykafka.Producer
	Mailer   mailer.Notifier
	ResetTTL time.Duration
}

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if !emailRe.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	// Length is checked before any hash work is done.
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	exists, err := s.Repo.UserExists(ctx, username, email)
	if err != nil {
		l.Error("register_failed", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if exists {
		l.Warn("register_failed", "reason", "user_exists")
		return nil, ErrUserExists
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		IsActive:     true,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		// The unique indexes close the race between the existence check
		// and the insert.
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register_failed", "reason", "user_exists")
			return nil, ErrUserExists
		}
		l.Error("register_failed", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.publish(ctx, "user_registered", user)
	l.Info("register_success", "username", user.Username)
	return user, nil
}

// Login accepts the username or the email as credential. Unknown credential
// and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, credential, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	credential = strings.TrimSpace(credential)
	user, err := s.Repo.UserByCredential(ctx, credential)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "reason", "unknown_credential")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "reason", "password_mismatch")
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.Codec.Mint(user.Username, 0)
	if err != nil {
		l.Error("login_failed", "reason", "cannot create token", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.publish(ctx, "user_logged_in", user)
	l.Info("login_successful", "username", user.Username)
	return &LoginResult{AccessToken: token, ExpiresAt: exp}, nil
}

// Authenticate is the single request-validity decision. Order matters:
// decode first (cheap, local), then the revocation ledger, then the user
// lookup, short-circuiting on the first failure.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.authenticate")

	claims, err := s.Codec.Decode(token)
	if err != nil {
		l.Warn("authenticate_failed", "reason", reasonOf(err))
		return nil, err
	}
	if claims.Scope != "" {
		l.Warn("authenticate_failed", "reason", "wrong_scope")
		return nil, ErrTokenMalformed
	}

	revoked, err := s.Repo.IsRevoked(ctx, token)
	if err != nil {
		l.Error("authenticate_failed", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if revoked {
		l.Warn("authenticate_failed", "reason", "revoked")
		return nil, ErrTokenRevoked
	}

	user, err := s.Repo.UserByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("authenticate_failed", "reason", "unknown_subject")
			return nil, ErrUnknownSubject
		}
		l.Error("authenticate_failed", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return user, nil
}

// LogOut revokes token. The token must still decode: revocation applies to
// real tokens, and an expired one has nothing left to revoke.
func (s *AuthService) LogOut(ctx context.Context, token string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	claims, err := s.Codec.Decode(token)
	if err != nil {
		l.Warn("logout_failed", "reason", reasonOf(err))
		return err
	}

	if err := s.Repo.Revoke(ctx, token, claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, repo.ErrAlreadyRevoked) {
			l.Warn("logout_failed", "reason", "already_revoked")
			return ErrAlreadyRevoked
		}
		l.Error("logout_failed", "reason", "db_error", "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.publish(ctx, "user_logged_out", &models.User{Username: claims.Subject})
	l.Info("logout_successful", "username", claims.Subject)
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return users, nil
}

func (s *AuthService) publish(ctx context.Context, eventType string, user *models.User) {
	if err := s.Producer.PublishEvent(ctx, "user_events", user.Username, accountEvent(eventType, user)); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "event", eventType, "error", err)
	}
}

// accountEvent builds a user-event payload. Logout only knows the token
// subject, so user_id is omitted rather than published as zero.
func accountEvent(eventType string, user *models.User) map[string]interface{} {
	event := map[string]interface{}{
		"type":     eventType,
		"username": user.Username,
	}
	if user.ID != 0 {
		event["user_id"] = user.ID
	}
	return event
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, ErrUnknownSubject):
		return "unknown_subject"
	default:
		return "error"
	}
}
