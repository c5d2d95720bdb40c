package repo

import (
	"context"
	"errors"
	"time"

	"github.com/grmaxv/users_api/internal/models"
)

// Revoke inserts token into the ledger. The unique index on the token column
// makes the insert the deciding race: of two concurrent revocations exactly
// one succeeds, the other gets ErrAlreadyRevoked.
func (r *GormRepo) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	entry := models.RevokedToken{
		Token:     token,
		RevokedAt: time.Now().UTC(),
		ExpiresAt: expiresAt.UTC(),
	}
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(translate(err), ErrDuplicate) {
			return ErrAlreadyRevoked
		}
		// Some drivers report a unique violation without translation;
		// a membership hit confirms the duplicate.
		if revoked, checkErr := r.IsRevoked(ctx, token); checkErr == nil && revoked {
			return ErrAlreadyRevoked
		}
		return err
	}
	return nil
}

func (r *GormRepo) IsRevoked(ctx context.Context, token string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("token = ?", token).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// PurgeExpired hard-deletes ledger entries whose token has passed its natural
// expiry. Such entries can never again decide an authentication, so removal
// is safe at any time.
func (r *GormRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.DB.WithContext(ctx).
		Where("expires_at < ?", now.UTC()).
		Delete(&models.RevokedToken{})
	return result.RowsAffected, result.Error
}
