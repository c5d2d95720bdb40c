package models

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"uniqueIndex;not null"     json:"username"`
	Email        string `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	IsActive     bool   `gorm:"not null;default:true"    json:"is_active"`
}

// RevokedToken marks one bearer token as invalid before its natural expiry.
// Rows are inserted once and never updated; ExpiresAt is the token's own
// expiry, kept so the sweep can hard-delete entries that can no longer
// affect any authentication decision.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"            json:"id"`
	Token     string    `gorm:"uniqueIndex;not null"  json:"token"`
	RevokedAt time.Time `gorm:"not null"              json:"revoked_at"`
	ExpiresAt time.Time `gorm:"not null;index"        json:"expires_at"`
}
