package models

import "time"

// RefreshToken represents a persisted refresh token session.
type RefreshToken struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"token"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
	UserAgent string     `db:"user_agent" json:"user_agent"`
}

// ActionTokenPurpose distinguishes single-use token flows.
type ActionTokenPurpose string

const (
	TokenPurposeEmailVerify   ActionTokenPurpose = "email_verify"
	TokenPurposePasswordReset ActionTokenPurpose = "password_reset"
)

// ActionToken is a single-use token for email verification or password reset.
type ActionToken struct {
	ID         int64              `db:"id" json:"id"`
	UserID     int64              `db:"user_id" json:"user_id"`
	Token      string             `db:"token" json:"token"`
	Purpose    ActionTokenPurpose `db:"purpose" json:"purpose"`
	ExpiresAt  time.Time          `db:"expires_at" json:"expires_at"`
	Consumed   bool               `db:"consumed" json:"consumed"`
	ConsumedAt *time.Time         `db:"consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
}
