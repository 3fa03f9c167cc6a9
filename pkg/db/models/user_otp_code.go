package models

import (
	"time"

	"github.com/google/uuid"
)

// UserOTPCode is retained for backward compatibility with earlier deployments.
// The OTP verification flow is disabled; login is password-only.
type UserOTPCode struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Code      string    `gorm:"column:code;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName preserves the legacy table name.
func (UserOTPCode) TableName() string {
	return "user_otp_codes"
}
