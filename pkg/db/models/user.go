package models

import (
	"time"

	"github.com/agrimarket/agrimarket-backend/pkg/types"
	"github.com/google/uuid"
)

// User represents the canonical identity entity. PasswordHash is nil for
// OAuth-provisioned accounts; PushToken is nil until a device registers.
type User struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FirstName     string                `gorm:"column:first_name;not null"`
	LastName      string                `gorm:"column:last_name;not null"`
	Email         string                `gorm:"column:email;type:text;not null;uniqueIndex"`
	Country       string                `gorm:"column:country;not null"`
	RoleID        uuid.UUID             `gorm:"column:role_id;type:uuid;not null"`
	Role          *Role                 `gorm:"foreignKey:RoleID"`
	PasswordHash  *string               `gorm:"column:password_hash"`
	PushToken     *string               `gorm:"column:push_token"`
	Verified      bool                  `gorm:"column:verified;not null;default:false"`
	ShipAddresses types.ShipAddressList `gorm:"column:ship_addresses;type:jsonb;serializer:json"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
