package models

import (
	"time"

	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/google/uuid"
)

// Role is the marketplace role (farmer or buyer), created lazily on first use.
type Role struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      enums.RoleName `gorm:"column:name;type:text;not null;uniqueIndex"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
