package models

import (
	"time"

	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a farmer's listing.
type Product struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	Category  string          `gorm:"column:category;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	PriceType enums.PriceType `gorm:"column:price_type;type:text;not null"`
	Wholesale bool            `gorm:"column:wholesale;not null;default:false"`
	ImageURL  *string         `gorm:"column:image_url"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
