package models

import (
	"time"

	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction tracks payment collection for an order (1:1).
type Transaction struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Amount           decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Status           enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Method           enums.PaymentMethod     `gorm:"column:method;type:text;not null"`
	ProviderResponse types.JSONMap           `gorm:"column:provider_response;type:jsonb;serializer:json"`
	Currency         enums.Currency          `gorm:"column:currency;type:text;not null;default:'XAF'"`
	OrderID          uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
