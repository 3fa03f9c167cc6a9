package models

import (
	"time"

	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a buyer's purchase of a product. Exactly one Transaction exists
// per order; both rows are created in the same database transaction.
type Order struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Amount       decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	ShipAddress  string                `gorm:"column:ship_address;not null"`
	Weight       string                `gorm:"column:weight;not null"`
	Status       enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	BuyerID      uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID     uuid.UUID             `gorm:"column:seller_id;type:uuid;not null"`
	ProductID    uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	Dispatch     *types.DispatchInfo   `gorm:"column:dispatch;type:jsonb;serializer:json"`
	Review       *types.ReviewSnapshot `gorm:"column:review;type:jsonb;serializer:json"`
	DeliveryDate *time.Time            `gorm:"column:delivery_date"`
	Transaction  *Transaction          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
