package orders

import (
	"context"
	"time"

	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes order persistence. Transaction rows are created here
// alongside the order so both inserts share one database transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateTransaction(ctx context.Context, transaction *models.Transaction) (*models.Transaction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindTransactionByOrder(ctx context.Context, orderID uuid.UUID) (*models.Transaction, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	SetDispatch(ctx context.Context, id uuid.UUID, status enums.OrderStatus, dispatch *types.DispatchInfo) error
	SetDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error
	SetReviewSnapshot(ctx context.Context, id uuid.UUID, review *types.ReviewSnapshot) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit("Transaction").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateTransaction(ctx context.Context, transaction *models.Transaction) (*models.Transaction, error) {
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return nil, err
	}
	return transaction, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Transaction").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindTransactionByOrder(ctx context.Context, orderID uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&transaction).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Transaction").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Transaction").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) SetDispatch(ctx context.Context, id uuid.UUID, status enums.OrderStatus, dispatch *types.DispatchInfo) error {
	// Updating through the model fields keeps the json serializer on the
	// dispatch column in play. A map update would hand the raw struct to
	// the driver.
	return r.db.WithContext(ctx).
		Model(&models.Order{ID: id}).
		Select("status", "dispatch").
		Updates(&models.Order{Status: status, Dispatch: dispatch}).Error
}

func (r *repository) SetDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.OrderStatusDelivered,
			"delivery_date": deliveredAt,
		}).Error
}

func (r *repository) SetReviewSnapshot(ctx context.Context, id uuid.UUID, review *types.ReviewSnapshot) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{ID: id}).
		Select("review").
		Updates(&models.Order{Review: review}).Error
}
