package reviews

import (
	"context"

	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes buyer review persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, review *models.BuyerReview) (*models.BuyerReview, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.BuyerReview, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.BuyerReview, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, rating *int) ([]models.BuyerReview, error)
	Save(ctx context.Context, review *models.BuyerReview) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reviews repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, review *models.BuyerReview) (*models.BuyerReview, error) {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BuyerReview, error) {
	var review models.BuyerReview
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.BuyerReview, error) {
	var review models.BuyerReview
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID, rating *int) ([]models.BuyerReview, error) {
	query := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC")
	if rating != nil {
		query = query.Where("rating = ?", *rating)
	}

	var reviews []models.BuyerReview
	if err := query.Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *repository) Save(ctx context.Context, review *models.BuyerReview) error {
	return r.db.WithContext(ctx).Save(review).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.BuyerReview{}).Error
}
