package reviews

import (
	"context"
	"fmt"
	"strings"

	"github.com/agrimarket/agrimarket-backend/internal/notifications"
	"github.com/agrimarket/agrimarket-backend/internal/orders"
	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minRating = 1
	maxRating = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	DispatchAsync(ctx context.Context, events ...notifications.Event)
}

// Service defines buyer review operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.BuyerReview, error)
	Update(ctx context.Context, input UpdateInput) (*models.BuyerReview, error)
	Delete(ctx context.Context, actorID, reviewID uuid.UUID) error
	ListByProduct(ctx context.Context, productID uuid.UUID, rating *int) ([]models.BuyerReview, error)
}

// CreateInput posts a review against a delivered order.
type CreateInput struct {
	ActorID uuid.UUID
	OrderID uuid.UUID
	Comment string
	Rating  int
}

// UpdateInput edits an existing review.
type UpdateInput struct {
	ActorID  uuid.UUID
	ReviewID uuid.UUID
	Comment  string
	Rating   *int
}

type service struct {
	repo   Repository
	orders orders.Repository
	tx     txRunner
	notify notifier
}

// NewService builds the reviews service.
func NewService(repo Repository, orders orders.Repository, tx txRunner, notify notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		repo:   repo,
		orders: orders,
		tx:     tx,
		notify: notify,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.BuyerReview, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Comment) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment required")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "reviews are only allowed on delivered orders")
	}

	if _, err := s.repo.FindByOrderID(ctx, input.OrderID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
	}

	review := &models.BuyerReview{
		Comment:   strings.TrimSpace(input.Comment),
		Rating:    input.Rating,
		UserID:    input.ActorID,
		ProductID: order.ProductID,
		OrderID:   order.ID,
	}

	// Review row and the order's denormalized snapshot commit together.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}
		if err := s.orders.WithTx(tx).SetReviewSnapshot(ctx, order.ID, &types.ReviewSnapshot{
			Comment: review.Comment,
			Rating:  review.Rating,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot review on order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.DispatchAsync(ctx, notifications.Event{
		UserID:  order.SellerID,
		Type:    enums.NotificationTypeReviewReceived,
		Title:   "New review",
		Message: fmt.Sprintf("A buyer left a %d-star review on your product.", review.Rating),
		Data:    map[string]any{"productId": order.ProductID.String()},
	})

	return review, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.BuyerReview, error) {
	review, err := s.load(ctx, input.ReviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "review does not belong to user")
	}

	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return nil, err
		}
		review.Rating = *input.Rating
	}
	if v := strings.TrimSpace(input.Comment); v != "" {
		review.Comment = v
	}

	// The edit and the refreshed order snapshot commit together, same as Create.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
		}
		if err := s.orders.WithTx(tx).SetReviewSnapshot(ctx, review.OrderID, &types.ReviewSnapshot{
			Comment: review.Comment,
			Rating:  review.Rating,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot review on order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

func (s *service) Delete(ctx context.Context, actorID, reviewID uuid.UUID) error {
	review, err := s.load(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "review does not belong to user")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, reviewID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
		}
		if err := s.orders.WithTx(tx).SetReviewSnapshot(ctx, review.OrderID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear review snapshot")
		}
		return nil
	})
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, rating *int) ([]models.BuyerReview, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if rating != nil {
		if err := validateRating(*rating); err != nil {
			return nil, err
		}
	}

	reviews, err := s.repo.ListByProduct(ctx, productID, rating)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return reviews, nil
}

func (s *service) load(ctx context.Context, reviewID uuid.UUID) (*models.BuyerReview, error) {
	if reviewID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review id required")
	}
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	return review, nil
}

func validateRating(rating int) error {
	if rating < minRating || rating > maxRating {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rating must be between %d and %d", minRating, maxRating))
	}
	return nil
}
