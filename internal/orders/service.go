package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/agrimarket/agrimarket-backend/internal/notifications"
	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type notifier interface {
	DispatchAsync(ctx context.Context, events ...notifications.Event)
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, role enums.RoleName) ([]models.Order, error)
	MarkComplete(ctx context.Context, input MarkCompleteInput) (*models.Order, error)
	Dispatch(ctx context.Context, input DispatchInput) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error)
}

// CreateInput captures a buyer's order placement.
type CreateInput struct {
	BuyerID     uuid.UUID
	SellerID    uuid.UUID
	ProductID   uuid.UUID
	Amount      decimal.Decimal
	ShipAddress string
	Weight      string
	Method      enums.PaymentMethod
	Currency    enums.Currency
}

// MarkCompleteInput moves a paid order from pending to processing.
type MarkCompleteInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
}

// DispatchInput records the seller shipping the order.
type DispatchInput struct {
	OrderID  uuid.UUID
	ActorID  uuid.UUID
	Dispatch types.DispatchInfo
}

// ConfirmDeliveryInput records the buyer receiving the order.
type ConfirmDeliveryInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
}

type service struct {
	repo     Repository
	tx       txRunner
	users    userFinder
	products productFinder
	notify   notifier
}

// NewService builds the order service with its collaborators.
func NewService(repo Repository, tx txRunner, users userFinder, products productFinder, notify notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if users == nil {
		return nil, fmt.Errorf("user finder required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		users:    users,
		products: products,
		notify:   notify,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.ShipAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ship address required")
	}
	if input.Weight == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight required")
	}
	if input.BuyerID == input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer cannot order from themselves")
	}

	if _, err := s.users.FindByID(ctx, input.SellerID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller does not exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.UserID != input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not belong to seller")
	}

	method := input.Method
	if method == "" {
		method = enums.PaymentMethodMTNMoMo
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyXAF
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	order := &models.Order{
		Amount:      input.Amount,
		ShipAddress: input.ShipAddress,
		Weight:      input.Weight,
		Status:      enums.OrderStatusPending,
		BuyerID:     input.BuyerID,
		SellerID:    input.SellerID,
		ProductID:   input.ProductID,
	}

	// Order and Transaction commit together or not at all.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.CreateOrder(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		transaction, err := repo.CreateTransaction(ctx, &models.Transaction{
			Amount:   input.Amount,
			Status:   enums.TransactionStatusPending,
			Method:   method,
			Currency: currency,
			OrderID:  created.ID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
		}
		created.Transaction = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.DispatchAsync(ctx, notifications.Event{
		UserID:  order.SellerID,
		Type:    enums.NotificationTypeOrderCreated,
		Title:   "New order received",
		Message: fmt.Sprintf("You received a new order for %s.", product.Name),
		Data:    map[string]any{"orderId": order.ID.String()},
	})

	return order, nil
}

func (s *service) Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != actorID && order.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, role enums.RoleName) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var (
		orders []models.Order
		err    error
	)
	if role == enums.RoleFarmer {
		orders, err = s.repo.ListBySeller(ctx, userID)
	} else {
		orders, err = s.repo.ListByBuyer(ctx, userID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

// MarkComplete moves a pending order to processing once its transaction has
// settled. It rejects with 404 when no transaction exists and with 403 when
// the transaction has not completed, regardless of the order's own status.
func (s *service) MarkComplete(ctx context.Context, input MarkCompleteInput) (*models.Order, error) {
	order, err := s.load(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != input.ActorID && order.SellerID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}

	transaction, err := s.repo.FindTransactionByOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no transaction found for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if transaction.Status != enums.TransactionStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction has not completed")
	}

	if order.Status == enums.OrderStatusProcessing {
		return order, nil
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusProcessing) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move to processing from its current state")
	}

	if err := s.repo.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = enums.OrderStatusProcessing
	return order, nil
}

func (s *service) Dispatch(ctx context.Context, input DispatchInput) (*models.Order, error) {
	order, err := s.load(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can dispatch an order")
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusDispatched) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be dispatched from its current state")
	}

	dispatch := input.Dispatch
	if dispatch.Time.IsZero() {
		dispatch.Time = time.Now().UTC()
	}
	if dispatch.Method == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispatch method required")
	}

	if err := s.repo.SetDispatch(ctx, order.ID, enums.OrderStatusDispatched, &dispatch); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record dispatch")
	}
	order.Status = enums.OrderStatusDispatched
	order.Dispatch = &dispatch

	s.notify.DispatchAsync(ctx, notifications.Event{
		UserID:  order.BuyerID,
		Type:    enums.NotificationTypeOrderDispatched,
		Title:   "Order dispatched",
		Message: "Your order is on its way.",
		Data:    map[string]any{"orderId": order.ID.String()},
	})

	return order, nil
}

func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error) {
	order, err := s.load(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm delivery")
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusDelivered) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be delivered from its current state")
	}

	deliveredAt := time.Now().UTC()
	if err := s.repo.SetDelivered(ctx, order.ID, deliveredAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record delivery")
	}
	order.Status = enums.OrderStatusDelivered
	order.DeliveryDate = &deliveredAt
	return order, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
