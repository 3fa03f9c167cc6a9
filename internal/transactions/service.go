package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/agrimarket/agrimarket-backend/internal/notifications"
	"github.com/agrimarket/agrimarket-backend/internal/orders"
	"github.com/agrimarket/agrimarket-backend/internal/payments"
	"github.com/agrimarket/agrimarket-backend/pkg/adwapay"
	"github.com/agrimarket/agrimarket-backend/pkg/config"
	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
	"github.com/agrimarket/agrimarket-backend/pkg/logger"
	"github.com/agrimarket/agrimarket-backend/pkg/metrics"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	DispatchAsync(ctx context.Context, events ...notifications.Event)
}

// Service drives payment collection for orders.
type Service interface {
	InitiatePayment(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	Status(ctx context.Context, actorID, orderID uuid.UUID) (*models.Transaction, error)
	ConfirmWebhook(ctx context.Context, payload WebhookPayload) error
	ConfirmExternal(ctx context.Context, input ExternalInput) error
}

// InitiateInput starts collection for a pending order.
type InitiateInput struct {
	OrderID       uuid.UUID
	ActorID       uuid.UUID
	Method        enums.PaymentMethod
	PaymentNumber string
	Provider      string
}

// InitiateResult is returned to the client immediately; for mobile-money
// rails settlement continues in the background and the client polls the
// status endpoint.
type InitiateResult struct {
	OrderNumber string
	FootPrint   string
	RedirectURL string
	Status      enums.TransactionStatus
}

// WebhookPayload mirrors the gateway's confirmation callback body.
type WebhookPayload struct {
	Status        string
	FootPrint     string
	OrderNumber   string
	MoyenPaiement string
	Amount        decimal.Decimal
}

// ExternalInput confirms a payment collected by an integrator's own gateway.
type ExternalInput struct {
	OrderID           uuid.UUID
	ActorID           uuid.UUID
	Amount            decimal.Decimal
	Currency          enums.Currency
	ExternalPaymentID string
	Provider          string
}

type service struct {
	repo      Repository
	orders    orders.Repository
	tx        txRunner
	providers *payments.Registry
	notify    notifier
	payMet    *metrics.PaymentMetrics
	cfg       config.PaymentConfig
	logg      *logger.Logger
}

// NewService builds the payment service.
func NewService(
	repo Repository,
	orders orders.Repository,
	tx txRunner,
	providers *payments.Registry,
	notify notifier,
	payMet *metrics.PaymentMetrics,
	cfg config.PaymentConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if providers == nil {
		return nil, fmt.Errorf("payment provider registry required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.PollDeadline <= 0 {
		cfg.PollDeadline = 3 * time.Minute
	}
	return &service{
		repo:      repo,
		orders:    orders,
		tx:        tx,
		providers: providers,
		notify:    notify,
		payMet:    payMet,
		cfg:       cfg,
		logg:      logg,
	}, nil
}

func (s *service) InitiatePayment(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, transaction, err := s.loadOrderWithTransaction(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can pay for an order")
	}
	if transaction.Status != enums.TransactionStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already resolved for this order")
	}

	method := input.Method
	if method == "" {
		method = transaction.Method
	}
	if !method.IsValid() || method == enums.PaymentMethodExternal {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	provider, err := s.providers.Get(input.Provider)
	if err != nil {
		return nil, err
	}

	orderNumber := NewOrderNumber(order.ID, time.Now().UTC())
	resp, err := provider.Initiate(ctx, payments.InitiateRequest{
		OrderNumber:   orderNumber,
		Amount:        transaction.Amount,
		Currency:      transaction.Currency,
		Method:        method,
		PaymentNumber: input.PaymentNumber,
	})
	if err != nil {
		return nil, err
	}

	transaction.Method = method
	transaction.ProviderResponse = mergeResponse(transaction.ProviderResponse, types.JSONMap{
		"provider":    provider.Name(),
		"orderNumber": orderNumber,
		"footPrint":   resp.Reference,
		"initiate":    map[string]any(resp.Raw),
	})
	if err := s.repo.Save(ctx, transaction); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment initiation")
	}

	if provider.RequiresPollingAfterInitiate(method) {
		s.startPolling(ctx, pollJob{
			TransactionID: transaction.ID,
			Provider:      provider,
			Reference:     resp.Reference,
			Method:        method,
		})
	}

	return &InitiateResult{
		OrderNumber: orderNumber,
		FootPrint:   resp.Reference,
		RedirectURL: resp.RedirectURL,
		Status:      enums.TransactionStatusPending,
	}, nil
}

func (s *service) Status(ctx context.Context, actorID, orderID uuid.UUID) (*models.Transaction, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, transaction, err := s.loadOrderWithTransaction(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != actorID && order.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return transaction, nil
}

// ConfirmWebhook handles the gateway's settlement callback. The reported
// status is never trusted on its own: the provider's status API is queried
// again before any row changes.
func (s *service) ConfirmWebhook(ctx context.Context, payload WebhookPayload) error {
	if payload.Status != adwapay.StatusSuccess {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment validation failed")
	}

	orderID, err := ParseOrderNumber(payload.OrderNumber)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order number")
	}

	transaction, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no transaction found for order")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if transaction.Status == enums.TransactionStatusCompleted {
		return nil
	}
	if transaction.Status == enums.TransactionStatusRejected {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction already rejected")
	}

	provider, err := s.providers.Get(payments.DefaultProviderName)
	if err != nil {
		return err
	}

	status, err := provider.CheckStatus(ctx, payload.FootPrint, transaction.Method)
	if err != nil {
		return err
	}
	if !status.Settled {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment validation failed")
	}

	if err := s.settle(ctx, transaction.ID, types.JSONMap{
		"webhook":       map[string]any{"moyenPaiement": payload.MoyenPaiement, "amount": payload.Amount.String()},
		"confirmStatus": map[string]any(status.Raw),
	}); err != nil {
		return err
	}

	if s.payMet != nil {
		s.payMet.IncSettlement(provider.Name(), "completed")
	}
	return nil
}

// ConfirmExternal settles a payment collected outside the platform. When the
// named processor is registered (e.g. square) the claim is verified against
// it; otherwise the integrator's claim is accepted as-is.
func (s *service) ConfirmExternal(ctx context.Context, input ExternalInput) error {
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ExternalPaymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external payment id required")
	}

	order, transaction, err := s.loadOrderWithTransaction(ctx, input.OrderID)
	if err != nil {
		return err
	}
	if order.BuyerID != input.ActorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm payment for an order")
	}
	if transaction.Status != enums.TransactionStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already resolved for this order")
	}
	if !input.Amount.Equal(transaction.Amount) {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmed amount does not match order amount")
	}

	raw := types.JSONMap{
		"provider":          input.Provider,
		"externalPaymentId": input.ExternalPaymentID,
	}

	if s.providers.Has(input.Provider) {
		provider, err := s.providers.Get(input.Provider)
		if err != nil {
			return err
		}
		status, err := provider.CheckStatus(ctx, input.ExternalPaymentID, enums.PaymentMethodExternal)
		if err != nil {
			return err
		}
		if !status.Settled {
			return pkgerrors.New(pkgerrors.CodeValidation, "external payment is not settled")
		}
		raw["verification"] = map[string]any(status.Raw)
	} else {
		raw["verified"] = false
	}

	transaction.Method = enums.PaymentMethodExternal
	if input.Currency != "" && input.Currency.IsValid() {
		transaction.Currency = input.Currency
	}
	if err := s.repo.Save(ctx, transaction); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record external payment")
	}

	if err := s.settle(ctx, transaction.ID, raw); err != nil {
		return err
	}
	if s.payMet != nil {
		s.payMet.IncSettlement("external", "completed")
	}
	return nil
}

// settle marks the transaction completed and moves the order to processing
// atomically, then fans out notifications.
func (s *service) settle(ctx context.Context, transactionID uuid.UUID, raw types.JSONMap) error {
	var order *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		transaction, err := repo.FindByID(ctx, transactionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}
		if transaction.Status == enums.TransactionStatusCompleted {
			return nil
		}
		if transaction.Status != enums.TransactionStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction already resolved")
		}

		transaction.Status = enums.TransactionStatusCompleted
		transaction.ProviderResponse = mergeResponse(transaction.ProviderResponse, raw)
		if err := repo.Save(ctx, transaction); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete transaction")
		}

		orderRepo := s.orders.WithTx(tx)
		loaded, err := orderRepo.FindByID(ctx, transaction.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if loaded.Status.CanTransitionTo(enums.OrderStatusProcessing) {
			if err := orderRepo.UpdateStatus(ctx, loaded.ID, enums.OrderStatusProcessing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			loaded.Status = enums.OrderStatusProcessing
		}

		order = loaded
		return nil
	})
	if err != nil {
		return err
	}

	if order != nil {
		s.notify.DispatchAsync(ctx,
			notifications.Event{
				UserID:  order.BuyerID,
				Type:    enums.NotificationTypePaymentCompleted,
				Title:   "Payment confirmed",
				Message: "Your payment was received and the order is being processed.",
				Data:    map[string]any{"orderId": order.ID.String()},
			},
			notifications.Event{
				UserID:  order.SellerID,
				Type:    enums.NotificationTypePaymentCompleted,
				Title:   "Order paid",
				Message: "A buyer completed payment for one of your orders.",
				Data:    map[string]any{"orderId": order.ID.String()},
			},
		)
	}
	return nil
}

// reject marks a pending transaction rejected, recording the reason.
func (s *service) reject(ctx context.Context, transactionID uuid.UUID, raw types.JSONMap) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		transaction, err := repo.FindByID(ctx, transactionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}
		if transaction.Status.IsTerminal() {
			return nil
		}
		transaction.Status = enums.TransactionStatusRejected
		transaction.ProviderResponse = mergeResponse(transaction.ProviderResponse, raw)
		if err := repo.Save(ctx, transaction); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject transaction")
		}
		return nil
	})
}

func (s *service) loadOrderWithTransaction(ctx context.Context, orderID uuid.UUID) (*models.Order, *models.Transaction, error) {
	if orderID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	transaction, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "no transaction found for order")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return order, transaction, nil
}

func mergeResponse(existing, extra types.JSONMap) types.JSONMap {
	merged := types.JSONMap{}
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
