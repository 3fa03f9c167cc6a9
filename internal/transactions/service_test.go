package transactions

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
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
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			amount NUMERIC NOT NULL,
			ship_address TEXT NOT NULL,
			weight TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			buyer_id TEXT NOT NULL,
			seller_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			dispatch TEXT,
			review TEXT,
			delivery_date DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			amount NUMERIC NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			method TEXT NOT NULL,
			provider_response TEXT,
			currency TEXT NOT NULL DEFAULT 'XAF',
			order_id TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) DispatchAsync(ctx context.Context, events ...notifications.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, events...)
}

func (n *recordingNotifier) captured() []notifications.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifications.Event(nil), n.events...)
}

// fakeProvider implements payments.Provider with pluggable behavior.
type fakeProvider struct {
	name        string
	polls       bool
	initiate    func(ctx context.Context, req payments.InitiateRequest) (*payments.InitiateResponse, error)
	checkStatus func(ctx context.Context, reference string, method enums.PaymentMethod) (*payments.StatusResponse, error)

	mu           sync.Mutex
	statusChecks int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Initiate(ctx context.Context, req payments.InitiateRequest) (*payments.InitiateResponse, error) {
	if p.initiate != nil {
		return p.initiate(ctx, req)
	}
	return &payments.InitiateResponse{Reference: "fp-default", Status: "P"}, nil
}

func (p *fakeProvider) CheckStatus(ctx context.Context, reference string, method enums.PaymentMethod) (*payments.StatusResponse, error) {
	p.mu.Lock()
	p.statusChecks++
	p.mu.Unlock()
	if p.checkStatus != nil {
		return p.checkStatus(ctx, reference, method)
	}
	return &payments.StatusResponse{Settled: true, Status: adwapay.StatusSuccess}, nil
}

func (p *fakeProvider) RequiresPollingAfterInitiate(method enums.PaymentMethod) bool {
	return p.polls
}

func (p *fakeProvider) checkCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusChecks
}

type fixture struct {
	db       *gorm.DB
	service  Service
	provider *fakeProvider
	notifier *recordingNotifier
}

func newFixture(t *testing.T, providers ...payments.Provider) *fixture {
	t.Helper()

	db := newTestDB(t)
	adwa := &fakeProvider{name: payments.DefaultProviderName, polls: true}
	registry, err := payments.NewRegistry(append([]payments.Provider{adwa}, providers...)...)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	logg := logger.New(logger.Options{ServiceName: "transactions-test", Output: io.Discard})

	svc, err := NewService(
		NewRepository(db),
		orders.NewRepository(db),
		&gormTxRunner{db: db},
		registry,
		notifier,
		nil,
		config.PaymentConfig{PollInterval: 10 * time.Millisecond, PollDeadline: 2 * time.Second},
		logg,
	)
	require.NoError(t, err)

	return &fixture{db: db, service: svc, provider: adwa, notifier: notifier}
}

func (f *fixture) seedOrder(t *testing.T, buyerID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:          uuid.New(),
		Amount:      decimal.NewFromInt(5000),
		ShipAddress: "Douala, Bonaberi",
		Weight:      "12kg",
		Status:      status,
		BuyerID:     buyerID,
		SellerID:    uuid.New(),
		ProductID:   uuid.New(),
	}
	require.NoError(t, f.db.Omit("Transaction").Create(order).Error)
	return order
}

func (f *fixture) seedTransaction(t *testing.T, orderID uuid.UUID, status enums.TransactionStatus) *models.Transaction {
	t.Helper()
	transaction := &models.Transaction{
		ID:      uuid.New(),
		Amount:  decimal.NewFromInt(5000),
		Status:  status,
		Method:  enums.PaymentMethodMTNMoMo,
		OrderID: orderID,
	}
	require.NoError(t, f.db.Create(transaction).Error)
	return transaction
}

func (f *fixture) transactionStatus(t *testing.T, id uuid.UUID) enums.TransactionStatus {
	t.Helper()
	var stored models.Transaction
	require.NoError(t, f.db.Where("id = ?", id).First(&stored).Error)
	return stored.Status
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	var typed *pkgerrors.Error
	require.True(t, pkgerrors.As(err, &typed), "expected domain error, got %v", err)
	return typed.Code()
}

func TestInitiatePaymentRequiresBuyer(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, uuid.New(), enums.OrderStatusPending)
	f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	_, err := f.service.InitiatePayment(context.Background(), InitiateInput{
		OrderID: order.ID,
		ActorID: order.SellerID,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestInitiatePaymentRejectsResolvedTransaction(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	order := f.seedOrder(t, buyer, enums.OrderStatusProcessing)
	f.seedTransaction(t, order.ID, enums.TransactionStatusCompleted)

	_, err := f.service.InitiatePayment(context.Background(), InitiateInput{
		OrderID: order.ID,
		ActorID: buyer,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestInitiatePaymentRejectsExternalMethod(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	order := f.seedOrder(t, buyer, enums.OrderStatusPending)
	f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	_, err := f.service.InitiatePayment(context.Background(), InitiateInput{
		OrderID: order.ID,
		ActorID: buyer,
		Method:  enums.PaymentMethodExternal,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
}

func TestInitiatePaymentSettlesThroughPolling(t *testing.T) {
	f := newFixture(t)
	f.provider.initiate = func(ctx context.Context, req payments.InitiateRequest) (*payments.InitiateResponse, error) {
		return &payments.InitiateResponse{Reference: "fp-poll", Status: "P"}, nil
	}
	f.provider.checkStatus = func(ctx context.Context, reference string, method enums.PaymentMethod) (*payments.StatusResponse, error) {
		return &payments.StatusResponse{Settled: true, Status: adwapay.StatusSuccess}, nil
	}

	buyer := uuid.New()
	order := f.seedOrder(t, buyer, enums.OrderStatusPending)
	transaction := f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	result, err := f.service.InitiatePayment(context.Background(), InitiateInput{
		OrderID:       order.ID,
		ActorID:       buyer,
		Method:        enums.PaymentMethodMTNMoMo,
		PaymentNumber: "670000000",
	})
	require.NoError(t, err)
	require.Equal(t, "fp-poll", result.FootPrint)
	require.Equal(t, enums.TransactionStatusPending, result.Status)

	// Settlement happens in the background after the call returns.
	require.Eventually(t, func() bool {
		var stored models.Transaction
		if err := f.db.Where("id = ?", transaction.ID).First(&stored).Error; err != nil {
			return false
		}
		return stored.Status == enums.TransactionStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	var stored models.Order
	require.NoError(t, f.db.Where("id = ?", order.ID).First(&stored).Error)
	require.Equal(t, enums.OrderStatusProcessing, stored.Status)

	require.Eventually(t, func() bool {
		return len(f.notifier.captured()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInitiatePaymentSkipsPollingForCard(t *testing.T) {
	f := newFixture(t)
	f.provider.polls = false
	f.provider.initiate = func(ctx context.Context, req payments.InitiateRequest) (*payments.InitiateResponse, error) {
		return &payments.InitiateResponse{Reference: "fp-card", RedirectURL: "https://pay.example/redirect"}, nil
	}

	buyer := uuid.New()
	order := f.seedOrder(t, buyer, enums.OrderStatusPending)
	transaction := f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	result, err := f.service.InitiatePayment(context.Background(), InitiateInput{
		OrderID: order.ID,
		ActorID: buyer,
		Method:  enums.PaymentMethodCard,
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/redirect", result.RedirectURL)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, f.provider.checkCount())
	require.Equal(t, enums.TransactionStatusPending, f.transactionStatus(t, transaction.ID))
}

func TestPollingDeadlineRejectsTransaction(t *testing.T) {
	db := newTestDB(t)
	adwa := &fakeProvider{
		name:  payments.DefaultProviderName,
		polls: true,
		checkStatus: func(ctx context.Context, reference string, method enums.PaymentMethod) (*payments.StatusResponse, error) {
			return &payments.StatusResponse{Settled: false, Status: "P"}, nil
		},
	}
	registry, err := payments.NewRegistry(adwa)
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(db),
		orders.NewRepository(db),
		&gormTxRunner{db: db},
		registry,
		&recordingNotifier{},
		nil,
		config.PaymentConfig{PollInterval: 10 * time.Millisecond, PollDeadline: 60 * time.Millisecond},
		logger.New(logger.Options{ServiceName: "transactions-test", Output: io.Discard}),
	)
	require.NoError(t, err)

	buyer := uuid.New()
	order := &models.Order{
		ID:          uuid.New(),
		Amount:      decimal.NewFromInt(5000),
		ShipAddress: "Douala",
		Weight:      "8kg",
		Status:      enums.OrderStatusPending,
		BuyerID:     buyer,
		SellerID:    uuid.New(),
		ProductID:   uuid.New(),
	}
	require.NoError(t, db.Omit("Transaction").Create(order).Error)
	transaction := &models.Transaction{
		ID:      uuid.New(),
		Amount:  decimal.NewFromInt(5000),
		Status:  enums.TransactionStatusPending,
		Method:  enums.PaymentMethodMTNMoMo,
		OrderID: order.ID,
	}
	require.NoError(t, db.Create(transaction).Error)

	_, err = svc.InitiatePayment(context.Background(), InitiateInput{
		OrderID: order.ID,
		ActorID: buyer,
		Method:  enums.PaymentMethodMTNMoMo,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var stored models.Transaction
		if err := db.Where("id = ?", transaction.ID).First(&stored).Error; err != nil {
			return false
		}
		return stored.Status == enums.TransactionStatusRejected
	}, 2*time.Second, 10*time.Millisecond)

	// The order stays pending; a rejected payment never advances it.
	var storedOrder models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&storedOrder).Error)
	require.Equal(t, enums.OrderStatusPending, storedOrder.Status)
}

func TestConfirmWebhookRejectsNonSuccessStatus(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, uuid.New(), enums.OrderStatusPending)
	transaction := f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	err := f.service.ConfirmWebhook(context.Background(), WebhookPayload{
		Status:      "F",
		FootPrint:   "fp-1",
		OrderNumber: NewOrderNumber(order.ID, time.Now()),
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
	require.Equal(t, enums.TransactionStatusPending, f.transactionStatus(t, transaction.ID))
	require.Equal(t, 0, f.provider.checkCount())
}

func TestConfirmWebhookRevalidatesWithProvider(t *testing.T) {
	f := newFixture(t)
	f.provider.checkStatus = func(ctx context.Context, reference string, method enums.PaymentMethod) (*payments.StatusResponse, error) {
		return &payments.StatusResponse{Settled: false, Status: "P"}, nil
	}
	order := f.seedOrder(t, uuid.New(), enums.OrderStatusPending)
	transaction := f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	err := f.service.ConfirmWebhook(context.Background(), WebhookPayload{
		Status:      adwapay.StatusSuccess,
		FootPrint:   "fp-1",
		OrderNumber: NewOrderNumber(order.ID, time.Now()),
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
	require.Equal(t, enums.TransactionStatusPending, f.transactionStatus(t, transaction.ID))
	require.Equal(t, 1, f.provider.checkCount())
}

func TestConfirmWebhookSettles(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, uuid.New(), enums.OrderStatusPending)
	transaction := f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	err := f.service.ConfirmWebhook(context.Background(), WebhookPayload{
		Status:        adwapay.StatusSuccess,
		FootPrint:     "fp-1",
		OrderNumber:   NewOrderNumber(order.ID, time.Now()),
		MoyenPaiement: "MTNMOMO",
		Amount:        decimal.NewFromInt(5000),
	})
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusCompleted, f.transactionStatus(t, transaction.ID))

	var stored models.Order
	require.NoError(t, f.db.Where("id = ?", order.ID).First(&stored).Error)
	require.Equal(t, enums.OrderStatusProcessing, stored.Status)

	events := f.notifier.captured()
	require.Len(t, events, 2)
	for _, event := range events {
		require.Equal(t, enums.NotificationTypePaymentCompleted, event.Type)
	}
}

func TestConfirmWebhookIdempotentWhenCompleted(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, uuid.New(), enums.OrderStatusProcessing)
	f.seedTransaction(t, order.ID, enums.TransactionStatusCompleted)

	err := f.service.ConfirmWebhook(context.Background(), WebhookPayload{
		Status:      adwapay.StatusSuccess,
		FootPrint:   "fp-1",
		OrderNumber: NewOrderNumber(order.ID, time.Now()),
	})
	require.NoError(t, err)
	require.Equal(t, 0, f.provider.checkCount())
}

func TestConfirmWebhookConflictWhenRejected(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, uuid.New(), enums.OrderStatusPending)
	f.seedTransaction(t, order.ID, enums.TransactionStatusRejected)

	err := f.service.ConfirmWebhook(context.Background(), WebhookPayload{
		Status:      adwapay.StatusSuccess,
		FootPrint:   "fp-1",
		OrderNumber: NewOrderNumber(order.ID, time.Now()),
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestConfirmExternalAmountMismatch(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	order := f.seedOrder(t, buyer, enums.OrderStatusPending)
	transaction := f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	err := f.service.ConfirmExternal(context.Background(), ExternalInput{
		OrderID:           order.ID,
		ActorID:           buyer,
		Amount:            decimal.NewFromInt(4999),
		ExternalPaymentID: "ext-1",
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
	require.Equal(t, enums.TransactionStatusPending, f.transactionStatus(t, transaction.ID))
}

func TestConfirmExternalVerifiedProvider(t *testing.T) {
	verifier := &fakeProvider{
		name: "square",
		checkStatus: func(ctx context.Context, reference string, method enums.PaymentMethod) (*payments.StatusResponse, error) {
			return &payments.StatusResponse{Settled: true, Status: "COMPLETED"}, nil
		},
	}
	f := newFixture(t, verifier)
	buyer := uuid.New()
	order := f.seedOrder(t, buyer, enums.OrderStatusPending)
	transaction := f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	err := f.service.ConfirmExternal(context.Background(), ExternalInput{
		OrderID:           order.ID,
		ActorID:           buyer,
		Amount:            decimal.NewFromInt(5000),
		Currency:          enums.CurrencyUSD,
		ExternalPaymentID: "ext-2",
		Provider:          "square",
	})
	require.NoError(t, err)
	require.Equal(t, 1, verifier.checkCount())

	var stored models.Transaction
	require.NoError(t, f.db.Where("id = ?", transaction.ID).First(&stored).Error)
	require.Equal(t, enums.TransactionStatusCompleted, stored.Status)
	require.Equal(t, enums.PaymentMethodExternal, stored.Method)
	require.Equal(t, enums.CurrencyUSD, stored.Currency)
	require.Contains(t, stored.ProviderResponse, "verification")
}

func TestConfirmExternalUnsettledVerification(t *testing.T) {
	verifier := &fakeProvider{
		name: "square",
		checkStatus: func(ctx context.Context, reference string, method enums.PaymentMethod) (*payments.StatusResponse, error) {
			return &payments.StatusResponse{Settled: false, Status: "PENDING"}, nil
		},
	}
	f := newFixture(t, verifier)
	buyer := uuid.New()
	order := f.seedOrder(t, buyer, enums.OrderStatusPending)
	transaction := f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	err := f.service.ConfirmExternal(context.Background(), ExternalInput{
		OrderID:           order.ID,
		ActorID:           buyer,
		Amount:            decimal.NewFromInt(5000),
		ExternalPaymentID: "ext-3",
		Provider:          "square",
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
	require.Equal(t, enums.TransactionStatusPending, f.transactionStatus(t, transaction.ID))
}

func TestConfirmExternalUnknownProviderAcceptsClaim(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	order := f.seedOrder(t, buyer, enums.OrderStatusPending)
	transaction := f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	err := f.service.ConfirmExternal(context.Background(), ExternalInput{
		OrderID:           order.ID,
		ActorID:           buyer,
		Amount:            decimal.NewFromInt(5000),
		ExternalPaymentID: "ext-4",
		Provider:          "legacy-gateway",
	})
	require.NoError(t, err)

	var stored models.Transaction
	require.NoError(t, f.db.Where("id = ?", transaction.ID).First(&stored).Error)
	require.Equal(t, enums.TransactionStatusCompleted, stored.Status)
	require.Equal(t, false, stored.ProviderResponse["verified"])
}
