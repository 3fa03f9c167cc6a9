package orders

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/agrimarket/agrimarket-backend/internal/notifications"
	"github.com/agrimarket/agrimarket-backend/internal/products"
	"github.com/agrimarket/agrimarket-backend/internal/users"
	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
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
		`CREATE TABLE IF NOT EXISTS roles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			country TEXT NOT NULL,
			role_id TEXT NOT NULL,
			password_hash TEXT,
			push_token TEXT,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			ship_addresses TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			price NUMERIC NOT NULL,
			price_type TEXT NOT NULL,
			wholesale BOOLEAN NOT NULL DEFAULT FALSE,
			image_url TEXT,
			user_id TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
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

// recordingNotifier captures events synchronously so tests can assert fan-out.
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

type fixture struct {
	db       *gorm.DB
	service  Service
	repo     Repository
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	repo := NewRepository(db)
	notifier := &recordingNotifier{}

	svc, err := NewService(repo, &gormTxRunner{db: db}, users.NewRepository(db), products.NewRepository(db), notifier)
	require.NoError(t, err)

	return &fixture{db: db, service: svc, repo: repo, notifier: notifier}
}

func (f *fixture) seedUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{
		ID:        uuid.New(),
		FirstName: "Ama",
		LastName:  "Ndongo",
		Email:     uuid.NewString() + "@example.com",
		Country:   "CM",
		RoleID:    uuid.New(),
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) seedProduct(t *testing.T, ownerID uuid.UUID) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:        uuid.New(),
		Name:      "Cassava",
		Category:  "tubers",
		Price:     decimal.NewFromInt(1500),
		PriceType: enums.PriceTypePerKg,
		UserID:    ownerID,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *fixture) seedOrder(t *testing.T, buyerID, sellerID, productID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:          uuid.New(),
		Amount:      decimal.NewFromInt(5000),
		ShipAddress: "Douala, Akwa",
		Weight:      "10kg",
		Status:      status,
		BuyerID:     buyerID,
		SellerID:    sellerID,
		ProductID:   productID,
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

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	var typed *pkgerrors.Error
	require.True(t, pkgerrors.As(err, &typed), "expected domain error, got %v", err)
	return typed.Code()
}

func TestCreateOrderCreatesPendingTransaction(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)
	seller := f.seedUser(t)
	product := f.seedProduct(t, seller.ID)

	order, err := f.service.Create(context.Background(), CreateInput{
		BuyerID:     buyer.ID,
		SellerID:    seller.ID,
		ProductID:   product.ID,
		Amount:      decimal.NewFromInt(7500),
		ShipAddress: "Yaounde, Bastos",
		Weight:      "25kg",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, order.ID)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.NotNil(t, order.Transaction)

	var stored models.Transaction
	require.NoError(t, f.db.Where("order_id = ?", order.ID).First(&stored).Error)
	require.Equal(t, enums.TransactionStatusPending, stored.Status)
	require.True(t, stored.Amount.Equal(decimal.NewFromInt(7500)))
	require.Equal(t, enums.PaymentMethodMTNMoMo, stored.Method)
	require.Equal(t, enums.CurrencyXAF, stored.Currency)

	events := f.notifier.captured()
	require.Len(t, events, 1)
	require.Equal(t, seller.ID, events[0].UserID)
	require.Equal(t, enums.NotificationTypeOrderCreated, events[0].Type)
}

func TestCreateOrderRejectsSelfPurchase(t *testing.T) {
	f := newFixture(t)
	farmer := f.seedUser(t)
	product := f.seedProduct(t, farmer.ID)

	_, err := f.service.Create(context.Background(), CreateInput{
		BuyerID:     farmer.ID,
		SellerID:    farmer.ID,
		ProductID:   product.ID,
		Amount:      decimal.NewFromInt(1000),
		ShipAddress: "Douala",
		Weight:      "5kg",
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
}

func TestCreateOrderUnknownSeller(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)

	_, err := f.service.Create(context.Background(), CreateInput{
		BuyerID:     buyer.ID,
		SellerID:    uuid.New(),
		ProductID:   uuid.New(),
		Amount:      decimal.NewFromInt(1000),
		ShipAddress: "Douala",
		Weight:      "5kg",
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
}

func TestCreateOrderProductOwnershipMismatch(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)
	seller := f.seedUser(t)
	other := f.seedUser(t)
	product := f.seedProduct(t, other.ID)

	_, err := f.service.Create(context.Background(), CreateInput{
		BuyerID:     buyer.ID,
		SellerID:    seller.ID,
		ProductID:   product.ID,
		Amount:      decimal.NewFromInt(1000),
		ShipAddress: "Douala",
		Weight:      "5kg",
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
}

func TestMarkCompleteRequiresTransaction(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)
	seller := f.seedUser(t)
	order := f.seedOrder(t, buyer.ID, seller.ID, uuid.New(), enums.OrderStatusPending)

	_, err := f.service.MarkComplete(context.Background(), MarkCompleteInput{OrderID: order.ID, ActorID: buyer.ID})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, errCode(t, err))
}

func TestMarkCompleteRequiresCompletedTransaction(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)
	seller := f.seedUser(t)
	order := f.seedOrder(t, buyer.ID, seller.ID, uuid.New(), enums.OrderStatusPending)
	f.seedTransaction(t, order.ID, enums.TransactionStatusPending)

	_, err := f.service.MarkComplete(context.Background(), MarkCompleteInput{OrderID: order.ID, ActorID: buyer.ID})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestMarkCompleteMovesOrderToProcessing(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)
	seller := f.seedUser(t)
	order := f.seedOrder(t, buyer.ID, seller.ID, uuid.New(), enums.OrderStatusPending)
	f.seedTransaction(t, order.ID, enums.TransactionStatusCompleted)

	updated, err := f.service.MarkComplete(context.Background(), MarkCompleteInput{OrderID: order.ID, ActorID: buyer.ID})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusProcessing, updated.Status)

	var stored models.Order
	require.NoError(t, f.db.Where("id = ?", order.ID).First(&stored).Error)
	require.Equal(t, enums.OrderStatusProcessing, stored.Status)

	// Calling again is a no-op, not a conflict.
	again, err := f.service.MarkComplete(context.Background(), MarkCompleteInput{OrderID: order.ID, ActorID: buyer.ID})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusProcessing, again.Status)
}

func TestDispatchRequiresSeller(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)
	seller := f.seedUser(t)
	order := f.seedOrder(t, buyer.ID, seller.ID, uuid.New(), enums.OrderStatusProcessing)

	_, err := f.service.Dispatch(context.Background(), DispatchInput{
		OrderID:  order.ID,
		ActorID:  buyer.ID,
		Dispatch: types.DispatchInfo{Method: "road"},
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestDispatchRejectsPendingOrder(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)
	seller := f.seedUser(t)
	order := f.seedOrder(t, buyer.ID, seller.ID, uuid.New(), enums.OrderStatusPending)

	_, err := f.service.Dispatch(context.Background(), DispatchInput{
		OrderID:  order.ID,
		ActorID:  seller.ID,
		Dispatch: types.DispatchInfo{Method: "road"},
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestDispatchRecordsInfoAndNotifiesBuyer(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)
	seller := f.seedUser(t)
	order := f.seedOrder(t, buyer.ID, seller.ID, uuid.New(), enums.OrderStatusProcessing)

	shippedAt := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	proofURL := "https://cdn.example.com/proof.jpg"
	updated, err := f.service.Dispatch(context.Background(), DispatchInput{
		OrderID: order.ID,
		ActorID: seller.ID,
		Dispatch: types.DispatchInfo{
			Time:     shippedAt,
			Method:   "road",
			ImageURL: &proofURL,
		},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDispatched, updated.Status)
	require.NotNil(t, updated.Dispatch)
	require.Equal(t, "road", updated.Dispatch.Method)

	var stored models.Order
	require.NoError(t, f.db.Where("id = ?", order.ID).First(&stored).Error)
	require.Equal(t, enums.OrderStatusDispatched, stored.Status)
	require.NotNil(t, stored.Dispatch)
	require.Equal(t, "road", stored.Dispatch.Method)
	require.NotNil(t, stored.Dispatch.ImageURL)
	require.Equal(t, proofURL, *stored.Dispatch.ImageURL)

	// The column must hold serialized JSON, not a raw struct value.
	var rawDispatch string
	require.NoError(t, f.db.Raw("SELECT dispatch FROM orders WHERE id = ?", order.ID).Scan(&rawDispatch).Error)
	require.Contains(t, rawDispatch, `"method":"road"`)

	events := f.notifier.captured()
	require.Len(t, events, 1)
	require.Equal(t, buyer.ID, events[0].UserID)
	require.Equal(t, enums.NotificationTypeOrderDispatched, events[0].Type)
}

func TestConfirmDeliveryRequiresBuyer(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)
	seller := f.seedUser(t)
	order := f.seedOrder(t, buyer.ID, seller.ID, uuid.New(), enums.OrderStatusDispatched)

	_, err := f.service.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{OrderID: order.ID, ActorID: seller.ID})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestConfirmDelivery(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)
	seller := f.seedUser(t)
	order := f.seedOrder(t, buyer.ID, seller.ID, uuid.New(), enums.OrderStatusDispatched)

	updated, err := f.service.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{OrderID: order.ID, ActorID: buyer.ID})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDelivered, updated.Status)
	require.NotNil(t, updated.DeliveryDate)

	// Delivered is terminal.
	_, err = f.service.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{OrderID: order.ID, ActorID: buyer.ID})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestGetRestrictedToParticipants(t *testing.T) {
	f := newFixture(t)
	buyer := f.seedUser(t)
	seller := f.seedUser(t)
	stranger := f.seedUser(t)
	order := f.seedOrder(t, buyer.ID, seller.ID, uuid.New(), enums.OrderStatusPending)

	_, err := f.service.Get(context.Background(), stranger.ID, order.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))

	got, err := f.service.Get(context.Background(), seller.ID, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)
}
