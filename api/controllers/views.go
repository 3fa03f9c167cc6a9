package controllers

import (
	"time"

	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// View types keep credentials and internal columns out of API payloads.

type userView struct {
	ID            uuid.UUID             `json:"id"`
	FirstName     string                `json:"firstName"`
	LastName      string                `json:"lastName"`
	Email         string                `json:"email"`
	Country       string                `json:"country"`
	Role          string                `json:"role,omitempty"`
	ShipAddresses types.ShipAddressList `json:"shipAddresses"`
	CreatedAt     time.Time             `json:"createdAt"`
}

func newUserView(user *models.User) userView {
	view := userView{
		ID:            user.ID,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Email:         user.Email,
		Country:       user.Country,
		ShipAddresses: user.ShipAddresses,
		CreatedAt:     user.CreatedAt,
	}
	if user.Role != nil {
		view.Role = string(user.Role.Name)
	}
	return view
}

type productView struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	PriceType enums.PriceType `json:"priceType"`
	Wholesale bool            `json:"wholesale"`
	ImageURL  *string         `json:"imageUrl,omitempty"`
	UserID    uuid.UUID       `json:"userId"`
	CreatedAt time.Time       `json:"createdAt"`
}

func newProductView(product *models.Product) productView {
	return productView{
		ID:        product.ID,
		Name:      product.Name,
		Category:  product.Category,
		Price:     product.Price,
		PriceType: product.PriceType,
		Wholesale: product.Wholesale,
		ImageURL:  product.ImageURL,
		UserID:    product.UserID,
		CreatedAt: product.CreatedAt,
	}
}

func newProductViews(products []models.Product) []productView {
	views := make([]productView, 0, len(products))
	for i := range products {
		views = append(views, newProductView(&products[i]))
	}
	return views
}

type transactionView struct {
	ID        uuid.UUID               `json:"id"`
	Amount    decimal.Decimal         `json:"amount"`
	Status    enums.TransactionStatus `json:"status"`
	Method    enums.PaymentMethod     `json:"method"`
	Currency  enums.Currency          `json:"currency"`
	OrderID   uuid.UUID               `json:"orderId"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

func newTransactionView(transaction *models.Transaction) transactionView {
	return transactionView{
		ID:        transaction.ID,
		Amount:    transaction.Amount,
		Status:    transaction.Status,
		Method:    transaction.Method,
		Currency:  transaction.Currency,
		OrderID:   transaction.OrderID,
		CreatedAt: transaction.CreatedAt,
		UpdatedAt: transaction.UpdatedAt,
	}
}

type orderView struct {
	ID           uuid.UUID             `json:"id"`
	Amount       decimal.Decimal       `json:"amount"`
	ShipAddress  string                `json:"shipAddress"`
	Weight       string                `json:"weight"`
	Status       enums.OrderStatus     `json:"status"`
	BuyerID      uuid.UUID             `json:"buyerId"`
	SellerID     uuid.UUID             `json:"sellerId"`
	ProductID    uuid.UUID             `json:"productId"`
	Dispatch     *types.DispatchInfo   `json:"dispatch,omitempty"`
	Review       *types.ReviewSnapshot `json:"review,omitempty"`
	DeliveryDate *time.Time            `json:"deliveryDate,omitempty"`
	Transaction  *transactionView      `json:"transaction,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
}

func newOrderView(order *models.Order) orderView {
	view := orderView{
		ID:           order.ID,
		Amount:       order.Amount,
		ShipAddress:  order.ShipAddress,
		Weight:       order.Weight,
		Status:       order.Status,
		BuyerID:      order.BuyerID,
		SellerID:     order.SellerID,
		ProductID:    order.ProductID,
		Dispatch:     order.Dispatch,
		Review:       order.Review,
		DeliveryDate: order.DeliveryDate,
		CreatedAt:    order.CreatedAt,
	}
	if order.Transaction != nil {
		tv := newTransactionView(order.Transaction)
		view.Transaction = &tv
	}
	return view
}

func newOrderViews(orders []models.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, newOrderView(&orders[i]))
	}
	return views
}

type reviewView struct {
	ID        uuid.UUID `json:"id"`
	Comment   string    `json:"comment"`
	Rating    int       `json:"rating"`
	UserID    uuid.UUID `json:"userId"`
	ProductID uuid.UUID `json:"productId"`
	OrderID   uuid.UUID `json:"orderId"`
	CreatedAt time.Time `json:"createdAt"`
}

func newReviewView(review *models.BuyerReview) reviewView {
	return reviewView{
		ID:        review.ID,
		Comment:   review.Comment,
		Rating:    review.Rating,
		UserID:    review.UserID,
		ProductID: review.ProductID,
		OrderID:   review.OrderID,
		CreatedAt: review.CreatedAt,
	}
}

func newReviewViews(reviews []models.BuyerReview) []reviewView {
	views := make([]reviewView, 0, len(reviews))
	for i := range reviews {
		views = append(views, newReviewView(&reviews[i]))
	}
	return views
}

type notificationView struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	ReadAt    *time.Time             `json:"readAt,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

func newNotificationViews(rows []models.Notification) []notificationView {
	views := make([]notificationView, 0, len(rows))
	for i := range rows {
		views = append(views, notificationView{
			ID:        rows[i].ID,
			Type:      rows[i].Type,
			Title:     rows[i].Title,
			Message:   rows[i].Message,
			ReadAt:    rows[i].ReadAt,
			CreatedAt: rows[i].CreatedAt,
		})
	}
	return views
}
