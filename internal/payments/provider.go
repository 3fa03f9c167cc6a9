package payments

import (
	"context"

	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// InitiateRequest carries everything a gateway needs to start collecting
// a payment for an order.
type InitiateRequest struct {
	OrderNumber   string
	Amount        decimal.Decimal
	Currency      enums.Currency
	Method        enums.PaymentMethod
	PaymentNumber string
}

// InitiateResponse is the normalized result of starting a payment.
// Reference identifies the payment at the provider for later status checks;
// RedirectURL is set for card rails that resolve via redirect + webhook.
type InitiateResponse struct {
	Reference   string
	RedirectURL string
	Status      string
	Raw         types.JSONMap
}

// StatusResponse is the normalized result of a settlement status check.
type StatusResponse struct {
	Settled bool
	Status  string
	Raw     types.JSONMap
}

// Provider is the gateway contract. Implementations translate between the
// marketplace's payment model and one external processor.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	CheckStatus(ctx context.Context, reference string, method enums.PaymentMethod) (*StatusResponse, error)
	RequiresPollingAfterInitiate(method enums.PaymentMethod) bool
}
