package payments

import (
	"context"
	"strings"

	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
	sq "github.com/square/square-go-sdk"
)

// SquareProviderName keys the Square verification provider in the registry.
const SquareProviderName = "square"

const squareStatusCompleted = "COMPLETED"

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

// SquareProvider verifies payments collected by integrators through Square.
// It cannot initiate collections; it only confirms settlement against the
// Square Payments API so external confirmations are not taken on faith.
type SquareProvider struct {
	client paymentFetcher
}

// NewSquareProvider wraps a Square client.
func NewSquareProvider(client paymentFetcher) *SquareProvider {
	return &SquareProvider{client: client}
}

func (p *SquareProvider) Name() string {
	return SquareProviderName
}

func (p *SquareProvider) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "square payments are collected externally and cannot be initiated here")
}

func (p *SquareProvider) CheckStatus(ctx context.Context, reference string, method enums.PaymentMethod) (*StatusResponse, error) {
	payment, err := p.client.GetPayment(ctx, reference)
	if err != nil {
		return nil, err
	}

	status := stringValue(payment.GetStatus())
	return &StatusResponse{
		Settled: strings.EqualFold(status, squareStatusCompleted),
		Status:  status,
		Raw: types.JSONMap{
			"paymentId": stringValue(payment.GetID()),
			"status":    status,
		},
	}, nil
}

func (p *SquareProvider) RequiresPollingAfterInitiate(method enums.PaymentMethod) bool {
	return false
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
