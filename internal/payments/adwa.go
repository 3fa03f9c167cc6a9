package payments

import (
	"context"

	"github.com/agrimarket/agrimarket-backend/pkg/adwapay"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
)

// adwaGateway is the collection surface the provider needs from the AdwaPay client.
type adwaGateway interface {
	Initiate(ctx context.Context, params adwapay.InitiateParams) (*adwapay.InitiateResult, error)
	CheckStatus(ctx context.Context, footPrint, meanCode string) (*adwapay.StatusResult, error)
}

// AdwaProvider adapts the AdwaPay client to the Provider contract.
type AdwaProvider struct {
	client adwaGateway
}

// NewAdwaProvider wraps an AdwaPay client.
func NewAdwaProvider(client adwaGateway) *AdwaProvider {
	return &AdwaProvider{client: client}
}

func (p *AdwaProvider) Name() string {
	return DefaultProviderName
}

func (p *AdwaProvider) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	meanCode, err := meanCodeFor(req.Method)
	if err != nil {
		return nil, err
	}

	result, err := p.client.Initiate(ctx, adwapay.InitiateParams{
		Amount:        req.Amount,
		Currency:      string(req.Currency),
		OrderNumber:   req.OrderNumber,
		MeanCode:      meanCode,
		PaymentNumber: req.PaymentNumber,
	})
	if err != nil {
		return nil, err
	}

	redirectURL, _ := result.Raw["redirectUrl"].(string)
	return &InitiateResponse{
		Reference:   result.FootPrint,
		RedirectURL: redirectURL,
		Status:      result.Status,
		Raw:         result.Raw,
	}, nil
}

func (p *AdwaProvider) CheckStatus(ctx context.Context, reference string, method enums.PaymentMethod) (*StatusResponse, error) {
	meanCode, err := meanCodeFor(method)
	if err != nil {
		return nil, err
	}

	result, err := p.client.CheckStatus(ctx, reference, meanCode)
	if err != nil {
		return nil, err
	}

	return &StatusResponse{
		Settled: result.Completed(),
		Status:  result.Status,
		Raw:     result.Raw,
	}, nil
}

// RequiresPollingAfterInitiate is true for mobile-money rails; card payments
// resolve via redirect + webhook instead.
func (p *AdwaProvider) RequiresPollingAfterInitiate(method enums.PaymentMethod) bool {
	return method.RequiresPolling()
}

func meanCodeFor(method enums.PaymentMethod) (string, error) {
	switch method {
	case enums.PaymentMethodMTNMoMo:
		return adwapay.MeanMTNMomo, nil
	case enums.PaymentMethodOrangeMoney:
		return adwapay.MeanOrangeMoney, nil
	case enums.PaymentMethodCard:
		return adwapay.MeanCard, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method for adwapay")
	}
}
