package payments

import (
	"context"
	"testing"

	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	sq "github.com/square/square-go-sdk"
)

type fakePaymentFetcher struct {
	getPayment func(ctx context.Context, paymentID string) (*sq.Payment, error)
}

func (f *fakePaymentFetcher) GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	return f.getPayment(ctx, paymentID)
}

func strPtr(s string) *string { return &s }

func TestSquareProviderCannotInitiate(t *testing.T) {
	provider := NewSquareProvider(&fakePaymentFetcher{})

	if _, err := provider.Initiate(context.Background(), InitiateRequest{}); err == nil {
		t.Fatal("expected error when initiating through square")
	}
}

func TestSquareProviderCheckStatusCompleted(t *testing.T) {
	provider := NewSquareProvider(&fakePaymentFetcher{
		getPayment: func(ctx context.Context, paymentID string) (*sq.Payment, error) {
			if paymentID != "pay-1" {
				t.Errorf("expected payment id pay-1, got %s", paymentID)
			}
			return &sq.Payment{ID: strPtr("pay-1"), Status: strPtr("COMPLETED")}, nil
		},
	})

	resp, err := provider.CheckStatus(context.Background(), "pay-1", enums.PaymentMethodExternal)
	if err != nil {
		t.Fatalf("unexpected status error: %v", err)
	}
	if !resp.Settled {
		t.Fatalf("expected settled, got status %q", resp.Status)
	}
}

func TestSquareProviderCheckStatusPending(t *testing.T) {
	provider := NewSquareProvider(&fakePaymentFetcher{
		getPayment: func(ctx context.Context, paymentID string) (*sq.Payment, error) {
			return &sq.Payment{ID: strPtr("pay-2"), Status: strPtr("PENDING")}, nil
		},
	})

	resp, err := provider.CheckStatus(context.Background(), "pay-2", enums.PaymentMethodExternal)
	if err != nil {
		t.Fatalf("unexpected status error: %v", err)
	}
	if resp.Settled {
		t.Fatal("did not expect pending payment to be settled")
	}
}
