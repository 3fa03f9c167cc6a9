package adwapay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrimarket/agrimarket-backend/pkg/config"
	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.AdwaPayConfig{
		BaseURL:         srv.URL,
		MerchantKey:     "merchant",
		ApplicationKey:  "application",
		SubscriptionKey: "subscription",
	}, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	return srv, client
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := NewClient(config.AdwaPayConfig{}); err == nil {
		t.Fatal("expected error for missing base url")
	}
	if _, err := NewClient(config.AdwaPayConfig{BaseURL: "https://example.com"}); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestInitiate(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/getADPToken":
			if r.Header.Get("AUTH-API-SUBSCRIPTION") != "subscription" {
				t.Errorf("missing subscription header")
			}
			if r.Header.Get("Authorization") == "" {
				t.Errorf("missing basic auth header")
			}
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"tokenCode": "tok-1"}})
		case "/requestToPay":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
			}
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["meanCode"] != MeanMTNMomo {
				t.Errorf("expected mean code %s, got %v", MeanMTNMomo, body["meanCode"])
			}
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
				"adpFootprint": "fp-123",
				"status":       "P",
			}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	result, err := client.Initiate(context.Background(), InitiateParams{
		Amount:        decimal.NewFromInt(5000),
		Currency:      "XAF",
		OrderNumber:   "AGM-test-1",
		MeanCode:      MeanMTNMomo,
		PaymentNumber: "670000000",
	})
	if err != nil {
		t.Fatalf("unexpected initiate error: %v", err)
	}
	if result.FootPrint != "fp-123" {
		t.Fatalf("expected footprint fp-123, got %s", result.FootPrint)
	}
	if result.Status != "P" {
		t.Fatalf("expected status P, got %s", result.Status)
	}
}

func TestInitiateMissingFootprint(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/getADPToken":
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"tokenCode": "tok-1"}})
		default:
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"status": "P"}})
		}
	})

	_, err := client.Initiate(context.Background(), InitiateParams{
		Amount:      decimal.NewFromInt(100),
		Currency:    "XAF",
		OrderNumber: "AGM-test-2",
		MeanCode:    MeanCard,
	})
	if err == nil {
		t.Fatal("expected error when footprint missing")
	}
}

func TestCheckStatus(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/getADPToken":
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"tokenCode": "tok-1"}})
		case "/paymentStatus":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["adpFootprint"] != "fp-123" {
				t.Errorf("expected footprint fp-123, got %v", body["adpFootprint"])
			}
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"status": StatusSuccess}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	result, err := client.CheckStatus(context.Background(), "fp-123", MeanMTNMomo)
	if err != nil {
		t.Fatalf("unexpected status error: %v", err)
	}
	if !result.Completed() {
		t.Fatalf("expected completed, got status %q", result.Status)
	}
}

func TestCheckStatusUpstreamFailure(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/getADPToken" {
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"tokenCode": "tok-1"}})
			return
		}
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	if _, err := client.CheckStatus(context.Background(), "fp-123", MeanMTNMomo); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}
