package adwapay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agrimarket/agrimarket-backend/pkg/config"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// StatusSuccess is AdwaPay's terminal success status.
	StatusSuccess = "T"

	requestBodyReadLimit int64 = 2048
)

// Mean codes accepted by the AdwaPay collection API.
const (
	MeanMTNMomo     = "MTNMOMO"
	MeanOrangeMoney = "ORANGEMONEY"
	MeanCard        = "CARD"
)

var (
	errBaseURLRequired     = errors.New("adwapay base url is required")
	errCredentialsRequired = errors.New("adwapay merchant and subscription keys are required")
)

// Client wraps the AdwaPay mobile-money collection API.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	merchantKey     string
	applicationKey  string
	subscriptionKey string
	returnURL       string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the AdwaPay client from configuration.
func NewClient(cfg config.AdwaPayConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if strings.TrimSpace(cfg.MerchantKey) == "" || strings.TrimSpace(cfg.SubscriptionKey) == "" {
		return nil, errCredentialsRequired
	}

	client := &Client{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		baseURL:         strings.TrimRight(baseURL, "/"),
		merchantKey:     strings.TrimSpace(cfg.MerchantKey),
		applicationKey:  strings.TrimSpace(cfg.ApplicationKey),
		subscriptionKey: strings.TrimSpace(cfg.SubscriptionKey),
		returnURL:       strings.TrimSpace(cfg.ReturnURL),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// InitiateParams describes a collection request.
type InitiateParams struct {
	Amount        decimal.Decimal
	Currency      string
	OrderNumber   string
	MeanCode      string
	PaymentNumber string
}

// InitiateResult is the normalized response of a collection request.
// FootPrint identifies the pending payment for later status checks.
type InitiateResult struct {
	FootPrint string
	Status    string
	Raw       map[string]any
}

// StatusResult is the normalized response of a payment status check.
type StatusResult struct {
	Status string
	Raw    map[string]any
}

// Completed reports whether the provider settled the payment.
func (r StatusResult) Completed() bool {
	return r.Status == StatusSuccess
}

// Initiate starts a collection against the buyer's mobile wallet or card.
func (c *Client) Initiate(ctx context.Context, params InitiateParams) (*InitiateResult, error) {
	if params.OrderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	if params.MeanCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment mean code is required")
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"amount":        params.Amount.String(),
		"currency":      params.Currency,
		"orderNumber":   params.OrderNumber,
		"meanCode":      params.MeanCode,
		"paymentNumber": params.PaymentNumber,
	}
	if c.returnURL != "" {
		payload["returnUrl"] = c.returnURL
	}

	raw, err := c.post(ctx, "/requestToPay", token, payload)
	if err != nil {
		return nil, err
	}

	footPrint, _ := raw["adpFootprint"].(string)
	if footPrint == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "adwapay response missing footprint")
	}
	status, _ := raw["status"].(string)

	return &InitiateResult{
		FootPrint: footPrint,
		Status:    status,
		Raw:       raw,
	}, nil
}

// CheckStatus fetches the current state of a pending payment.
func (c *Client) CheckStatus(ctx context.Context, footPrint, meanCode string) (*StatusResult, error) {
	if footPrint == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment footprint is required")
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.post(ctx, "/paymentStatus", token, map[string]any{
		"adpFootprint": footPrint,
		"meanCode":     meanCode,
	})
	if err != nil {
		return nil, err
	}

	status, _ := raw["status"].(string)
	return &StatusResult{
		Status: status,
		Raw:    raw,
	}, nil
}

// fetchToken exchanges the merchant credentials for a short-lived API token.
func (c *Client) fetchToken(ctx context.Context) (string, error) {
	credentials := base64.StdEncoding.EncodeToString([]byte(c.merchantKey + ":" + c.applicationKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/getADPToken", nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build adwapay token request")
	}
	httpReq.Header.Set("Authorization", "Basic "+credentials)
	httpReq.Header.Set("AUTH-API-SUBSCRIPTION", c.subscriptionKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute adwapay token request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "adwapay token request failed")
	}

	var apiResp struct {
		Data struct {
			TokenCode string `json:"tokenCode"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode adwapay token response")
	}
	if apiResp.Data.TokenCode == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "adwapay token response missing token code")
	}
	return apiResp.Data.TokenCode, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal adwapay request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build adwapay request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("AUTH-API-SUBSCRIPTION", c.subscriptionKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute adwapay request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "adwapay request failed")
	}

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode adwapay response")
	}
	if envelope.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "adwapay response missing data")
	}
	return envelope.Data, nil
}
