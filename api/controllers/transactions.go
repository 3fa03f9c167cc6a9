package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/agrimarket/agrimarket-backend/api/middleware"
	"github.com/agrimarket/agrimarket-backend/api/responses"
	"github.com/agrimarket/agrimarket-backend/api/validators"
	"github.com/agrimarket/agrimarket-backend/internal/transactions"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/agrimarket/agrimarket-backend/pkg/logger"
)

type initiatePaymentRequest struct {
	Method        string `json:"method" validate:"omitempty,oneof=mtn_momo orange_money card"`
	PaymentNumber string `json:"paymentNumber" validate:"max=30"`
	Provider      string `json:"provider" validate:"max=50"`
}

type externalPaymentRequest struct {
	Amount            decimal.Decimal `json:"amount" validate:"required"`
	Currency          string          `json:"currency" validate:"omitempty,oneof=XAF USD EUR"`
	ExternalPaymentID string          `json:"externalPaymentId" validate:"required,max=200"`
	Provider          string          `json:"provider" validate:"max=50"`
}

type initiatePaymentResponse struct {
	OrderNumber string `json:"orderNumber"`
	FootPrint   string `json:"footPrint,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Status      string `json:"status"`
}

// TransactionInitiate starts payment collection for an order. The response
// returns immediately; mobile-money settlement resolves in the background.
func TransactionInitiate(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.InitiatePayment(r.Context(), transactions.InitiateInput{
			OrderID:       orderID,
			ActorID:       middleware.ActorID(r.Context()),
			Method:        enums.PaymentMethod(body.Method),
			PaymentNumber: body.PaymentNumber,
			Provider:      body.Provider,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, initiatePaymentResponse{
			OrderNumber: result.OrderNumber,
			FootPrint:   result.FootPrint,
			RedirectURL: result.RedirectURL,
			Status:      string(result.Status),
		})
	}
}

// TransactionStatus is the polling endpoint clients hit while the background
// settlement check runs.
func TransactionStatus(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transaction, err := svc.Status(r.Context(), middleware.ActorID(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransactionView(transaction))
	}
}

// TransactionConfirmExternal settles a payment collected by an integrator's
// own gateway, verifying the claim with the processor when one is registered.
func TransactionConfirmExternal(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body externalPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.ConfirmExternal(r.Context(), transactions.ExternalInput{
			OrderID:           orderID,
			ActorID:           middleware.ActorID(r.Context()),
			Amount:            body.Amount,
			Currency:          enums.Currency(body.Currency),
			ExternalPaymentID: body.ExternalPaymentID,
			Provider:          body.Provider,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "completed"})
	}
}
