package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/agrimarket/agrimarket-backend/api/responses"
	"github.com/agrimarket/agrimarket-backend/internal/transactions"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
	"github.com/agrimarket/agrimarket-backend/pkg/logger"
)

// adwaWebhookPayload mirrors the gateway callback body. The gateway adds
// fields over time, so unknown keys are tolerated here unlike client bodies.
type adwaWebhookPayload struct {
	Status        string          `json:"status"`
	FootPrint     string          `json:"adpFootprint"`
	OrderNumber   string          `json:"orderNumber"`
	MoyenPaiement string          `json:"moyenPaiement"`
	Amount        decimal.Decimal `json:"amount"`
}

// AdwaPayWebhook receives the gateway's settlement confirmation callback.
func AdwaPayWebhook(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions service unavailable"))
			return
		}

		defer func() {
			io.Copy(io.Discard, r.Body)
		}()

		var body adwaWebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook body"))
			return
		}

		err := svc.ConfirmWebhook(r.Context(), transactions.WebhookPayload{
			Status:        body.Status,
			FootPrint:     body.FootPrint,
			OrderNumber:   body.OrderNumber,
			MoyenPaiement: body.MoyenPaiement,
			Amount:        body.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "accepted"})
	}
}
