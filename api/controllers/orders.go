package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/agrimarket/agrimarket-backend/api/middleware"
	"github.com/agrimarket/agrimarket-backend/api/responses"
	"github.com/agrimarket/agrimarket-backend/api/validators"
	"github.com/agrimarket/agrimarket-backend/internal/orders"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/agrimarket/agrimarket-backend/pkg/logger"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
)

type createOrderRequest struct {
	SellerID    string          `json:"sellerId" validate:"required,uuid"`
	ProductID   string          `json:"productId" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	ShipAddress string          `json:"shipAddress" validate:"required,max=500"`
	Weight      string          `json:"weight" validate:"required,max=100"`
	Method      string          `json:"method" validate:"omitempty,oneof=mtn_momo orange_money card external"`
	Currency    string          `json:"currency" validate:"omitempty,oneof=XAF USD EUR"`
}

type dispatchOrderRequest struct {
	Method   string     `json:"method" validate:"required,max=100"`
	Time     *time.Time `json:"time"`
	ImageURL *string    `json:"imageUrl"`
}

func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID, err := validators.PathUUID(body.SellerID, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.PathUUID(body.ProductID, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), orders.CreateInput{
			BuyerID:     middleware.ActorID(r.Context()),
			SellerID:    sellerID,
			ProductID:   productID,
			Amount:      body.Amount,
			ShipAddress: body.ShipAddress,
			Weight:      body.Weight,
			Method:      enums.PaymentMethod(body.Method),
			Currency:    enums.Currency(body.Currency),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(order))
	}
}

func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListForUser(
			r.Context(),
			middleware.ActorID(r.Context()),
			enums.RoleName(middleware.RoleFromContext(r.Context())),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderViews(list))
	}
}

func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), middleware.ActorID(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// OrderMarkComplete moves a paid order into processing.
func OrderMarkComplete(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkComplete(r.Context(), orders.MarkCompleteInput{
			OrderID: orderID,
			ActorID: middleware.ActorID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

func OrderDispatch(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body dispatchOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispatch := types.DispatchInfo{
			Method:   body.Method,
			ImageURL: body.ImageURL,
		}
		if body.Time != nil {
			dispatch.Time = *body.Time
		}

		order, err := svc.Dispatch(r.Context(), orders.DispatchInput{
			OrderID:  orderID,
			ActorID:  middleware.ActorID(r.Context()),
			Dispatch: dispatch,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

func OrderConfirmDelivery(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmDelivery(r.Context(), orders.ConfirmDeliveryInput{
			OrderID: orderID,
			ActorID: middleware.ActorID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}
