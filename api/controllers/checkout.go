package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shutupnraveee/backend/api/responses"
	"github.com/shutupnraveee/backend/api/validators"
	checkoutsvc "github.com/shutupnraveee/backend/internal/checkout"
	"github.com/shutupnraveee/backend/pkg/logger"
)

type checkoutItemRequest struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=50"`
}

type checkoutRequest struct {
	FullName     string                `json:"full_name" validate:"required,min=2,max=120"`
	Email        string                `json:"email" validate:"required,email"`
	PhoneNumber  string                `json:"phone_number" validate:"omitempty,max=32"`
	Items        []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	DiscountCode string                `json:"discount_code" validate:"omitempty,max=64"`
	RefCode      string                `json:"ref_code" validate:"omitempty,max=64"`
}

type checkoutResponse struct {
	OrderID          string `json:"order_id"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
	AccessCode       string `json:"access_code,omitempty"`
	TotalMinor       int64  `json:"total_minor"`
}

// CheckoutInitiate prices the cart and opens a hosted payment session.
func CheckoutInitiate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]checkoutsvc.LineItemInput, 0, len(body.Items))
		for _, item := range body.Items {
			items = append(items, checkoutsvc.LineItemInput{Name: item.Name, Quantity: item.Quantity})
		}

		result, err := svc.Initiate(r.Context(), checkoutsvc.InitiateInput{
			FullName:     body.FullName,
			Email:        body.Email,
			PhoneNumber:  body.PhoneNumber,
			Items:        items,
			DiscountCode: body.DiscountCode,
			RefCode:      body.RefCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:          result.OrderID,
			AuthorizationURL: result.AuthorizationURL,
			AccessCode:       result.AccessCode,
			TotalMinor:       result.TotalMinor,
		})
	}
}

// CheckoutVerify settles the payment behind an order reference. Safe to call
// repeatedly; only the first successful verification runs fulfillment.
func CheckoutVerify(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := chi.URLParam(r, "orderId")

		order, err := svc.Complete(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
