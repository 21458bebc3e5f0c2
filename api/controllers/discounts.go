package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shutupnraveee/backend/api/responses"
	"github.com/shutupnraveee/backend/api/validators"
	"github.com/shutupnraveee/backend/internal/discounts"
	"github.com/shutupnraveee/backend/pkg/db/models"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
)

type validateDiscountRequest struct {
	Code string `json:"code" validate:"required"`
}

type createDiscountRequest struct {
	Code       string          `json:"code" validate:"required"`
	Percentage decimal.Decimal `json:"percentage" validate:"required"`
}

type updateDiscountRequest struct {
	Code       *string          `json:"code" validate:"omitempty,min=1"`
	Percentage *decimal.Decimal `json:"percentage"`
	IsActive   *bool            `json:"is_active"`
}

type discountResponse struct {
	ID         uuid.UUID       `json:"id"`
	Code       string          `json:"code"`
	Percentage decimal.Decimal `json:"percentage"`
	IsActive   bool            `json:"is_active"`
	UsageCount int64           `json:"usage_count"`
}

func newDiscountResponse(discount *models.Discount) discountResponse {
	return discountResponse{
		ID:         discount.ID,
		Code:       discount.Code,
		Percentage: discount.Percentage,
		IsActive:   discount.IsActive,
		UsageCount: discount.UsageCount,
	}
}

// PublicDiscountValidate resolves a storefront-entered code without
// consuming a use.
func PublicDiscountValidate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body validateDiscountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discount, err := svc.Validate(r.Context(), body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"code":       discount.Code,
			"percentage": discount.Percentage,
		})
	}
}

// AdminDiscountCreate registers a new discount code.
func AdminDiscountCreate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createDiscountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discount, err := svc.Create(r.Context(), discounts.CreateInput{
			Code:       body.Code,
			Percentage: body.Percentage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDiscountResponse(discount))
	}
}

// AdminDiscountsList returns every code with its usage count.
func AdminDiscountsList(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]discountResponse, 0, len(list))
		for i := range list {
			out = append(out, newDiscountResponse(&list[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminDiscountUpdate edits a code's text, percentage, or active flag.
func AdminDiscountUpdate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := discountIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateDiscountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discount, err := svc.Update(r.Context(), id, discounts.UpdateInput{
			Code:       body.Code,
			Percentage: body.Percentage,
			IsActive:   body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDiscountResponse(discount))
	}
}

// AdminDiscountDelete removes a code outright.
func AdminDiscountDelete(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := discountIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func discountIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "discountId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount id")
	}
	return id, nil
}
