package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shutupnraveee/backend/api/middleware"
	"github.com/shutupnraveee/backend/api/responses"
	"github.com/shutupnraveee/backend/api/validators"
	"github.com/shutupnraveee/backend/internal/affiliates"
	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
)

type commissionRuleRequest struct {
	TicketTypeID uuid.UUID       `json:"ticket_type_id" validate:"required"`
	Kind         string          `json:"kind" validate:"required"`
	Rate         decimal.Decimal `json:"rate"`
	AmountMinor  int64           `json:"amount_minor" validate:"omitempty,min=0"`
}

type createAffiliateRequest struct {
	FullName    string                  `json:"full_name" validate:"required,min=2,max=120"`
	Email       string                  `json:"email" validate:"required,email"`
	PhoneNumber string                  `json:"phone_number" validate:"omitempty,max=32"`
	Password    string                  `json:"password" validate:"omitempty,min=8,max=128"`
	Rules       []commissionRuleRequest `json:"rules" validate:"omitempty,dive"`
}

type commissionRuleResponse struct {
	TicketTypeID uuid.UUID       `json:"ticket_type_id"`
	Kind         string          `json:"kind"`
	Rate         decimal.Decimal `json:"rate"`
	AmountMinor  int64           `json:"amount_minor"`
}

type affiliateResponse struct {
	ID        uuid.UUID                `json:"id"`
	FullName  string                   `json:"full_name,omitempty"`
	Email     string                   `json:"email,omitempty"`
	RefCode   string                   `json:"ref_code"`
	Status    enums.AffiliateStatus    `json:"status"`
	Rules     []commissionRuleResponse `json:"rules"`
	CreatedAt time.Time                `json:"created_at"`
}

type createdAffiliateResponse struct {
	affiliateResponse
	TempPassword string `json:"temp_password,omitempty"`
}

type commissionResponse struct {
	OrderItemID     uuid.UUID `json:"order_item_id"`
	TicketTypeID    uuid.UUID `json:"ticket_type_id"`
	CommissionMinor int64     `json:"commission_minor"`
	CreatedAt       time.Time `json:"created_at"`
}

type commissionReportResponse struct {
	Commissions []commissionResponse `json:"commissions"`
	TotalMinor  int64                `json:"total_minor"`
}

func newAffiliateResponse(affiliate *models.Affiliate) affiliateResponse {
	resp := affiliateResponse{
		ID:        affiliate.ID,
		RefCode:   affiliate.RefCode,
		Status:    affiliate.Status,
		CreatedAt: affiliate.CreatedAt,
	}
	if affiliate.User != nil {
		resp.FullName = affiliate.User.FullName
		resp.Email = affiliate.User.Email
	}
	resp.Rules = make([]commissionRuleResponse, 0, len(affiliate.Rules))
	for _, rule := range affiliate.Rules {
		resp.Rules = append(resp.Rules, commissionRuleResponse{
			TicketTypeID: rule.TicketTypeID,
			Kind:         string(rule.Kind),
			Rate:         rule.Rate,
			AmountMinor:  rule.AmountMinor,
		})
	}
	return resp
}

func newCommissionReportResponse(report *affiliates.CommissionReport) commissionReportResponse {
	out := commissionReportResponse{
		Commissions: make([]commissionResponse, 0, len(report.Commissions)),
		TotalMinor:  report.TotalMinor,
	}
	for _, commission := range report.Commissions {
		out.Commissions = append(out.Commissions, commissionResponse{
			OrderItemID:     commission.OrderItemID,
			TicketTypeID:    commission.TicketTypeID,
			CommissionMinor: commission.CommissionMinor,
			CreatedAt:       commission.CreatedAt,
		})
	}
	return out
}

// AdminAffiliateCreate onboards a referral partner. When no password is
// supplied the generated one is returned once in the response.
func AdminAffiliateCreate(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createAffiliateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rules := make([]affiliates.RuleInput, 0, len(body.Rules))
		for _, rule := range body.Rules {
			rules = append(rules, affiliates.RuleInput{
				TicketTypeID: rule.TicketTypeID,
				Kind:         enums.CommissionKind(rule.Kind),
				Rate:         rule.Rate,
				AmountMinor:  rule.AmountMinor,
			})
		}

		created, err := svc.Create(r.Context(), affiliates.CreateInput{
			FullName:    body.FullName,
			Email:       body.Email,
			PhoneNumber: body.PhoneNumber,
			Password:    body.Password,
			Rules:       rules,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createdAffiliateResponse{
			affiliateResponse: newAffiliateResponse(created.Affiliate),
			TempPassword:      created.TempPassword,
		})
	}
}

// AdminAffiliatesList returns every partner with their commission rules.
func AdminAffiliatesList(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]affiliateResponse, 0, len(list))
		for i := range list {
			out = append(out, newAffiliateResponse(&list[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminAffiliateCommissions reports earnings for one partner.
func AdminAffiliateCommissions(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "affiliateId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid affiliate id"))
			return
		}

		if _, err := svc.Get(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Commissions(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCommissionReportResponse(report))
	}
}

// AffiliateMyCommissions reports the authenticated partner's own earnings.
func AffiliateMyCommissions(svc affiliates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		affiliateID := middleware.AffiliateIDFromContext(r.Context())
		if affiliateID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "no affiliate account on this session"))
			return
		}

		report, err := svc.Commissions(r.Context(), affiliateID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCommissionReportResponse(report))
	}
}
