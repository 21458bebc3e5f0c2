package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shutupnraveee/backend/api/responses"
	"github.com/shutupnraveee/backend/api/validators"
	ordersvc "github.com/shutupnraveee/backend/internal/orders"
	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
	"github.com/shutupnraveee/backend/pkg/pagination"
)

type fulfillmentRunner interface {
	Run(ctx context.Context, order *models.Order) error
}

type orderItemResponse struct {
	TicketTypeID   uuid.UUID `json:"ticket_type_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	TotalMinor     int64     `json:"total_minor"`
}

type orderResponse struct {
	OrderID            string              `json:"order_id"`
	Status             enums.OrderStatus   `json:"status"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	IsActive           bool                `json:"is_active"`
	CustomerName       string              `json:"customer_name,omitempty"`
	CustomerEmail      string              `json:"customer_email,omitempty"`
	CustomerPhone      string              `json:"customer_phone,omitempty"`
	SubtotalMinor      int64               `json:"subtotal_minor"`
	DiscountCode       *string             `json:"discount_code,omitempty"`
	DiscountMinor      int64               `json:"discount_minor"`
	ProcessingFeeMinor int64               `json:"processing_fee_minor"`
	TotalMinor         int64               `json:"total_minor"`
	QRCodeURL          *string             `json:"qr_code_url,omitempty"`
	EventDate          string              `json:"event_date"`
	EventTime          string              `json:"event_time"`
	EventLocation      string              `json:"event_location"`
	Items              []orderItemResponse `json:"items"`
	CreatedAt          time.Time           `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		OrderID:            order.OrderID,
		Status:             order.Status,
		PaymentStatus:      order.PaymentStatus,
		IsActive:           order.IsActive,
		SubtotalMinor:      order.SubtotalMinor,
		DiscountCode:       order.DiscountCode,
		DiscountMinor:      order.DiscountMinor,
		ProcessingFeeMinor: order.ProcessingFeeMinor,
		TotalMinor:         order.TotalMinor,
		QRCodeURL:          order.QRCodeURL,
		EventDate:          order.EventDate,
		EventTime:          order.EventTime,
		EventLocation:      order.EventLocation,
		CreatedAt:          order.CreatedAt,
	}
	if order.User != nil {
		resp.CustomerName = order.User.FullName
		resp.CustomerEmail = order.User.Email
		resp.CustomerPhone = order.User.PhoneNumber
	}
	resp.Items = make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		name := ""
		if item.TicketType != nil {
			name = item.TicketType.Name
		}
		resp.Items = append(resp.Items, orderItemResponse{
			TicketTypeID:   item.TicketTypeID,
			Name:           name,
			Quantity:       item.Quantity,
			UnitPriceMinor: item.UnitPriceMinor,
			TotalMinor:     item.TotalMinor,
		})
	}
	return resp
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor *string         `json:"next_cursor,omitempty"`
}

func parseOrderFilters(r *http.Request) (ordersvc.Filters, error) {
	var filters ordersvc.Filters

	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status := enums.PaymentStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment_status filter")
		}
		filters.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.OrderStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filters.Status = &status
	}
	active, err := validators.ParseQueryBool(r, "active")
	if err != nil {
		return filters, err
	}
	filters.Active = active
	filters.Search = strings.TrimSpace(r.URL.Query().Get("search"))

	return filters, nil
}

// AdminOrdersList serves the back-office order ledger with cursor pagination.
func AdminOrdersList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := orderListResponse{
			Orders:     make([]orderResponse, 0, len(list.Orders)),
			NextCursor: list.NextCursor,
		}
		for i := range list.Orders {
			out.Orders = append(out.Orders, newOrderResponse(&list.Orders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminOrderGet serves one order by its reference, the QR lookup target.
func AdminOrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Get(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminOrdersExport streams the filtered ledger as CSV.
func AdminOrdersExport(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		data, err := svc.ExportCSV(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

// AdminOrderDeactivate consumes a ticket at the door.
func AdminOrderDeactivate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Deactivate(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminOrderResend re-runs fulfillment for a paid order so the buyer gets a
// fresh confirmation email. Commission rows are replay-safe.
func AdminOrderResend(svc ordersvc.Service, pipeline fulfillmentRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pipeline == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment unavailable"))
			return
		}

		order, err := svc.Get(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.PaymentStatus != enums.PaymentStatusPaid {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be resent"))
			return
		}

		if err := pipeline.Run(r.Context(), order); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resending confirmation"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "resent"})
	}
}
