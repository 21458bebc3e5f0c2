package orders

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
	"github.com/shutupnraveee/backend/pkg/pagination"
)

// AssetRemover deletes a hosted ticket asset. Removal is best effort; a
// failure never blocks deactivation.
type AssetRemover interface {
	DeleteObject(ctx context.Context, objectName string) error
}

// Service exposes the back-office surface of the order ledger.
type Service interface {
	Get(ctx context.Context, orderID string) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*List, error)
	ExportCSV(ctx context.Context, filters Filters) ([]byte, error)
	Deactivate(ctx context.Context, orderID string) (*models.Order, error)
}

type service struct {
	repo         Repository
	assets       AssetRemover
	objectPrefix string
	logg         *logger.Logger
}

// NewService wires the order ledger service. assets may be nil when no
// object storage is configured.
func NewService(repo Repository, assets AssetRemover, objectPrefix string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:         repo,
		assets:       assets,
		objectPrefix: strings.Trim(objectPrefix, "/"),
		logg:         logg,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	if !IsValidOrderID(orderID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order reference")
	}
	order, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return list, nil
}

// Deactivate consumes a ticket at the door. Only paid, confirmed, active
// orders qualify; the flip is one way and never reversed.
func (s *service) Deactivate(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ticket has already been deactivated")
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be deactivated")
	}
	if order.Status != enums.OrderStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only confirmed orders can be deactivated")
	}

	flipped, err := s.repo.DeactivateTicket(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivating ticket")
	}
	if !flipped {
		// Lost a race with another scan.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ticket has already been deactivated")
	}

	s.removeTicketAsset(ctx, order)

	order.IsActive = false
	return order, nil
}

func (s *service) removeTicketAsset(ctx context.Context, order *models.Order) {
	if s.assets == nil || order.QRCodeURL == nil {
		return
	}
	objectName := fmt.Sprintf("%s/%s.png", s.objectPrefix, order.OrderID)
	if err := s.assets.DeleteObject(ctx, objectName); err != nil {
		ctx = s.logg.WithOrderID(ctx, order.OrderID)
		s.logg.Warn(ctx, fmt.Sprintf("removing ticket asset failed: %v", err))
	}
}

var exportHeader = []string{
	"order_id", "created_at", "customer", "email", "phone",
	"status", "payment_status", "active", "items",
	"subtotal_minor", "discount_code", "discount_minor",
	"processing_fee_minor", "total_minor",
}

// ExportCSV renders all matching orders as a CSV document.
func (s *service) ExportCSV(ctx context.Context, filters Filters) ([]byte, error) {
	results, err := s.repo.ListAll(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "exporting orders")
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(exportHeader); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing csv header")
	}

	for i := range results {
		order := &results[i]
		if err := writer.Write(exportRow(order)); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing csv row")
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flushing csv")
	}
	return buf.Bytes(), nil
}

func exportRow(order *models.Order) []string {
	var customer, email, phone string
	if order.User != nil {
		customer = order.User.FullName
		email = order.User.Email
		phone = order.User.PhoneNumber
	}

	items := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		name := item.TicketTypeID.String()
		if item.TicketType != nil {
			name = item.TicketType.Name
		}
		items = append(items, fmt.Sprintf("%dx %s", item.Quantity, name))
	}

	discountCode := ""
	if order.DiscountCode != nil {
		discountCode = *order.DiscountCode
	}

	return []string{
		order.OrderID,
		order.CreatedAt.UTC().Format(time.RFC3339),
		customer,
		email,
		phone,
		string(order.Status),
		string(order.PaymentStatus),
		strconv.FormatBool(order.IsActive),
		strings.Join(items, "; "),
		strconv.FormatInt(order.SubtotalMinor, 10),
		discountCode,
		strconv.FormatInt(order.DiscountMinor, 10),
		strconv.FormatInt(order.ProcessingFeeMinor, 10),
		strconv.FormatInt(order.TotalMinor, 10),
	}
}
