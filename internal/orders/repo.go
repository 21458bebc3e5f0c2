package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	"github.com/shutupnraveee/backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Items.TicketType").
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Items.TicketType").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaid settles a pending order. The conditional WHERE makes the
// transition idempotent under concurrent verification: exactly one caller
// observes the flip.
func (r *repository) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"status":         enums.OrderStatusConfirmed,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed records a declined settlement, guarded the same way as MarkPaid.
func (r *repository) MarkFailed(ctx context.Context, orderID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"status":         enums.OrderStatusCancelled,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetQRCodeURL attaches the hosted ticket asset, only for paid orders.
func (r *repository) SetQRCodeURL(ctx context.Context, orderID, url string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ? AND payment_status = ?", orderID, enums.PaymentStatusPaid).
		Updates(map[string]any{
			"qr_code_url": url,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeactivateTicket flips is_active one way. The caller is responsible for
// the paid/confirmed guards; the WHERE only protects the one-way invariant.
func (r *repository) DeactivateTicket(ctx context.Context, orderID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ? AND is_active = ?", orderID, true).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.Order{}), filters)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var results []models.Order
	err = query.
		Preload("User").
		Preload("Items.TicketType").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	list := &List{Orders: results}
	if len(results) > normalized {
		list.Orders = results[:normalized]
		// The cursor predicate is a strict <, so encode the last row we
		// return; the next page starts right after it.
		last := list.Orders[normalized-1]
		encoded := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &encoded
	}
	return list, nil
}

func (r *repository) ListAll(ctx context.Context, filters Filters) ([]models.Order, error) {
	var results []models.Order
	err := r.applyFilters(r.db.WithContext(ctx).Model(&models.Order{}), filters).
		Preload("User").
		Preload("Items.TicketType").
		Order("created_at DESC, id DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repository) applyFilters(query *gorm.DB, filters Filters) *gorm.DB {
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Active != nil {
		query = query.Where("is_active = ?", *filters.Active)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where(
			"order_id LIKE ? OR user_id IN (SELECT id FROM users WHERE email LIKE ? OR full_name LIKE ?)",
			pattern, pattern, pattern,
		)
	}
	return query
}
