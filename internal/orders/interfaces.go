package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/pagination"
)

// Repository defines persistence operations for the order ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID string) (bool, error)
	MarkFailed(ctx context.Context, orderID string) (bool, error)
	SetQRCodeURL(ctx context.Context, orderID, url string) (bool, error)
	DeactivateTicket(ctx context.Context, orderID string) (bool, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*List, error)
	ListAll(ctx context.Context, filters Filters) ([]models.Order, error)
}
