package tickets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/db"
	"github.com/shutupnraveee/backend/pkg/db/models"
)

// Repository persists ticket types. Prices are fixed at first sight: once a
// row exists for a name, its stored price wins over whatever the caller
// passes in.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a ticket types repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByName retrieves a ticket type by its unique name.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.TicketType, error) {
	var ticket models.TicketType
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// FindByID loads a ticket type by UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TicketType, error) {
	var ticket models.TicketType
	if err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// List returns all ticket types ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.TicketType, error) {
	var tickets []models.TicketType
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetOrCreate returns the existing ticket type for name, or creates it with
// the provided price. A concurrent insert losing the unique-name race falls
// back to re-reading the winner, so the first persisted price always sticks.
func (r *Repository) GetOrCreate(ctx context.Context, name string, priceMinor int64, description string) (*models.TicketType, error) {
	existing, err := r.FindByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ticket := &models.TicketType{
		Name:        name,
		PriceMinor:  priceMinor,
		Description: description,
	}
	createErr := r.db.WithContext(ctx).Create(ticket).Error
	if createErr == nil {
		return ticket, nil
	}
	if db.IsUniqueViolation(createErr, "") {
		return r.FindByName(ctx, name)
	}
	return nil, createErr
}
