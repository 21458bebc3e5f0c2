package applications

import (
	"context"

	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
)

// Repository persists DJ and volunteer applications.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an applications repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an application.
func (r *Repository) Create(ctx context.Context, application *models.Application) (*models.Application, error) {
	if err := r.db.WithContext(ctx).Create(application).Error; err != nil {
		return nil, err
	}
	return application, nil
}

// ListByKind returns applications of one kind, newest first. A zero kind
// returns everything.
func (r *Repository) ListByKind(ctx context.Context, kind enums.ApplicationKind) ([]models.Application, error) {
	query := r.db.WithContext(ctx).Model(&models.Application{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var applications []models.Application
	if err := query.Order("created_at DESC").Find(&applications).Error; err != nil {
		return nil, err
	}
	return applications, nil
}
