package affiliates

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/db/models"
)

// Repository persists affiliates, their commission rules, and earned
// commissions.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an affiliates repo bound to the provided GORM DB.
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

// Create inserts an affiliate row.
func (r *Repository) Create(ctx context.Context, affiliate *models.Affiliate) (*models.Affiliate, error) {
	if err := r.db.WithContext(ctx).Create(affiliate).Error; err != nil {
		return nil, err
	}
	return affiliate, nil
}

// FindByID loads an affiliate with their user and commission rules.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Rules").
		First(&affiliate, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// FindByRefCode resolves an affiliate from a storefront referral code.
func (r *Repository) FindByRefCode(ctx context.Context, refCode string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("ref_code = ?", refCode).
		First(&affiliate).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// FindByEmail resolves an affiliate through their linked user account.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id IN (SELECT id FROM users WHERE email = ?)", email).
		First(&affiliate).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// List returns all affiliates with users and rules, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Affiliate, error) {
	var affiliates []models.Affiliate
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Rules").
		Order("created_at DESC").
		Find(&affiliates).Error
	if err != nil {
		return nil, err
	}
	return affiliates, nil
}

// CreateRules inserts commission rules for an affiliate.
func (r *Repository) CreateRules(ctx context.Context, rules []models.CommissionRule) error {
	if len(rules) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rules).Error
}

// FindRule returns the rule an affiliate has for one ticket type, if any.
func (r *Repository) FindRule(ctx context.Context, affiliateID, ticketTypeID uuid.UUID) (*models.CommissionRule, error) {
	var rule models.CommissionRule
	err := r.db.WithContext(ctx).
		Where("affiliate_id = ? AND ticket_type_id = ?", affiliateID, ticketTypeID).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// CreateCommission records one earned commission. The unique constraint on
// (affiliate_id, order_item_id) makes replays collide.
func (r *Repository) CreateCommission(ctx context.Context, commission *models.AffiliateCommission) error {
	return r.db.WithContext(ctx).Create(commission).Error
}

// ListCommissions returns earned commissions for an affiliate, newest first.
func (r *Repository) ListCommissions(ctx context.Context, affiliateID uuid.UUID) ([]models.AffiliateCommission, error) {
	var commissions []models.AffiliateCommission
	err := r.db.WithContext(ctx).
		Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

// SumCommissions totals everything an affiliate has earned, in minor units.
func (r *Repository) SumCommissions(ctx context.Context, affiliateID uuid.UUID) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&models.AffiliateCommission{}).
		Where("affiliate_id = ?", affiliateID).
		Select("SUM(commission_minor)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
