package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/db"
	"github.com/shutupnraveee/backend/pkg/db/models"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
)

// Service owns discount code lifecycle and storefront validation.
type Service interface {
	Validate(ctx context.Context, code string) (*models.Discount, error)
	Create(ctx context.Context, input CreateInput) (*models.Discount, error)
	List(ctx context.Context) ([]models.Discount, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Discount, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput carries the fields for a new discount code.
type CreateInput struct {
	Code       string
	Percentage decimal.Decimal
}

// UpdateInput edits an existing code. Nil fields are left untouched.
type UpdateInput struct {
	Code       *string
	Percentage *decimal.Decimal
	IsActive   *bool
}

type service struct {
	repo *Repository
}

// NewService wires the discounts service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discounts repository is required")
	}
	return &service{repo: repo}, nil
}

// Validate resolves an active discount code for the storefront. It never
// mutates usage_count; that happens only when a paid order settles.
func (s *service) Validate(ctx context.Context, code string) (*models.Discount, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}

	discount, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading discount code")
	}
	if !discount.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount code is no longer active")
	}
	return discount, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Discount, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	if input.Percentage.LessThanOrEqual(decimal.Zero) || input.Percentage.GreaterThan(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage must be in (0, 1]")
	}

	discount, err := s.repo.Create(ctx, &models.Discount{
		Code:       code,
		Percentage: input.Percentage,
		IsActive:   true,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("discount code %q already exists", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating discount code")
	}
	return discount, nil
}

func (s *service) List(ctx context.Context) ([]models.Discount, error) {
	discounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing discount codes")
	}
	return discounts, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Discount, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading discount code")
	}

	updates := map[string]any{}
	if input.Code != nil {
		code := NormalizeCode(*input.Code)
		if code == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
		}
		updates["code"] = code
	}
	if input.Percentage != nil {
		if input.Percentage.LessThanOrEqual(decimal.Zero) || input.Percentage.GreaterThan(decimal.NewFromInt(1)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage must be in (0, 1]")
		}
		updates["percentage"] = *input.Percentage
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "discount code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating discount code")
	}

	discount, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading discount code")
	}
	return discount, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading discount code")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting discount code")
	}
	return nil
}

// NormalizeCode trims and uppercases a storefront-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
