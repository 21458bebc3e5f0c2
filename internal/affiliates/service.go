package affiliates

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/internal/users"
	"github.com/shutupnraveee/backend/pkg/config"
	"github.com/shutupnraveee/backend/pkg/db"
	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/security"
)

const refCodeRetries = 3

const tempPasswordLen = 12

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RuleInput configures how the new affiliate earns on one ticket type.
type RuleInput struct {
	TicketTypeID uuid.UUID
	Kind         enums.CommissionKind
	Rate         decimal.Decimal
	AmountMinor  int64
}

// CreateInput carries the fields for onboarding a referral partner.
type CreateInput struct {
	FullName    string
	Email       string
	PhoneNumber string
	Password    string
	Rules       []RuleInput
}

// Created is the onboarding result. TempPassword is set only when the
// password was generated server-side; it is shown once and never stored in
// the clear.
type Created struct {
	Affiliate    *models.Affiliate
	TempPassword string
}

// CommissionReport is the affiliate dashboard payload.
type CommissionReport struct {
	Commissions []models.AffiliateCommission
	TotalMinor  int64
}

// Service owns affiliate onboarding and reporting.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Created, error)
	List(ctx context.Context) ([]models.Affiliate, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Affiliate, error)
	Commissions(ctx context.Context, affiliateID uuid.UUID) (*CommissionReport, error)
}

type service struct {
	repo        *Repository
	userRepo    *users.Repository
	tx          txRunner
	passwordCfg config.PasswordConfig
}

// NewService wires the affiliates service.
func NewService(repo *Repository, userRepo *users.Repository, tx txRunner, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("affiliates repository is required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:        repo,
		userRepo:    userRepo,
		tx:          tx,
		passwordCfg: passwordCfg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Created, error) {
	if input.FullName == "" || input.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name and email are required")
	}
	for _, rule := range input.Rules {
		if !rule.Kind.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid commission kind %q", rule.Kind))
		}
		if rule.Kind == enums.CommissionKindPercentage {
			if rule.Rate.LessThanOrEqual(decimal.Zero) || rule.Rate.GreaterThan(decimal.NewFromInt(1)) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage rate must be in (0, 1]")
			}
		}
		if rule.Kind == enums.CommissionKindFixed && rule.AmountMinor <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "fixed commission amount must be positive")
		}
	}

	password := input.Password
	tempPassword := ""
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLen)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating temporary password")
		}
		password = generated
		tempPassword = generated
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing affiliate password")
	}

	var created *models.Affiliate
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := s.userRepo.WithTx(tx).UpsertByEmail(ctx, input.FullName, input.PhoneNumber, input.Email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving affiliate identity")
		}

		if _, err := repo.FindByEmail(ctx, user.Email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "an affiliate already exists for this email")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking for existing affiliate")
		}

		affiliate, err := s.createWithFreshRefCode(ctx, repo, user.ID, input.FullName, hash)
		if err != nil {
			return err
		}

		rules := make([]models.CommissionRule, 0, len(input.Rules))
		for _, rule := range input.Rules {
			rules = append(rules, models.CommissionRule{
				AffiliateID:  affiliate.ID,
				TicketTypeID: rule.TicketTypeID,
				Kind:         rule.Kind,
				Rate:         rule.Rate,
				AmountMinor:  rule.AmountMinor,
			})
		}
		if err := repo.CreateRules(ctx, rules); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving commission rules")
		}

		affiliate.Rules = rules
		affiliate.User = user
		created = affiliate
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return &Created{Affiliate: created, TempPassword: tempPassword}, nil
}

// createWithFreshRefCode retries ref code generation on unique collisions.
func (s *service) createWithFreshRefCode(ctx context.Context, repo *Repository, userID uuid.UUID, name, passwordHash string) (*models.Affiliate, error) {
	var lastErr error
	for attempt := 0; attempt < refCodeRetries; attempt++ {
		refCode, err := NewRefCode(name)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating referral code")
		}
		affiliate, err := repo.Create(ctx, &models.Affiliate{
			UserID:       userID,
			RefCode:      refCode,
			Status:       enums.AffiliateStatusActive,
			PasswordHash: &passwordHash,
		})
		if err == nil {
			return affiliate, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving affiliate")
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "exhausted referral code attempts")
}

func (s *service) List(ctx context.Context) ([]models.Affiliate, error) {
	affiliates, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing affiliates")
	}
	return affiliates, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Affiliate, error) {
	affiliate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "affiliate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading affiliate")
	}
	return affiliate, nil
}

func (s *service) Commissions(ctx context.Context, affiliateID uuid.UUID) (*CommissionReport, error) {
	commissions, err := s.repo.ListCommissions(ctx, affiliateID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing commissions")
	}
	total, err := s.repo.SumCommissions(ctx, affiliateID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "totalling commissions")
	}
	return &CommissionReport{Commissions: commissions, TotalMinor: total}, nil
}

// CommissionFor computes the payout one rule yields on one line item.
func CommissionFor(rule *models.CommissionRule, item *models.OrderItem) int64 {
	if rule == nil || item == nil {
		return 0
	}
	switch rule.Kind {
	case enums.CommissionKindPercentage:
		return decimal.NewFromInt(item.TotalMinor).Mul(rule.Rate).Round(0).IntPart()
	case enums.CommissionKindFixed:
		return rule.AmountMinor
	}
	return 0
}
