package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/db"
	"github.com/shutupnraveee/backend/pkg/db/models"
)

// Repository exposes purchaser identity persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
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

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertByEmail finds the user by email and refreshes their contact details,
// or creates them when missing. Email is the stable identity key.
func (r *Repository) UpsertByEmail(ctx context.Context, fullName, phoneNumber, email string) (*models.User, error) {
	email = normalizeEmail(email)

	existing, err := r.FindByEmail(ctx, email)
	switch {
	case err == nil:
		existing.FullName = fullName
		existing.PhoneNumber = phoneNumber
		if err := r.db.WithContext(ctx).
			Model(existing).
			Updates(map[string]any{"full_name": fullName, "phone_number": phoneNumber}).Error; err != nil {
			return nil, err
		}
		return existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user := &models.User{
			FullName:    fullName,
			PhoneNumber: phoneNumber,
			Email:       email,
		}
		createErr := r.db.WithContext(ctx).Create(user).Error
		if createErr == nil {
			return user, nil
		}
		// A concurrent checkout may have inserted the same email; the
		// loser re-reads the winner.
		if db.IsUniqueViolation(createErr, "") {
			return r.FindByEmail(ctx, email)
		}
		return nil, createErr
	default:
		return nil, err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
