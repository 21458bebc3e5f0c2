package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the purchaser identity, upserted by email during checkout.
type User struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FullName    string    `gorm:"column:full_name;not null"`
	PhoneNumber string    `gorm:"column:phone_number;not null"`
	Email       string    `gorm:"column:email;not null;uniqueIndex"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
