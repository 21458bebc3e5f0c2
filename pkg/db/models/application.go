package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/enums"
)

// Application is a DJ or volunteer intake submission.
type Application struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Kind         enums.ApplicationKind `gorm:"column:kind;not null;index"`
	FullName     string                `gorm:"column:full_name;not null"`
	Email        string                `gorm:"column:email;not null"`
	PhoneNumber  string                `gorm:"column:phone_number;not null"`
	Experience   string                `gorm:"column:experience"`
	MixURL       *string               `gorm:"column:mix_url"`
	Availability *string               `gorm:"column:availability"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
