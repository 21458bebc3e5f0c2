package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketType is a named, priced product. The price is fixed at the moment the
// row is first created and never updated afterwards, so historical orders are
// never silently repriced.
type TicketType struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	PriceMinor  int64     `gorm:"column:price_minor;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *TicketType) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
