package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderItem is a line item. Created atomically with its parent order and never
// mutated afterwards.
type OrderItem struct {
	ID             uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID   `gorm:"column:order_id;type:uuid;not null;index"`
	TicketTypeID   uuid.UUID   `gorm:"column:ticket_type_id;type:uuid;not null"`
	TicketType     *TicketType `gorm:"foreignKey:TicketTypeID"`
	Quantity       int         `gorm:"column:quantity;not null"`
	UnitPriceMinor int64       `gorm:"column:unit_price_minor;not null"`
	TotalMinor     int64       `gorm:"column:total_minor;not null"`
	CreatedAt      time.Time   `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
