package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AffiliateCommission records commission owed for one order item attributed
// to an affiliate. The unique index enforces at most one record per
// (affiliate, order item) pair.
type AffiliateCommission struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	AffiliateID     uuid.UUID `gorm:"column:affiliate_id;type:uuid;not null;uniqueIndex:ux_commission_affiliate_item"`
	OrderItemID     uuid.UUID `gorm:"column:order_item_id;type:uuid;not null;uniqueIndex:ux_commission_affiliate_item"`
	TicketTypeID    uuid.UUID `gorm:"column:ticket_type_id;type:uuid;not null"`
	CommissionMinor int64     `gorm:"column:commission_minor;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *AffiliateCommission) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
