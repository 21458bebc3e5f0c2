package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/enums"
)

// Order is the ledger entry and aggregate root for a purchase. OrderID is the
// human-readable reference (ORD-<year>-<6 alnum>) used as the gateway payment
// reference and the idempotency key for verification.
type Order struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID string    `gorm:"column:order_id;not null;uniqueIndex"`
	UserID  uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	User    *User     `gorm:"foreignKey:UserID"`

	Status        enums.OrderStatus   `gorm:"column:status;not null;default:'PENDING'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;not null;default:'PENDING'"`
	IsActive      bool                `gorm:"column:is_active;not null;default:true"`

	SubtotalMinor      int64      `gorm:"column:subtotal_minor;not null"`
	DiscountID         *uuid.UUID `gorm:"column:discount_id;type:uuid"`
	DiscountCode       *string    `gorm:"column:discount_code"`
	DiscountMinor      int64      `gorm:"column:discount_minor;not null;default:0"`
	ProcessingFeeMinor int64      `gorm:"column:processing_fee_minor;not null"`
	TotalMinor         int64      `gorm:"column:total_minor;not null"`

	QRCodeURL *string `gorm:"column:qr_code_url"`

	EventDate     string `gorm:"column:event_date;not null"`
	EventTime     string `gorm:"column:event_time;not null"`
	EventLocation string `gorm:"column:event_location;not null"`

	AffiliateID *uuid.UUID `gorm:"column:affiliate_id;type:uuid"`

	Items []OrderItem `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
