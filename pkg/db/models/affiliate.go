package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/enums"
)

// Affiliate is a referral partner. RefCode is generated from the partner name
// plus a random suffix, with collision retry at creation time.
type Affiliate struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	User         *User                 `gorm:"foreignKey:UserID"`
	RefCode      string                `gorm:"column:ref_code;not null;uniqueIndex"`
	Status       enums.AffiliateStatus `gorm:"column:status;not null;default:'ACTIVE'"`
	PasswordHash *string               `gorm:"column:password_hash"`
	Rules        []CommissionRule      `gorm:"foreignKey:AffiliateID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Affiliate) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CommissionRule configures how an affiliate earns on one ticket type:
// either a rate in (0, 1] applied to the line item total, or a fixed amount
// per line item.
type CommissionRule struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	AffiliateID  uuid.UUID            `gorm:"column:affiliate_id;type:uuid;not null;uniqueIndex:ux_rule_affiliate_ticket"`
	TicketTypeID uuid.UUID            `gorm:"column:ticket_type_id;type:uuid;not null;uniqueIndex:ux_rule_affiliate_ticket"`
	Kind         enums.CommissionKind `gorm:"column:kind;not null"`
	Rate         decimal.Decimal      `gorm:"column:rate;type:numeric(6,4);not null;default:0"`
	AmountMinor  int64                `gorm:"column:amount_minor;not null;default:0"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (r *CommissionRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
