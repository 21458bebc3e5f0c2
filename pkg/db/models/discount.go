package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Discount is a promotional percentage code. Percentage is a rate in (0, 1].
type Discount struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Code       string          `gorm:"column:code;not null;uniqueIndex"`
	Percentage decimal.Decimal `gorm:"column:percentage;type:numeric(6,4);not null"`
	IsActive   bool            `gorm:"column:is_active;not null;default:true"`
	UsageCount int64           `gorm:"column:usage_count;not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Discount) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
