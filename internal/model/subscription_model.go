package model

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionOrder struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderId     string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	UserId      uuid.UUID `gorm:"type:uuid;not null;index"`
	Amount      int64     `gorm:"not null"`
	Status      string    `gorm:"type:varchar(20);not null;default:'pending'"`
	SnapToken   string    `gorm:"type:varchar(255)"`
	RedirectURL string    `gorm:"type:text"`
	PaidAt      *time.Time
	PeriodEnd   *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (SubscriptionOrder) TableName() string {
	return "subscription_orders"
}
