package entity

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// SubscriptionOrder is one checkout attempt for a PRO period.
type SubscriptionOrder struct {
	Id          uuid.UUID
	OrderId     string
	UserId      uuid.UUID
	Amount      int64
	Status      OrderStatus
	SnapToken   string
	RedirectURL string
	PaidAt      *time.Time
	PeriodEnd   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
