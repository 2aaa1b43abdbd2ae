package entity

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionTier string

const (
	TierBasic SubscriptionTier = "BASIC"
	TierPro   SubscriptionTier = "PRO"
)

type User struct {
	Id                 uuid.UUID
	MobileNumber       string
	Name               *string
	Email              *string
	PasswordHash       *string
	Tier               SubscriptionTier
	SubscriptionStatus *string
	CurrentPeriodEnd   *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (u *User) IsPro() bool {
	return u.Tier == TierPro
}

// ProExpired reports whether a PRO period has lapsed as of now.
func (u *User) ProExpired(now time.Time) bool {
	return u.Tier == TierPro && u.CurrentPeriodEnd != nil && now.After(*u.CurrentPeriodEnd)
}

type Otp struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Code      string
	ExpiresAt time.Time
	Verified  bool
	CreatedAt time.Time
}
