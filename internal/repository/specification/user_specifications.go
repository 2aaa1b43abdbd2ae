package specification

import (
	"time"

	"gorm.io/gorm"

	"github.com/google/uuid"
)

type ByMobileNumber struct {
	MobileNumber string
}

func (s ByMobileNumber) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("mobile_number = ?", s.MobileNumber)
}

type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// Otp Specs

type ByOtpCode struct {
	Code string
}

func (s ByOtpCode) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("code = ?", s.Code)
}

// PendingOtp matches codes that are neither verified nor expired at Now.
type PendingOtp struct {
	Now time.Time
}

func (s PendingOtp) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("verified = ? AND expires_at > ?", false, s.Now)
}

// Order Specs

type ByOrderID struct {
	OrderID string
}

func (s ByOrderID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("order_id = ?", s.OrderID)
}
