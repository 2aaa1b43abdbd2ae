package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id                 uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MobileNumber       string     `gorm:"type:varchar(20);uniqueIndex;not null"`
	Name               *string    `gorm:"type:varchar(255)"`
	Email              *string    `gorm:"type:varchar(255)"`
	PasswordHash       *string    `gorm:"type:varchar(255)"`
	Tier               string     `gorm:"type:varchar(10);not null;default:'BASIC'"`
	SubscriptionStatus *string    `gorm:"type:varchar(50)"`
	CurrentPeriodEnd   *time.Time `gorm:"type:timestamptz"`
	CreatedAt          time.Time  `gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

type Otp struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Code      string    `gorm:"type:varchar(6);not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Verified  bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Otp) TableName() string {
	return "otps"
}
