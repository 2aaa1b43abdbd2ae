package dto

import (
	"time"

	"github.com/google/uuid"
)

type SignupRequest struct {
	MobileNumber string  `json:"mobileNumber" validate:"required,len=10,numeric"`
	Name         *string `json:"name" validate:"omitempty,min=1,max=100"`
	Password     *string `json:"password" validate:"omitempty,min=6"`
	Email        *string `json:"email" validate:"omitempty,email"`
}

type SendOtpRequest struct {
	MobileNumber string `json:"mobileNumber" validate:"required,len=10,numeric"`
}

type ForgotPasswordRequest struct {
	MobileNumber string `json:"mobileNumber" validate:"required,len=10,numeric"`
}

// SendOtpResponse carries the code itself only outside production.
type SendOtpResponse struct {
	Otp       string    `json:"otp,omitempty"`
	ExpiresIn string    `json:"expiresIn"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type VerifyOtpRequest struct {
	MobileNumber string `json:"mobileNumber" validate:"required,len=10,numeric"`
	Otp          string `json:"otp" validate:"required,len=6,numeric"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type UserResponse struct {
	Id               uuid.UUID `json:"id"`
	MobileNumber     string    `json:"mobileNumber"`
	Name             *string   `json:"name"`
	Email            *string   `json:"email,omitempty"`
	SubscriptionTier string    `json:"subscriptionTier"`
	CreatedAt        time.Time `json:"createdAt"`
}
