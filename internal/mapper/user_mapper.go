package mapper

import (
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/model"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		Id:                 u.Id,
		MobileNumber:       u.MobileNumber,
		Name:               u.Name,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		Tier:               entity.SubscriptionTier(u.Tier),
		SubscriptionStatus: u.SubscriptionStatus,
		CurrentPeriodEnd:   u.CurrentPeriodEnd,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (m *UserMapper) ToModel(u *entity.User) *model.User {
	if u == nil {
		return nil
	}
	tier := string(u.Tier)
	if tier == "" {
		tier = string(entity.TierBasic)
	}
	return &model.User{
		Id:                 u.Id,
		MobileNumber:       u.MobileNumber,
		Name:               u.Name,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		Tier:               tier,
		SubscriptionStatus: u.SubscriptionStatus,
		CurrentPeriodEnd:   u.CurrentPeriodEnd,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// Otp Mappers

func (m *UserMapper) OtpToEntity(o *model.Otp) *entity.Otp {
	if o == nil {
		return nil
	}
	return &entity.Otp{
		Id:        o.Id,
		UserId:    o.UserId,
		Code:      o.Code,
		ExpiresAt: o.ExpiresAt,
		Verified:  o.Verified,
		CreatedAt: o.CreatedAt,
	}
}

func (m *UserMapper) OtpToModel(o *entity.Otp) *model.Otp {
	if o == nil {
		return nil
	}
	return &model.Otp{
		Id:        o.Id,
		UserId:    o.UserId,
		Code:      o.Code,
		ExpiresAt: o.ExpiresAt,
		Verified:  o.Verified,
		CreatedAt: o.CreatedAt,
	}
}
