package mapper

import (
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/model"

	"gorm.io/datatypes"
)

type SubscriptionMapper struct{}

func NewSubscriptionMapper() *SubscriptionMapper {
	return &SubscriptionMapper{}
}

func (m *SubscriptionMapper) OrderToEntity(o *model.SubscriptionOrder) *entity.SubscriptionOrder {
	if o == nil {
		return nil
	}
	return &entity.SubscriptionOrder{
		Id:          o.Id,
		OrderId:     o.OrderId,
		UserId:      o.UserId,
		Amount:      o.Amount,
		Status:      entity.OrderStatus(o.Status),
		SnapToken:   o.SnapToken,
		RedirectURL: o.RedirectURL,
		PaidAt:      o.PaidAt,
		PeriodEnd:   o.PeriodEnd,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func (m *SubscriptionMapper) OrderToModel(o *entity.SubscriptionOrder) *model.SubscriptionOrder {
	if o == nil {
		return nil
	}
	return &model.SubscriptionOrder{
		Id:          o.Id,
		OrderId:     o.OrderId,
		UserId:      o.UserId,
		Amount:      o.Amount,
		Status:      string(o.Status),
		SnapToken:   o.SnapToken,
		RedirectURL: o.RedirectURL,
		PaidAt:      o.PaidAt,
		PeriodEnd:   o.PeriodEnd,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// Usage Mappers

func (m *SubscriptionMapper) UsageToEntity(u *model.UsageStats) *entity.UsageStats {
	if u == nil {
		return nil
	}
	return &entity.UsageStats{
		Id:          u.Id,
		UserId:      u.UserId,
		Date:        time.Time(u.Date),
		PromptCount: u.PromptCount,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (m *SubscriptionMapper) UsageToModel(u *entity.UsageStats) *model.UsageStats {
	if u == nil {
		return nil
	}
	return &model.UsageStats{
		Id:          u.Id,
		UserId:      u.UserId,
		Date:        datatypes.Date(entity.UsageDay(u.Date)),
		PromptCount: u.PromptCount,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
