package contract

import (
	"context"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"
)

type SubscriptionRepository interface {
	CreateOrder(ctx context.Context, order *entity.SubscriptionOrder) error
	UpdateOrder(ctx context.Context, order *entity.SubscriptionOrder) error
	FindOneOrder(ctx context.Context, specs ...specification.Specification) (*entity.SubscriptionOrder, error)
}
