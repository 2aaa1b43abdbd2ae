package unitofwork

import (
	"context"

	"ai-chat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	ChatroomRepository() contract.ChatroomRepository
	MessageRepository() contract.MessageRepository
	UsageRepository() contract.UsageRepository
	SubscriptionRepository() contract.SubscriptionRepository
}
