package contract

import (
	"context"
	"time"

	"ai-chat-be/internal/entity"

	"github.com/google/uuid"
)

type ChatroomRepository interface {
	Create(ctx context.Context, chatroom *entity.Chatroom) error
	FindOwnedBy(ctx context.Context, id uuid.UUID, userId uuid.UUID) (*entity.Chatroom, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Chatroom, error)
	// FindAllByUser lists the owner's chatrooms by updatedAt desc with message counts.
	FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.Chatroom, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}
