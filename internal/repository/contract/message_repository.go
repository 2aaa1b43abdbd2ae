package contract

import (
	"context"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	// FindRecent returns the newest limit messages matching specs, oldest first.
	FindRecent(ctx context.Context, chatroomId uuid.UUID, limit int, specs ...specification.Specification) ([]*entity.Message, error)
	FindReply(ctx context.Context, userMessageId uuid.UUID) (*entity.Message, error)
	// CreateReply inserts an assistant reply unless one already exists for
	// ReplyToId. It reports whether a row was written.
	CreateReply(ctx context.Context, reply *entity.Message) (bool, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string, isFallback bool) error
}
