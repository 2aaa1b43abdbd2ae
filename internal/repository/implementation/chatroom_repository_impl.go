package implementation

import (
	"context"
	"errors"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/mapper"
	"ai-chat-be/internal/model"
	"ai-chat-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatroomRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatroomRepository(db *gorm.DB) contract.ChatroomRepository {
	return &ChatroomRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatroomRepositoryImpl) Create(ctx context.Context, chatroom *entity.Chatroom) error {
	m := r.mapper.ChatroomToModel(chatroom)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*chatroom = *r.mapper.ChatroomToEntity(m)
	return nil
}

func (r *ChatroomRepositoryImpl) FindOwnedBy(ctx context.Context, id uuid.UUID, userId uuid.UUID) (*entity.Chatroom, error) {
	var m model.Chatroom
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatroomToEntity(&m), nil
}

func (r *ChatroomRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Chatroom, error) {
	var m model.Chatroom
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatroomToEntity(&m), nil
}

func (r *ChatroomRepositoryImpl) FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.Chatroom, error) {
	var rows []*model.ChatroomWithCount
	err := r.db.WithContext(ctx).
		Table("chatrooms").
		Select("chatrooms.*, COUNT(messages.id) AS message_count").
		Joins("LEFT JOIN messages ON messages.chatroom_id = chatrooms.id").
		Where("chatrooms.user_id = ?", userId).
		Group("chatrooms.id").
		Order("chatrooms.updated_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entities := make([]*entity.Chatroom, len(rows))
	for i, row := range rows {
		entities[i] = r.mapper.ChatroomWithCountToEntity(row)
	}
	return entities, nil
}

// Touch sets updated_at directly so autoUpdateTime does not override at.
func (r *ChatroomRepositoryImpl) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Chatroom{}).Where("id = ?", id).UpdateColumn("updated_at", at).Error
}
