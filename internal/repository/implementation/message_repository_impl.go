package implementation

import (
	"context"
	"errors"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/mapper"
	"ai-chat-be/internal/model"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/scope"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewMessageRepository(db *gorm.DB) contract.MessageRepository {
	return &MessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *MessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *MessageRepositoryImpl) Create(ctx context.Context, message *entity.Message) error {
	m := r.mapper.MessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *MessageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error) {
	var m model.Message
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.MessageToEntity(&m), nil
}

func (r *MessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	var models []*model.Message
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.MessagesToEntities(models), nil
}

func (r *MessageRepositoryImpl) FindRecent(ctx context.Context, chatroomId uuid.UUID, limit int, specs ...specification.Specification) ([]*entity.Message, error) {
	var models []*model.Message
	query := r.applySpecifications(r.db.WithContext(ctx).Where("chatroom_id = ?", chatroomId), specs...)
	if err := query.Scopes(scope.OrderByCreatedDesc).Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	// Newest N were fetched; hand them back oldest first.
	for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
		models[i], models[j] = models[j], models[i]
	}
	return r.mapper.MessagesToEntities(models), nil
}

func (r *MessageRepositoryImpl) FindReply(ctx context.Context, userMessageId uuid.UUID) (*entity.Message, error) {
	return r.FindOne(ctx, specification.ReplyTo{MessageID: userMessageId})
}

func (r *MessageRepositoryImpl) CreateReply(ctx context.Context, reply *entity.Message) (bool, error) {
	m := r.mapper.MessageToModel(reply)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reply_to_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	*reply = *r.mapper.MessageToEntity(m)
	return true, nil
}

func (r *MessageRepositoryImpl) UpdateContent(ctx context.Context, id uuid.UUID, content string, isFallback bool) error {
	return r.db.WithContext(ctx).Model(&model.Message{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":     content,
			"is_fallback": isFallback,
		}).Error
}
