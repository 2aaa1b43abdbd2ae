package mapper

import (
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Chatroom Mappers

func (m *ChatMapper) ChatroomToEntity(c *model.Chatroom) *entity.Chatroom {
	if c == nil {
		return nil
	}
	return &entity.Chatroom{
		Id:        c.Id,
		UserId:    c.UserId,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (m *ChatMapper) ChatroomWithCountToEntity(c *model.ChatroomWithCount) *entity.Chatroom {
	if c == nil {
		return nil
	}
	e := m.ChatroomToEntity(&c.Chatroom)
	e.MessageCount = c.MessageCount
	return e
}

func (m *ChatMapper) ChatroomToModel(c *entity.Chatroom) *model.Chatroom {
	if c == nil {
		return nil
	}
	return &model.Chatroom{
		Id:        c.Id,
		UserId:    c.UserId,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// Message Mappers

func (m *ChatMapper) MessageToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}
	return &entity.Message{
		Id:         msg.Id,
		ChatroomId: msg.ChatroomId,
		Content:    msg.Content,
		Role:       entity.MessageRole(msg.Role),
		ReplyToId:  msg.ReplyToId,
		IsFallback: msg.IsFallback,
		CreatedAt:  msg.CreatedAt,
		UpdatedAt:  msg.UpdatedAt,
	}
}

func (m *ChatMapper) MessageToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}
	return &model.Message{
		Id:         msg.Id,
		ChatroomId: msg.ChatroomId,
		Content:    msg.Content,
		Role:       string(msg.Role),
		ReplyToId:  msg.ReplyToId,
		IsFallback: msg.IsFallback,
		CreatedAt:  msg.CreatedAt,
		UpdatedAt:  msg.UpdatedAt,
	}
}

func (m *ChatMapper) MessagesToEntities(models []*model.Message) []*entity.Message {
	entities := make([]*entity.Message, len(models))
	for i, msg := range models {
		entities[i] = m.MessageToEntity(msg)
	}
	return entities
}
