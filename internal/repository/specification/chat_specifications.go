package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatroomID struct {
	ChatroomID uuid.UUID
}

func (s ByChatroomID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chatroom_id = ?", s.ChatroomID)
}

type ByRole struct {
	Role string
}

func (s ByRole) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role = ?", s.Role)
}

// ReplyTo selects the assistant reply of a user message.
type ReplyTo struct {
	MessageID uuid.UUID
}

func (s ReplyTo) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("reply_to_id = ?", s.MessageID)
}

type ExcludeFallback struct{}

func (s ExcludeFallback) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_fallback = ?", false)
}

type ExcludeID struct {
	ID uuid.UUID
}

func (s ExcludeID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id <> ?", s.ID)
}
