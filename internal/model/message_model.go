package model

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	Id         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatroomId uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_chatroom_created,priority:1"`
	Content    string     `gorm:"type:text;not null"`
	Role       string     `gorm:"type:varchar(10);not null"`
	ReplyToId  *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	IsFallback bool       `gorm:"default:false"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index:idx_messages_chatroom_created,priority:2"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime"`
}

func (Message) TableName() string {
	return "messages"
}
