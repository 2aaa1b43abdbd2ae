package model

import (
	"time"

	"github.com/google/uuid"
)

type Chatroom struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Chatroom) TableName() string {
	return "chatrooms"
}

// ChatroomWithCount is the row shape of the owner's chatroom listing.
type ChatroomWithCount struct {
	Chatroom
	MessageCount int64 `gorm:"column:message_count"`
}
