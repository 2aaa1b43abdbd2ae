package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "USER"
	MessageRoleAssistant MessageRole = "ASSISTANT"
)

type Message struct {
	Id         uuid.UUID
	ChatroomId uuid.UUID
	Content    string
	Role       MessageRole
	// ReplyToId links an ASSISTANT message to the USER message it answers.
	ReplyToId  *uuid.UUID
	IsFallback bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
