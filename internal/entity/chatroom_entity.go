package entity

import (
	"time"

	"github.com/google/uuid"
)

type Chatroom struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Populated by list queries only.
	MessageCount int64
}
