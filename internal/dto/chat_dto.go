package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateChatroomRequest struct {
	Title string `json:"title" validate:"required,min=1,max=100"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

type ChatroomResponse struct {
	Id           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	UserId       uuid.UUID `json:"userId"`
	MessageCount int64     `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ChatroomListResponse struct {
	Chatrooms []ChatroomResponse `json:"chatrooms"`
	Cached    bool               `json:"cached"`
}

type MessageResponse struct {
	Id         uuid.UUID  `json:"id"`
	ChatroomId uuid.UUID  `json:"chatroomId"`
	Content    string     `json:"content"`
	Role       string     `json:"role"`
	ReplyToId  *uuid.UUID `json:"replyToId,omitempty"`
	IsFallback bool       `json:"isFallback"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type ChatroomDetailResponse struct {
	ChatroomResponse
	Messages []MessageResponse `json:"messages"`
}

type SendMessageResponse struct {
	UserMessage MessageResponse `json:"userMessage"`
	JobId       string          `json:"jobId"`
}
