package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/metrics"
	"ai-chat-be/internal/pkg/apperror"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/cache"
	"ai-chat-be/pkg/queue"

	"github.com/google/uuid"
)

type IChatroomService interface {
	CreateChatroom(ctx context.Context, userId uuid.UUID, req *dto.CreateChatroomRequest) (*dto.ChatroomResponse, error)
	GetChatrooms(ctx context.Context, userId uuid.UUID) (*dto.ChatroomListResponse, error)
	GetChatroom(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ChatroomDetailResponse, error)
	SendMessage(ctx context.Context, user *entity.User, chatroomId uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
}

type chatroomService struct {
	uowFactory unitofwork.RepositoryFactory
	admission  IAdmissionService
	queue      queue.Queue
	cache      cache.Cache
	cacheTTL   time.Duration
	metrics    *metrics.Metrics
	logger     logger.ILogger
}

func NewChatroomService(
	uowFactory unitofwork.RepositoryFactory,
	admission IAdmissionService,
	q queue.Queue,
	c cache.Cache,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	log logger.ILogger,
) IChatroomService {
	return &chatroomService{
		uowFactory: uowFactory,
		admission:  admission,
		queue:      q,
		cache:      c,
		cacheTTL:   cacheTTL,
		metrics:    m,
		logger:     log,
	}
}

func (s *chatroomService) CreateChatroom(ctx context.Context, userId uuid.UUID, req *dto.CreateChatroomRequest) (*dto.ChatroomResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	now := time.Now()
	chatroom := &entity.Chatroom{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uow.ChatroomRepository().Create(ctx, chatroom); err != nil {
		return nil, err
	}

	// A stale listing must not outlive the write.
	if err := s.cache.Delete(ctx, cache.ChatroomsKey(userId)); err != nil {
		return nil, apperror.Internal(err)
	}

	res := toChatroomResponse(chatroom)
	return &res, nil
}

func (s *chatroomService) GetChatrooms(ctx context.Context, userId uuid.UUID) (*dto.ChatroomListResponse, error) {
	key := cache.ChatroomsKey(userId)

	if chatrooms, ok := s.cachedChatrooms(ctx, key); ok {
		s.metrics.RecordCacheHit()
		return &dto.ChatroomListResponse{Chatrooms: chatrooms, Cached: true}, nil
	}
	s.metrics.RecordCacheMiss()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	found, err := uow.ChatroomRepository().FindAllByUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	chatrooms := make([]dto.ChatroomResponse, 0, len(found))
	for _, c := range found {
		chatrooms = append(chatrooms, toChatroomResponse(c))
	}

	if payload, err := json.Marshal(chatrooms); err == nil {
		if err := s.cache.SetWithTTL(ctx, key, string(payload), s.cacheTTL); err != nil {
			s.logger.Warn("ChatroomService", "Failed to cache chatroom list", map[string]interface{}{
				"user_id": userId,
				"error":   err.Error(),
			})
		}
	}

	return &dto.ChatroomListResponse{Chatrooms: chatrooms, Cached: false}, nil
}

// cachedChatrooms treats backend errors and undecodable entries as misses.
func (s *chatroomService) cachedChatrooms(ctx context.Context, key string) ([]dto.ChatroomResponse, bool) {
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("ChatroomService", "Cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, false
	}
	if !found {
		return nil, false
	}

	var chatrooms []dto.ChatroomResponse
	if err := json.Unmarshal([]byte(raw), &chatrooms); err != nil {
		s.logger.Warn("ChatroomService", "Discarding undecodable cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, false
	}
	return chatrooms, true
}

func (s *chatroomService) GetChatroom(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ChatroomDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chatroom, err := uow.ChatroomRepository().FindOwnedBy(ctx, id, userId)
	if err != nil {
		return nil, err
	}
	if chatroom == nil {
		return nil, apperror.NotFound("Chatroom not found")
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByChatroomID{ChatroomID: id},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.ChatroomDetailResponse{
		ChatroomResponse: toChatroomResponse(chatroom),
		Messages:         make([]dto.MessageResponse, 0, len(messages)),
	}
	res.MessageCount = int64(len(messages))
	for _, m := range messages {
		res.Messages = append(res.Messages, toMessageResponse(m))
	}
	return res, nil
}

// SendMessage stores the prompt, counts it and enqueues the reply job in one
// transaction. If the job cannot be enqueued nothing is kept.
func (s *chatroomService) SendMessage(ctx context.Context, user *entity.User, chatroomId uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chatroom, err := uow.ChatroomRepository().FindOwnedBy(ctx, chatroomId, user.Id)
	if err != nil {
		return nil, err
	}
	if chatroom == nil {
		return nil, apperror.NotFound("Chatroom not found")
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := s.admission.Reserve(ctx, uow, user); err != nil {
		return nil, err
	}

	now := time.Now()
	message := &entity.Message{
		Id:         uuid.New(),
		ChatroomId: chatroom.Id,
		Content:    req.Content,
		Role:       entity.MessageRoleUser,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uow.MessageRepository().Create(ctx, message); err != nil {
		return nil, err
	}

	jobId, err := s.queue.Enqueue(ctx, queue.Job{
		ChatroomId: chatroom.Id.String(),
		MessageId:  message.Id.String(),
		Content:    message.Content,
	})
	if err != nil {
		s.logger.Error("ChatroomService", "Failed to enqueue message job", map[string]interface{}{
			"chatroom_id": chatroom.Id,
			"message_id":  message.Id,
			"error":       err.Error(),
		})
		if errors.Is(err, queue.ErrUnavailable) {
			return nil, apperror.Unavailable("Message queue unavailable", err)
		}
		return nil, apperror.Internal(err)
	}

	if err := uow.Commit(); err != nil {
		// The job is already queued; the processor gives up once the message never appears.
		s.logger.Error("ChatroomService", "Commit failed after enqueue", map[string]interface{}{
			"job_id": jobId,
			"error":  err.Error(),
		})
		return nil, err
	}

	if err := s.cache.Delete(ctx, cache.ChatroomsKey(user.Id)); err != nil {
		s.logger.Warn("ChatroomService", "Failed to invalidate chatroom cache", map[string]interface{}{
			"user_id": user.Id,
			"error":   err.Error(),
		})
	}

	return &dto.SendMessageResponse{
		UserMessage: toMessageResponse(message),
		JobId:       jobId,
	}, nil
}

func toChatroomResponse(c *entity.Chatroom) dto.ChatroomResponse {
	return dto.ChatroomResponse{
		Id:           c.Id,
		Title:        c.Title,
		UserId:       c.UserId,
		MessageCount: c.MessageCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toMessageResponse(m *entity.Message) dto.MessageResponse {
	return dto.MessageResponse{
		Id:         m.Id,
		ChatroomId: m.ChatroomId,
		Content:    m.Content,
		Role:       string(m.Role),
		ReplyToId:  m.ReplyToId,
		IsFallback: m.IsFallback,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
