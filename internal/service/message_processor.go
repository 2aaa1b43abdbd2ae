package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/metrics"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/websocket"
	"ai-chat-be/pkg/cache"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/queue"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const processorModule = "MessageProcessor"

type IMessageProcessor interface {
	// Process handles one delivery of a chat job. A nil error completes the job.
	Process(ctx context.Context, d queue.Delivery) error
}

type MessageProcessorConfig struct {
	Provider   string
	LLMTimeout time.Duration
}

type messageProcessor struct {
	uowFactory unitofwork.RepositoryFactory
	llm        llm.Client
	cache      cache.Cache
	notifier   websocket.Notifier
	metrics    *metrics.Metrics
	logger     logger.ILogger
	cfg        MessageProcessorConfig
	tracer     trace.Tracer
	now        func() time.Time
}

func NewMessageProcessor(
	uowFactory unitofwork.RepositoryFactory,
	llmClient llm.Client,
	c cache.Cache,
	notifier websocket.Notifier,
	m *metrics.Metrics,
	log logger.ILogger,
	cfg MessageProcessorConfig,
) IMessageProcessor {
	if notifier == nil {
		notifier = websocket.NopNotifier{}
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 60 * time.Second
	}
	return &messageProcessor{
		uowFactory: uowFactory,
		llm:        llmClient,
		cache:      c,
		notifier:   notifier,
		metrics:    m,
		logger:     log,
		cfg:        cfg,
		tracer:     otel.Tracer("message-processor"),
		now:        time.Now,
	}
}

func (p *messageProcessor) Process(ctx context.Context, d queue.Delivery) error {
	ctx, span := p.tracer.Start(ctx, "ProcessMessage", trace.WithAttributes(
		attribute.String("job.id", d.ID),
		attribute.String("chatroom.id", d.Job.ChatroomId),
		attribute.Int("job.attempt", d.Attempt),
	))
	defer span.End()

	start := time.Now()
	err := p.process(ctx, d)

	status := "completed"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	p.metrics.RecordJobAttempt(status, time.Since(start))
	return err
}

func (p *messageProcessor) process(ctx context.Context, d queue.Delivery) error {
	chatroomId, err := uuid.Parse(d.Job.ChatroomId)
	if err != nil {
		return queue.Permanent(fmt.Errorf("invalid chatroom id %q: %w", d.Job.ChatroomId, err))
	}
	messageId, err := uuid.Parse(d.Job.MessageId)
	if err != nil {
		return queue.Permanent(fmt.Errorf("invalid message id %q: %w", d.Job.MessageId, err))
	}

	uow := p.uowFactory.NewUnitOfWork(ctx)
	messageRepo := uow.MessageRepository()

	chatroom, err := uow.ChatroomRepository().FindByID(ctx, chatroomId)
	if err != nil {
		return fmt.Errorf("load chatroom: %w", err)
	}
	if chatroom == nil {
		return queue.Permanent(fmt.Errorf("chatroom %s not found", chatroomId))
	}

	userMessage, err := messageRepo.FindOne(ctx,
		specification.ByID{ID: messageId},
		specification.ByChatroomID{ChatroomID: chatroomId},
	)
	if err != nil {
		return fmt.Errorf("load user message: %w", err)
	}
	if userMessage == nil {
		// The producer may not have committed yet.
		return fmt.Errorf("user message %s not found", messageId)
	}
	if userMessage.Role != entity.MessageRoleUser {
		return queue.Permanent(fmt.Errorf("message %s is not a user message", messageId))
	}

	existing, err := messageRepo.FindReply(ctx, messageId)
	if err != nil {
		return fmt.Errorf("check existing reply: %w", err)
	}
	if existing != nil && !existing.IsFallback {
		p.logger.Info(processorModule, "Reply already stored, skipping duplicate delivery", map[string]interface{}{
			"message_id": messageId,
			"attempt":    d.Attempt,
		})
		return nil
	}

	recent, err := messageRepo.FindRecent(ctx, chatroomId, constant.ContextWindow,
		specification.ExcludeID{ID: messageId},
		specification.ExcludeFallback{},
	)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	p.logger.Info(processorModule, "Generating reply", map[string]interface{}{
		"message_id":  messageId,
		"chatroom_id": chatroomId,
		"history":     len(recent),
		"attempt":     d.Attempt,
	})

	text, llmErr := p.generate(ctx, toHistory(recent), d.Job.Content)
	if llmErr != nil {
		return p.fail(ctx, messageRepo, chatroom, userMessage, existing, llmErr)
	}

	reply, err := p.storeReply(ctx, messageRepo, userMessage, existing, text)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}

	if err := uow.ChatroomRepository().Touch(ctx, chatroomId, reply.UpdatedAt); err != nil {
		return fmt.Errorf("touch chatroom: %w", err)
	}

	p.afterWrite(ctx, chatroom, reply)
	p.logger.Info(processorModule, "Reply stored", map[string]interface{}{
		"message_id": messageId,
		"reply_id":   reply.Id,
	})
	return nil
}

func (p *messageProcessor) generate(ctx context.Context, history []llm.Message, content string) (string, error) {
	llmCtx, cancel := context.WithTimeout(ctx, p.cfg.LLMTimeout)
	defer cancel()

	start := time.Now()
	text, err := p.llm.Reply(llmCtx, history, content)

	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
	}
	p.metrics.RecordLLMRequest(p.cfg.Provider, status, time.Since(start))
	return text, err
}

// storeReply writes the reply once per user message. A stored fallback is
// overwritten in place. It returns nil when another delivery already answered.
func (p *messageProcessor) storeReply(
	ctx context.Context,
	repo contract.MessageRepository,
	userMessage *entity.Message,
	existing *entity.Message,
	text string,
) (*entity.Message, error) {
	now := p.replyTime(userMessage)

	if existing == nil {
		reply := &entity.Message{
			Id:         uuid.New(),
			ChatroomId: userMessage.ChatroomId,
			Content:    text,
			Role:       entity.MessageRoleAssistant,
			ReplyToId:  &userMessage.Id,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		created, err := repo.CreateReply(ctx, reply)
		if err != nil {
			return nil, fmt.Errorf("save reply: %w", err)
		}
		if created {
			return reply, nil
		}

		existing, err = repo.FindReply(ctx, userMessage.Id)
		if err != nil {
			return nil, fmt.Errorf("reload reply: %w", err)
		}
		if existing == nil || !existing.IsFallback {
			return nil, nil
		}
	}

	if err := repo.UpdateContent(ctx, existing.Id, text, false); err != nil {
		return nil, fmt.Errorf("replace fallback reply: %w", err)
	}
	existing.Content = text
	existing.IsFallback = false
	existing.UpdatedAt = now
	return existing, nil
}

// fail stores the fallback reply if none exists yet and returns the cause.
func (p *messageProcessor) fail(
	ctx context.Context,
	repo contract.MessageRepository,
	chatroom *entity.Chatroom,
	userMessage *entity.Message,
	existing *entity.Message,
	cause error,
) error {
	p.logger.Warn(processorModule, "LLM reply failed", map[string]interface{}{
		"message_id": userMessage.Id,
		"error":      cause.Error(),
	})

	if existing != nil {
		return fmt.Errorf("generate reply: %w", cause)
	}

	now := p.replyTime(userMessage)
	fallback := &entity.Message{
		Id:         uuid.New(),
		ChatroomId: userMessage.ChatroomId,
		Content:    constant.FallbackReply,
		Role:       entity.MessageRoleAssistant,
		ReplyToId:  &userMessage.Id,
		IsFallback: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := repo.CreateReply(ctx, fallback)
	if err != nil {
		return errors.Join(fmt.Errorf("generate reply: %w", cause), fmt.Errorf("save fallback reply: %w", err))
	}
	if created {
		p.metrics.RecordFallback()
		p.afterWrite(ctx, chatroom, fallback)
	}
	return fmt.Errorf("generate reply: %w", cause)
}

// afterWrite drops the owner's cached listing and pushes the reply. Both are best effort.
func (p *messageProcessor) afterWrite(ctx context.Context, chatroom *entity.Chatroom, reply *entity.Message) {
	if err := p.cache.Delete(ctx, cache.ChatroomsKey(chatroom.UserId)); err != nil {
		p.logger.Warn(processorModule, "Failed to invalidate chatroom cache", map[string]interface{}{
			"user_id": chatroom.UserId,
			"error":   err.Error(),
		})
	}

	replyTo := ""
	if reply.ReplyToId != nil {
		replyTo = reply.ReplyToId.String()
	}
	event := events.MessageCreated(
		chatroom.Id.String(),
		reply.Id.String(),
		replyTo,
		reply.Content,
		reply.IsFallback,
		reply.UpdatedAt,
	)
	if err := p.notifier.Notify(ctx, chatroom.UserId, event); err != nil {
		p.logger.Warn(processorModule, "Failed to push reply event", map[string]interface{}{
			"user_id": chatroom.UserId,
			"error":   err.Error(),
		})
	}
}

// replyTime never lets a reply sort before the message it answers.
func (p *messageProcessor) replyTime(userMessage *entity.Message) time.Time {
	now := p.now()
	if now.Before(userMessage.CreatedAt) {
		return userMessage.CreatedAt
	}
	return now
}

func toHistory(messages []*entity.Message) []llm.Message {
	history := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		role := llm.RoleModel
		if m.Role == entity.MessageRoleUser {
			role = llm.RoleUser
		}
		history = append(history, llm.Message{Role: role, Text: m.Content})
	}
	return history
}
