package service

import (
	"context"
	"fmt"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/metrics"
	"ai-chat-be/internal/pkg/apperror"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IAdmissionService interface {
	// LoadUser fetches the caller and downgrades a lapsed PRO period.
	LoadUser(ctx context.Context, userId uuid.UUID) (*entity.User, error)
	// CheckDailyLimit rejects a BASIC user already at the cap for today.
	CheckDailyLimit(ctx context.Context, user *entity.User) error
	// Reserve counts one prompt for today on uow. BASIC users are only
	// counted while under the cap.
	Reserve(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User) error
	DailyLimit() int
}

type admissionService struct {
	uowFactory unitofwork.RepositoryFactory
	dailyLimit int
	metrics    *metrics.Metrics
	logger     logger.ILogger
	now        func() time.Time
}

func NewAdmissionService(uowFactory unitofwork.RepositoryFactory, dailyLimit int, m *metrics.Metrics, log logger.ILogger) IAdmissionService {
	return &admissionService{
		uowFactory: uowFactory,
		dailyLimit: dailyLimit,
		metrics:    m,
		logger:     log,
		now:        time.Now,
	}
}

func (s *admissionService) DailyLimit() int {
	return s.dailyLimit
}

func (s *admissionService) LoadUser(ctx context.Context, userId uuid.UUID) (*entity.User, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.Unauthorized("User not found")
	}

	if user.ProExpired(s.now()) {
		status := "expired"
		if err := uow.UserRepository().UpdateTier(ctx, user.Id, entity.TierBasic, &status, user.CurrentPeriodEnd); err != nil {
			return nil, fmt.Errorf("downgrade expired subscription: %w", err)
		}
		s.logger.Info("Admission", "PRO period lapsed, user moved to BASIC", map[string]interface{}{
			"user_id":    user.Id,
			"period_end": user.CurrentPeriodEnd,
		})
		user.Tier = entity.TierBasic
		user.SubscriptionStatus = &status
	}
	return user, nil
}

func (s *admissionService) CheckDailyLimit(ctx context.Context, user *entity.User) error {
	if user.IsPro() {
		return nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	usage, err := uow.UsageRepository().FindDaily(ctx, user.Id, s.now())
	if err != nil {
		return err
	}
	if usage != nil && usage.PromptCount >= s.dailyLimit {
		return s.reject(user)
	}
	return nil
}

func (s *admissionService) Reserve(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User) error {
	today := s.now()

	if user.IsPro() {
		if _, err := uow.UsageRepository().UpsertDailyCount(ctx, user.Id, today, 1); err != nil {
			return fmt.Errorf("count prompt: %w", err)
		}
		return nil
	}

	admitted, err := uow.UsageRepository().IncrementIfBelow(ctx, user.Id, today, s.dailyLimit)
	if err != nil {
		return fmt.Errorf("count prompt: %w", err)
	}
	if !admitted {
		return s.reject(user)
	}
	return nil
}

func (s *admissionService) reject(user *entity.User) error {
	s.metrics.RecordAdmissionRejected(string(user.Tier))
	return apperror.TooManyRequests(fmt.Sprintf("Daily limit exceeded. Basic tier limited to %d prompts per day", s.dailyLimit))
}
