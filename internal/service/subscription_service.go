package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/metrics"
	"ai-chat-be/internal/pkg/apperror"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/payment"

	"github.com/google/uuid"
)

const (
	subscriptionActive   = "active"
	subscriptionCanceled = "canceled"
)

type ISubscriptionService interface {
	SubscribePro(ctx context.Context, userId uuid.UUID) (*dto.CheckoutResponse, error)
	GetStatus(ctx context.Context, userId uuid.UUID) (*dto.SubscriptionStatusResponse, error)
	HandleNotification(ctx context.Context, n *dto.MidtransNotification) error
}

type SubscriptionServiceConfig struct {
	ProPrice  int64
	FinishURL string
}

type subscriptionService struct {
	uowFactory unitofwork.RepositoryFactory
	gateway    payment.Gateway
	admission  IAdmissionService
	cfg        SubscriptionServiceConfig
	metrics    *metrics.Metrics
	logger     logger.ILogger
	now        func() time.Time
}

func NewSubscriptionService(
	uowFactory unitofwork.RepositoryFactory,
	gateway payment.Gateway,
	admission IAdmissionService,
	cfg SubscriptionServiceConfig,
	m *metrics.Metrics,
	log logger.ILogger,
) ISubscriptionService {
	return &subscriptionService{
		uowFactory: uowFactory,
		gateway:    gateway,
		admission:  admission,
		cfg:        cfg,
		metrics:    m,
		logger:     log,
		now:        time.Now,
	}
}

func newOrderID() string {
	return "PRO-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *subscriptionService) SubscribePro(ctx context.Context, userId uuid.UUID) (*dto.CheckoutResponse, error) {
	user, err := s.admission.LoadUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user.IsPro() {
		return nil, apperror.BadRequest("User already has an active PRO subscription")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	now := s.now()
	order := &entity.SubscriptionOrder{
		Id:        uuid.New(),
		OrderId:   newOrderID(),
		UserId:    user.Id,
		Amount:    s.cfg.ProPrice,
		Status:    entity.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uow.SubscriptionRepository().CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	req := payment.CheckoutRequest{
		OrderID:   order.OrderId,
		Amount:    order.Amount,
		ItemName:  constant.ProItemName,
		UserID:    user.Id.String(),
		Phone:     user.MobileNumber,
		FinishURL: s.cfg.FinishURL,
	}
	if user.Name != nil {
		req.Name = *user.Name
	}
	if user.Email != nil {
		req.Email = *user.Email
	}

	checkout, err := s.gateway.CreateCheckout(ctx, req)
	if err != nil {
		order.Status = entity.OrderStatusFailed
		order.UpdatedAt = s.now()
		if updErr := uow.SubscriptionRepository().UpdateOrder(ctx, order); updErr != nil {
			s.logger.Error("Subscription", "Failed to mark order failed", map[string]interface{}{
				"order_id": order.OrderId,
				"error":    updErr.Error(),
			})
		}
		return nil, apperror.Wrap(http.StatusBadGateway, "Failed to create checkout session", err)
	}

	order.SnapToken = checkout.Token
	order.RedirectURL = checkout.RedirectURL
	order.UpdatedAt = s.now()
	if err := uow.SubscriptionRepository().UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription", "Checkout session created", map[string]interface{}{
		"user_id":  user.Id,
		"order_id": order.OrderId,
	})

	return &dto.CheckoutResponse{
		OrderId:     order.OrderId,
		SnapToken:   checkout.Token,
		CheckoutURL: checkout.RedirectURL,
	}, nil
}

func (s *subscriptionService) GetStatus(ctx context.Context, userId uuid.UUID) (*dto.SubscriptionStatusResponse, error) {
	user, err := s.admission.LoadUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	if user.IsPro() {
		res, err := s.proStatus(ctx, uow, user)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}

	limit := s.admission.DailyLimit()
	used := 0
	usage, err := uow.UsageRepository().FindDaily(ctx, user.Id, s.now())
	if err != nil {
		return nil, err
	}
	if usage != nil {
		used = usage.PromptCount
	}
	remaining := max(0, limit-used)

	return &dto.SubscriptionStatusResponse{
		Tier:           string(entity.TierBasic),
		DailyLimit:     &limit,
		UsedToday:      &used,
		RemainingToday: &remaining,
	}, nil
}

// proStatus confirms the paying order with the provider. It returns nil after
// resetting a user whose transaction the provider no longer knows.
func (s *subscriptionService) proStatus(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User) (*dto.SubscriptionStatusResponse, error) {
	status := subscriptionActive
	if user.SubscriptionStatus != nil {
		status = *user.SubscriptionStatus
	}

	order, err := s.latestPaidOrder(ctx, uow, user.Id)
	if err != nil {
		return nil, err
	}
	if order != nil {
		txStatus, err := s.gateway.TransactionStatus(ctx, order.OrderId)
		switch {
		case errors.Is(err, payment.ErrTransactionNotFound):
			s.logger.Warn("Subscription", "Paid order unknown to provider, resetting to BASIC", map[string]interface{}{
				"user_id":  user.Id,
				"order_id": order.OrderId,
			})
			if err := uow.UserRepository().UpdateTier(ctx, user.Id, entity.TierBasic, nil, nil); err != nil {
				return nil, err
			}
			return nil, nil
		case err != nil:
			s.logger.Warn("Subscription", "Provider status check failed, using stored status", map[string]interface{}{
				"order_id": order.OrderId,
				"error":    err.Error(),
			})
		default:
			status = txStatus
		}
	}

	cancelAtPeriodEnd := false
	return &dto.SubscriptionStatusResponse{
		Tier:              string(entity.TierPro),
		Status:            status,
		CurrentPeriodEnd:  user.CurrentPeriodEnd,
		CancelAtPeriodEnd: &cancelAtPeriodEnd,
	}, nil
}

func (s *subscriptionService) latestPaidOrder(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (*entity.SubscriptionOrder, error) {
	return uow.SubscriptionRepository().FindOneOrder(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.Filter("status", string(entity.OrderStatusPaid)),
		specification.OrderBy{Field: "paid_at", Desc: true},
	)
}

// HandleNotification applies a Midtrans payment notification. Notifications
// that cannot be matched to an order are logged and acknowledged.
func (s *subscriptionService) HandleNotification(ctx context.Context, n *dto.MidtransNotification) error {
	s.metrics.RecordWebhook(n.TransactionStatus)

	if !s.gateway.VerifySignature(n.OrderId, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		s.logger.Warn("Webhook", "Invalid notification signature", map[string]interface{}{
			"order_id": n.OrderId,
		})
		return apperror.BadRequest("Invalid signature")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	order, err := uow.SubscriptionRepository().FindOneOrder(ctx, specification.ByOrderID{OrderID: n.OrderId})
	if err != nil {
		return err
	}
	if order == nil {
		s.logger.Warn("Webhook", "Notification for unknown order", map[string]interface{}{
			"order_id":      n.OrderId,
			"custom_field1": n.CustomField1,
		})
		return nil
	}
	if n.CustomField1 != "" && n.CustomField1 != order.UserId.String() {
		s.logger.Warn("Webhook", "Notification user does not match order, using order", map[string]interface{}{
			"order_id":      n.OrderId,
			"custom_field1": n.CustomField1,
		})
	}

	switch n.TransactionStatus {
	case "capture":
		if n.FraudStatus == "challenge" {
			s.logger.Info("Webhook", "Payment challenged, waiting for review", map[string]interface{}{"order_id": n.OrderId})
			return nil
		}
		return s.markPaid(ctx, uow, order)
	case "settlement":
		return s.markPaid(ctx, uow, order)
	case "deny", "cancel", "expire", "failure":
		return s.markFailed(ctx, uow, order, n.TransactionStatus)
	case "pending":
		return nil
	default:
		s.logger.Info("Webhook", "Unhandled transaction status", map[string]interface{}{
			"order_id": n.OrderId,
			"status":   n.TransactionStatus,
		})
		return nil
	}
}

func (s *subscriptionService) markPaid(ctx context.Context, uow unitofwork.UnitOfWork, order *entity.SubscriptionOrder) error {
	if order.Status == entity.OrderStatusPaid {
		return nil
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: order.UserId})
	if err != nil {
		return err
	}
	if user == nil {
		s.logger.Error("Webhook", "Order user no longer exists", map[string]interface{}{
			"order_id": order.OrderId,
			"user_id":  order.UserId,
		})
		return nil
	}

	now := s.now()
	// Renewals extend an unexpired period.
	start := now
	if user.IsPro() && user.CurrentPeriodEnd != nil && user.CurrentPeriodEnd.After(now) {
		start = *user.CurrentPeriodEnd
	}
	periodEnd := start.AddDate(0, constant.ProPeriodMonths, 0)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	order.Status = entity.OrderStatusPaid
	order.PaidAt = &now
	order.PeriodEnd = &periodEnd
	order.UpdatedAt = now
	if err := uow.SubscriptionRepository().UpdateOrder(ctx, order); err != nil {
		return err
	}

	status := subscriptionActive
	if err := uow.UserRepository().UpdateTier(ctx, user.Id, entity.TierPro, &status, &periodEnd); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	s.logger.Info("Webhook", "User upgraded to PRO", map[string]interface{}{
		"user_id":    user.Id,
		"order_id":   order.OrderId,
		"period_end": periodEnd,
	})
	return nil
}

func (s *subscriptionService) markFailed(ctx context.Context, uow unitofwork.UnitOfWork, order *entity.SubscriptionOrder, txStatus string) error {
	if order.Status == entity.OrderStatusFailed {
		return nil
	}
	wasPaid := order.Status == entity.OrderStatusPaid

	// Only the order that granted the current period may revoke it.
	revoke := false
	if wasPaid {
		latest, err := s.latestPaidOrder(ctx, uow, order.UserId)
		if err != nil {
			return err
		}
		revoke = latest != nil && latest.Id == order.Id
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	order.Status = entity.OrderStatusFailed
	order.UpdatedAt = s.now()
	if err := uow.SubscriptionRepository().UpdateOrder(ctx, order); err != nil {
		return err
	}

	if revoke {
		status := subscriptionCanceled
		if err := uow.UserRepository().UpdateTier(ctx, order.UserId, entity.TierBasic, &status, nil); err != nil {
			return err
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit order %s: %w", order.OrderId, err)
	}

	s.logger.Info("Webhook", "Order closed without payment", map[string]interface{}{
		"order_id": order.OrderId,
		"status":   txStatus,
		"revoked":  revoke,
	})
	return nil
}
