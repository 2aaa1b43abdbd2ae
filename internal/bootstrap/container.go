package bootstrap

import (
	"context"
	"fmt"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/controller"
	"ai-chat-be/internal/metrics"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/mailer"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/service"
	"ai-chat-be/internal/websocket"
	"ai-chat-be/pkg/cache"
	"ai-chat-be/pkg/llm/factory"
	"ai-chat-be/pkg/payment"
	"ai-chat-be/pkg/queue"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Infrastructure holds the clients shared by the API and worker processes.
type Infrastructure struct {
	UowFactory unitofwork.RepositoryFactory
	Redis      *redis.Client
	Cache      cache.Cache
	Queue      queue.Queue
	Metrics    *metrics.Metrics
	Logger     logger.ILogger
}

// NewInfrastructure connects the cache and queue. With requireQueue unset a
// broker outage leaves the process running and enqueues fail with 503.
func NewInfrastructure(ctx context.Context, db *gorm.DB, cfg *config.Config, log logger.ILogger, requireQueue bool) (*Infrastructure, error) {
	infra := &Infrastructure{
		UowFactory: unitofwork.NewRepositoryFactory(db),
		Metrics:    metrics.NewMetrics(),
		Logger:     log,
	}

	infra.Redis = newRedis(ctx, cfg.App.RedisURL, log)

	if cfg.Cache.Driver == "redis" && infra.Redis != nil {
		infra.Cache = cache.NewRedisCache(infra.Redis)
		log.Info("Bootstrap", "Using cache driver: REDIS", nil)
	} else {
		infra.Cache = cache.NewMemoryCache(cfg.Cache.TTL)
		log.Info("Bootstrap", "Using cache driver: MEMORY", map[string]interface{}{"requested": cfg.Cache.Driver})
	}

	opts := queue.Options{
		Concurrency: cfg.Queue.Concurrency,
		MaxAttempts: cfg.Queue.MaxAttempts,
		RetryDelay:  cfg.Queue.RetryDelay,
		Listener:    service.NewJobListener(infra.Metrics, log),
		Logger:      log,
	}

	switch cfg.Queue.Driver {
	case "memory":
		infra.Queue = queue.NewMemoryQueue(cfg.Queue.Subject, opts)
		log.Info("Bootstrap", "Using queue driver: MEMORY", nil)
	default:
		q, err := queue.NewJetStreamQueue(ctx, queue.JetStreamConfig{
			URL:             cfg.App.NatsURL,
			Subject:         cfg.Queue.Subject,
			Durable:         cfg.Queue.Durable,
			AckWait:         cfg.Queue.AckWait,
			ConnectAttempts: cfg.Queue.ConnectAttempts,
			ConnectStep:     cfg.Queue.ConnectStep,
			ConnectCap:      cfg.Queue.ConnectCap,
			Options:         opts,
		})
		if err != nil {
			if requireQueue {
				infra.Close()
				return nil, err
			}
			log.Error("Bootstrap", "Queue unavailable, message sending disabled", map[string]interface{}{"error": err.Error()})
			infra.Queue = queue.NewUnavailableQueue(err)
		} else {
			infra.Queue = q
			log.Info("Bootstrap", "Using queue driver: NATS JetStream", nil)
		}
	}

	return infra, nil
}

func newRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using it as address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Bootstrap", "Redis unreachable, continuing without it", map[string]interface{}{"error": err.Error()})
		rdb.Close()
		return nil
	}
	return rdb
}

func (i *Infrastructure) Close() {
	if i.Queue != nil {
		if err := i.Queue.Close(); err != nil {
			i.Logger.Warn("Bootstrap", "Queue close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if i.Redis != nil {
		i.Redis.Close()
	}
}

// NewConsumerService wires the message processor to the queue. notifier
// receives every stored reply.
func NewConsumerService(cfg *config.Config, infra *Infrastructure, notifier websocket.Notifier) (service.IConsumerService, error) {
	llmClient, err := factory.NewLLMClient(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.BaseURL, cfg.Ai.APIKey)
	if err != nil {
		return nil, fmt.Errorf("initialize LLM client: %w", err)
	}
	infra.Logger.Info("Bootstrap", "Using LLM provider", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	processor := service.NewMessageProcessor(
		infra.UowFactory,
		llmClient,
		infra.Cache,
		notifier,
		infra.Metrics,
		infra.Logger,
		service.MessageProcessorConfig{
			Provider:   cfg.Ai.LLMProvider,
			LLMTimeout: cfg.Ai.Timeout,
		},
	)
	return service.NewConsumerService(infra.Queue, processor, infra.Logger), nil
}

// WorkerNotifier publishes replies for API instances to forward.
func WorkerNotifier(infra *Infrastructure) websocket.Notifier {
	if infra.Redis == nil {
		infra.Logger.Warn("Bootstrap", "No Redis, live reply push disabled", nil)
		return websocket.NopNotifier{}
	}
	return websocket.NewRedisNotifier(infra.Redis)
}

type Container struct {
	AuthController         controller.IAuthController
	UserController         controller.IUserController
	ChatroomController     controller.IChatroomController
	SubscriptionController controller.ISubscriptionController

	WebSocketHub *websocket.Hub

	// Set only when the worker runs inside the API process.
	ConsumerService service.IConsumerService

	Infra *Infrastructure
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config, log logger.ILogger) (*Container, error) {
	infra, err := NewInfrastructure(ctx, db, cfg, log, false)
	if err != nil {
		return nil, err
	}

	var emailService mailer.IEmailService
	if cfg.SMTP.Host != "" {
		emailService = mailer.NewEmailService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Email, cfg.SMTP.Password, cfg.SMTP.SenderName, log)
	} else {
		emailService = mailer.NewNoopEmailService(log)
	}

	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	wsHub := websocket.NewHub(infra.Redis, wsLogger)
	go wsHub.Run(ctx)

	gateway := payment.NewMidtransGateway(cfg.Payment.MidtransServerKey, cfg.Payment.IsProduction)

	admissionService := service.NewAdmissionService(infra.UowFactory, cfg.Usage.BasicDailyLimit, infra.Metrics, log)
	authService := service.NewAuthService(infra.UowFactory, emailService, service.AuthServiceConfig{
		JWTSecret:  cfg.Auth.JWTSecret,
		JWTExpiry:  cfg.Auth.JWTExpiry,
		OTPTTL:     cfg.Auth.OTPTTL,
		BcryptCost: cfg.Auth.BcryptCost,
		ExposeOtp:  cfg.App.Environment == "development",
	}, log)
	userService := service.NewUserService(infra.UowFactory)
	chatroomService := service.NewChatroomService(
		infra.UowFactory,
		admissionService,
		infra.Queue,
		infra.Cache,
		cfg.Cache.TTL,
		infra.Metrics,
		log,
	)
	subscriptionService := service.NewSubscriptionService(
		infra.UowFactory,
		gateway,
		admissionService,
		service.SubscriptionServiceConfig{
			ProPrice:  cfg.Payment.ProPrice,
			FinishURL: cfg.Payment.FinishURL,
		},
		infra.Metrics,
		log,
	)

	auth := serverutils.JwtMiddleware(cfg.Auth.JWTSecret)

	c := &Container{
		AuthController:         controller.NewAuthController(authService, auth),
		UserController:         controller.NewUserController(userService, auth),
		ChatroomController:     controller.NewChatroomController(chatroomService, admissionService, auth),
		SubscriptionController: controller.NewSubscriptionController(subscriptionService, auth),
		WebSocketHub:           wsHub,
		Infra:                  infra,
	}

	if cfg.App.WorkerEmbedded {
		consumer, err := NewConsumerService(cfg, infra, wsHub)
		if err != nil {
			infra.Close()
			return nil, err
		}
		c.ConsumerService = consumer
	}

	return c, nil
}
