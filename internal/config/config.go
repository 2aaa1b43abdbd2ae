package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Usage     UsageConfig
	Queue     QueueConfig
	Cache     CacheConfig
	Ai        AIConfig
	Payment   PaymentConfig
	SMTP      SMTPConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string        `env:"APP_PORT" envDefault:"3000"`
	Environment        string        `env:"GO_ENV" envDefault:"development"`
	LogFilePath        string        `env:"LOG_FILE_PATH" envDefault:"logs/app.log"`
	CorsAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173"`
	NatsURL            string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	RedisURL           string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	WorkerEmbedded     bool          `env:"WORKER_EMBEDDED" envDefault:"false"`
	WorkerMetricsPort  string        `env:"WORKER_METRICS_PORT" envDefault:"9091"`
	IPRateLimit        int           `env:"IP_RATE_LIMIT" envDefault:"100"`
	IPRateWindow       time.Duration `env:"IP_RATE_WINDOW" envDefault:"15m"`
}

type DatabaseConfig struct {
	Connection string `env:"DB_CONNECTION_STRING"`
	LogQueries bool   `env:"DB_LOG_QUERIES" envDefault:"false"`
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	JWTExpiry  time.Duration `env:"JWT_EXPIRES_IN" envDefault:"168h"`
	OTPTTL     time.Duration `env:"OTP_TTL" envDefault:"10m"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`
}

type UsageConfig struct {
	BasicDailyLimit int `env:"BASIC_DAILY_LIMIT" envDefault:"5"`
}

type QueueConfig struct {
	Driver          string        `env:"QUEUE_DRIVER" envDefault:"nats"` // "nats" or "memory"
	Subject         string        `env:"QUEUE_SUBJECT" envDefault:"jobs.chat-messages"`
	Durable         string        `env:"QUEUE_DURABLE" envDefault:"message-processor"`
	Concurrency     int           `env:"QUEUE_CONCURRENCY" envDefault:"1"`
	MaxAttempts     int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
	RetryDelay      time.Duration `env:"QUEUE_RETRY_DELAY" envDefault:"2s"`
	AckWait         time.Duration `env:"QUEUE_ACK_WAIT" envDefault:"90s"`
	ConnectAttempts int           `env:"QUEUE_CONNECT_ATTEMPTS" envDefault:"3"`
	ConnectStep     time.Duration `env:"QUEUE_CONNECT_STEP" envDefault:"100ms"`
	ConnectCap      time.Duration `env:"QUEUE_CONNECT_CAP" envDefault:"3s"`
}

type CacheConfig struct {
	Driver string        `env:"CACHE_DRIVER" envDefault:"redis"` // "redis" or "memory"
	TTL    time.Duration `env:"CACHE_TTL" envDefault:"300s"`
}

type AIConfig struct {
	LLMProvider string        `env:"LLM_PROVIDER" envDefault:"gemini"` // "gemini", "ollama" or "openai"
	LLMModel    string        `env:"LLM_MODEL" envDefault:"gemini-1.5-flash"`
	BaseURL     string        `env:"LLM_BASE_URL"`
	APIKey      string        `env:"LLM_API_KEY"`
	Timeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
}

type PaymentConfig struct {
	MidtransServerKey string `env:"MIDTRANS_SERVER_KEY"`
	IsProduction      bool   `env:"MIDTRANS_IS_PRODUCTION" envDefault:"false"`
	ProPrice          int64  `env:"PRO_PRICE" envDefault:"99000"`
	FinishURL         string `env:"PAYMENT_FINISH_URL" envDefault:"http://localhost:5173/subscription/success"`
}

type SMTPConfig struct {
	Host       string `env:"SMTP_HOST"`
	Port       int    `env:"SMTP_PORT" envDefault:"587"`
	Email      string `env:"SMTP_EMAIL"`
	Password   string `env:"SMTP_PASSWORD"`
	SenderName string `env:"SMTP_SENDER_NAME" envDefault:"Gemini Chat"`
}

type TelemetryConfig struct {
	Enabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	Service  string `env:"OTEL_SERVICE_NAME" envDefault:"ai-chat-backend"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the processes cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Connection == "" {
		errs = append(errs, errors.New("DB_CONNECTION_STRING is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Usage.BasicDailyLimit < 0 {
		errs = append(errs, errors.New("BASIC_DAILY_LIMIT must not be negative"))
	}
	if c.Queue.Concurrency < 1 {
		errs = append(errs, errors.New("QUEUE_CONCURRENCY must be at least 1"))
	}
	if c.Queue.MaxAttempts < 1 {
		errs = append(errs, errors.New("QUEUE_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Queue.AckWait <= c.Ai.Timeout {
		errs = append(errs, errors.New("QUEUE_ACK_WAIT must exceed LLM_TIMEOUT"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
