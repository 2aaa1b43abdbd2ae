package contract

import (
	"context"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	UpdateTier(ctx context.Context, id uuid.UUID, tier entity.SubscriptionTier, status *string, periodEnd *time.Time) error

	// Otp
	CreateOtp(ctx context.Context, otp *entity.Otp) error
	FindLatestOtp(ctx context.Context, specs ...specification.Specification) (*entity.Otp, error)
	// MarkOtpVerified reports false when the code was already used.
	MarkOtpVerified(ctx context.Context, id uuid.UUID) (bool, error)
}
