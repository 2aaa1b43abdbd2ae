package contract

import (
	"context"
	"time"

	"ai-chat-be/internal/entity"

	"github.com/google/uuid"
)

type UsageRepository interface {
	// UpsertDailyCount adds delta to the (userId, date) row, creating it when missing.
	UpsertDailyCount(ctx context.Context, userId uuid.UUID, date time.Time, delta int) (int, error)
	// IncrementIfBelow bumps the counter only while it is under limit.
	IncrementIfBelow(ctx context.Context, userId uuid.UUID, date time.Time, limit int) (bool, error)
	FindDaily(ctx context.Context, userId uuid.UUID, date time.Time) (*entity.UsageStats, error)
}
