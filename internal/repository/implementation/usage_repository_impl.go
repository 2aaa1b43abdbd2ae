package implementation

import (
	"context"
	"errors"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/mapper"
	"ai-chat-be/internal/model"
	"ai-chat-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubscriptionMapper
}

func NewUsageRepository(db *gorm.DB) contract.UsageRepository {
	return &UsageRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubscriptionMapper(),
	}
}

func (r *UsageRepositoryImpl) UpsertDailyCount(ctx context.Context, userId uuid.UUID, date time.Time, delta int) (int, error) {
	row := &model.UsageStats{
		Id:          uuid.New(),
		UserId:      userId,
		Date:        datatypes.Date(entity.UsageDay(date)),
		PromptCount: delta,
	}

	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"prompt_count": gorm.Expr("usage_stats.prompt_count + ?", delta),
					"updated_at":   time.Now(),
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "prompt_count"}}},
		).
		Create(row).Error
	if err != nil {
		return 0, err
	}
	return row.PromptCount, nil
}

// incrementIfBelowSQL upserts today's row and bumps it only while the stored
// count is under the limit. No row comes back when the cap is reached.
const incrementIfBelowSQL = `
INSERT INTO usage_stats (id, user_id, date, prompt_count, created_at, updated_at)
VALUES (gen_random_uuid(), ?, ?, 1, NOW(), NOW())
ON CONFLICT (user_id, date) DO UPDATE
SET prompt_count = usage_stats.prompt_count + 1, updated_at = NOW()
WHERE usage_stats.prompt_count < ?
RETURNING prompt_count`

func (r *UsageRepositoryImpl) IncrementIfBelow(ctx context.Context, userId uuid.UUID, date time.Time, limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	var counts []int
	day := datatypes.Date(entity.UsageDay(date))
	if err := r.db.WithContext(ctx).Raw(incrementIfBelowSQL, userId, day, limit).Scan(&counts).Error; err != nil {
		return false, err
	}
	return len(counts) > 0, nil
}

func (r *UsageRepositoryImpl) FindDaily(ctx context.Context, userId uuid.UUID, date time.Time) (*entity.UsageStats, error) {
	var m model.UsageStats
	day := datatypes.Date(entity.UsageDay(date))
	err := r.db.WithContext(ctx).Where("user_id = ? AND date = ?", userId, day).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.UsageToEntity(&m), nil
}
