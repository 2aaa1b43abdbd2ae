package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UsageStats struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_usage_user_date,priority:1"`
	Date        datatypes.Date `gorm:"not null;uniqueIndex:idx_usage_user_date,priority:2"`
	PromptCount int            `gorm:"not null;default:0"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
}

func (UsageStats) TableName() string {
	return "usage_stats"
}
