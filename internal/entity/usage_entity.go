package entity

import (
	"time"

	"github.com/google/uuid"
)

type UsageStats struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	Date        time.Time
	PromptCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UsageDay truncates t to its UTC calendar date.
func UsageDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
