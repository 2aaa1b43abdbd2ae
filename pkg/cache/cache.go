package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cache is a string key-value store with per-entry expiry.
type Cache interface {
	// Get reports found=false on a miss; err is reserved for backend failures.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const chatroomsKeyPrefix = "chatrooms:"

// ChatroomsKey is the key of a user's chatroom listing.
func ChatroomsKey(userId uuid.UUID) string {
	return fmt.Sprintf("%s%s", chatroomsKeyPrefix, userId)
}
