package queue

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// LinearBackOff waits Step × attempt, never longer than Cap.
type LinearBackOff struct {
	Step    time.Duration
	Cap     time.Duration
	attempt int
}

var _ backoff.BackOff = (*LinearBackOff)(nil)

func NewLinearBackOff(step, limit time.Duration) *LinearBackOff {
	return &LinearBackOff{Step: step, Cap: limit}
}

func (b *LinearBackOff) NextBackOff() time.Duration {
	b.attempt++
	d := b.Step * time.Duration(b.attempt)
	if b.Cap > 0 && d > b.Cap {
		return b.Cap
	}
	return d
}

func (b *LinearBackOff) Reset() {
	b.attempt = 0
}
