package queue

import (
	"context"
	"errors"
	"fmt"
)

// UnavailableQueue stands in for a broker that could not be reached at
// startup. Every call fails with ErrUnavailable.
type UnavailableQueue struct {
	cause error
}

func NewUnavailableQueue(cause error) *UnavailableQueue {
	return &UnavailableQueue{cause: cause}
}

func (q *UnavailableQueue) Enqueue(ctx context.Context, job Job) (string, error) {
	return "", q.err()
}

func (q *UnavailableQueue) Consume(ctx context.Context, handler Handler) error {
	return q.err()
}

func (q *UnavailableQueue) Close() error {
	return nil
}

func (q *UnavailableQueue) err() error {
	if q.cause == nil {
		return ErrUnavailable
	}
	if errors.Is(q.cause, ErrUnavailable) {
		return q.cause
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, q.cause)
}
