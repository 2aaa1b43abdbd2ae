package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// MemoryQueue runs jobs in-process on a watermill gochannel. Jobs do not
// survive a restart; retries happen inside the worker.
type MemoryQueue struct {
	pubSub *gochannel.GoChannel
	topic  string
	opts   Options

	mu       sync.Mutex
	started  bool
	closed   bool
	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

func NewMemoryQueue(topic string, opts Options) *MemoryQueue {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 1024,
			// Keep jobs published before the consumer subscribes.
			Persistent: true,
		},
		watermill.NopLogger{},
	)
	return &MemoryQueue{
		pubSub: pubSub,
		topic:  topic,
		opts:   opts.withDefaults(),
		stop:   make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}

	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return "", ErrUnavailable
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	msg := message.NewMessage(job.MessageId, payload)
	msg.SetContext(ctx)
	if err := q.pubSub.Publish(q.topic, msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return job.MessageId, nil
}

func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrUnavailable
	}
	if q.started {
		return errors.New("consumer already registered")
	}

	messages, err := q.pubSub.Subscribe(ctx, q.topic)
	if err != nil {
		return err
	}
	q.started = true

	work := make(chan Job)
	for i := 0; i < q.opts.Concurrency; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for job := range work {
				q.run(ctx, job, handler)
			}
		}()
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(work)
		for msg := range messages {
			job, err := DecodeJob(msg.Payload)
			// Acked up front: gochannel holds the next message until this one is settled.
			msg.Ack()
			if err != nil {
				q.opts.Logger.Error("QUEUE", "Malformed job payload", map[string]interface{}{
					"error": err.Error(),
				})
				q.opts.Listener.JobFailed(msg.UUID, err.Error())
				continue
			}
			select {
			case work <- job:
			case <-ctx.Done():
				return
			case <-q.stop:
				return
			}
		}
	}()

	return nil
}

func (q *MemoryQueue) run(ctx context.Context, job Job, handler Handler) {
	for attempt := 1; ; attempt++ {
		d := Delivery{
			ID:          job.MessageId,
			Job:         job,
			Attempt:     attempt,
			MaxAttempts: q.opts.MaxAttempts,
		}
		// A requeued job has no broker to go back to and ends with the process.
		if q.opts.resolve(ctx, d, handler(handlerContext(ctx), d)) != verdictRetry {
			return
		}

		timer := time.NewTimer(q.opts.retryDelay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		case <-q.stop:
			timer.Stop()
			return
		}
	}
}

// Close stops accepting jobs and waits for in-flight handlers to return.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.stopOnce.Do(func() { close(q.stop) })
	err := q.pubSub.Close()
	q.wg.Wait()
	return err
}
