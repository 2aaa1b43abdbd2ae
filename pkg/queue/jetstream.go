package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const DefaultStream = "CHAT_JOBS"

type JetStreamConfig struct {
	URL             string
	Stream          string
	Subject         string
	Durable         string
	AckWait         time.Duration
	ConnectAttempts int
	ConnectStep     time.Duration
	ConnectCap      time.Duration
	Options
}

// JetStreamQueue is a durable work queue on a NATS JetStream stream.
// Jobs are removed from the stream once acked or terminated.
type JetStreamQueue struct {
	nc   *nats.Conn
	js   jetstream.JetStream
	cfg  JetStreamConfig
	opts Options

	mu       sync.Mutex
	consume  jetstream.ConsumeContext
	work     chan jetstream.Msg
	wg       sync.WaitGroup
	stopOnce sync.Once
	closed   bool
}

// NewJetStreamQueue connects with a linear capped retry and ensures the stream exists.
func NewJetStreamQueue(ctx context.Context, cfg JetStreamConfig) (*JetStreamQueue, error) {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.ConnectAttempts < 1 {
		cfg.ConnectAttempts = 1
	}
	opts := cfg.Options.withDefaults()

	connect := func() (*nats.Conn, error) {
		return nats.Connect(cfg.URL,
			nats.Name("ai-chat-queue"),
			nats.MaxReconnects(5),
			nats.ReconnectWait(2*time.Second),
		)
	}
	nc, err := backoff.Retry(ctx, connect,
		backoff.WithBackOff(NewLinearBackOff(cfg.ConnectStep, cfg.ConnectCap)),
		backoff.WithMaxTries(uint(cfg.ConnectAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			opts.Logger.Warn("QUEUE", "NATS connect failed, retrying", map[string]interface{}{
				"error": err.Error(),
				"wait":  wait.String(),
			})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to NATS: %v", ErrUnavailable, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: create JetStream context: %v", ErrUnavailable, err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{cfg.Subject},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.WorkQueuePolicy,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: ensure stream %s: %v", ErrUnavailable, cfg.Stream, err)
	}

	opts.Logger.Info("QUEUE", "JetStream queue ready", map[string]interface{}{
		"stream":  cfg.Stream,
		"subject": cfg.Subject,
	})

	return &JetStreamQueue{nc: nc, js: js, cfg: cfg, opts: opts}, nil
}

// Enqueue publishes with the message id as dedup key, so a retried publish
// of the same job inside the duplicate window is stored once.
func (q *JetStreamQueue) Enqueue(ctx context.Context, job Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	ack, err := q.js.Publish(ctx, q.cfg.Subject, data, jetstream.WithMsgID(job.MessageId))
	if err != nil {
		return "", fmt.Errorf("%w: publish to %s: %v", ErrUnavailable, q.cfg.Subject, err)
	}
	if ack.Duplicate {
		q.opts.Logger.Debug("QUEUE", "Duplicate publish ignored by stream", map[string]interface{}{
			"job_id": job.MessageId,
		})
	}
	return job.MessageId, nil
}

func (q *JetStreamQueue) Consume(ctx context.Context, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrUnavailable
	}
	if q.consume != nil {
		return errors.New("consumer already registered")
	}

	consumer, err := q.js.CreateOrUpdateConsumer(ctx, q.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       q.cfg.Durable,
		FilterSubject: q.cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       q.cfg.AckWait,
		MaxDeliver:    q.opts.MaxAttempts,
		MaxAckPending: q.opts.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	work := make(chan jetstream.Msg)
	q.work = work
	for i := 0; i < q.opts.Concurrency; i++ {
		q.wg.Add(1)
		go q.worker(ctx, work, handler)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		select {
		case work <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	}, jetstream.PullMaxMessages(q.opts.Concurrency))
	if err != nil {
		close(work)
		q.wg.Wait()
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	q.consume = cc

	go func() {
		<-ctx.Done()
		q.stopConsuming()
	}()

	q.opts.Logger.Info("QUEUE", "Consumer started", map[string]interface{}{
		"durable":     q.cfg.Durable,
		"concurrency": q.opts.Concurrency,
	})
	return nil
}

func (q *JetStreamQueue) worker(ctx context.Context, work <-chan jetstream.Msg, handler Handler) {
	defer q.wg.Done()
	for msg := range work {
		q.handle(ctx, msg, handler)
	}
}

func (q *JetStreamQueue) handle(ctx context.Context, msg jetstream.Msg, handler Handler) {
	attempt := 1
	if meta, err := msg.Metadata(); err == nil {
		attempt = int(meta.NumDelivered)
	}

	job, err := DecodeJob(msg.Data())
	if err != nil {
		q.opts.Logger.Error("QUEUE", "Malformed job payload", map[string]interface{}{
			"subject": msg.Subject(),
			"error":   err.Error(),
		})
		_ = msg.Term()
		q.opts.Listener.JobFailed(msg.Headers().Get(jetstream.MsgIDHeader), err.Error())
		return
	}

	d := Delivery{
		ID:          job.MessageId,
		Job:         job,
		Attempt:     attempt,
		MaxAttempts: q.opts.MaxAttempts,
	}

	switch q.opts.resolve(ctx, d, handler(handlerContext(ctx), d)) {
	case verdictAck:
		_ = msg.Ack()
	case verdictTerm:
		_ = msg.Term()
	case verdictRetry:
		_ = msg.NakWithDelay(q.opts.retryDelay(attempt))
	case verdictRequeue:
		_ = msg.Nak()
	}
}

// stopConsuming is safe to call from several goroutines; every caller
// returns only after the workers have finished.
func (q *JetStreamQueue) stopConsuming() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		cc := q.consume
		work := q.work
		q.mu.Unlock()

		if cc == nil {
			return
		}
		cc.Stop()
		<-cc.Closed()
		close(work)
	})
	q.wg.Wait()
}

// Close stops the workers after their current job and drains the connection.
func (q *JetStreamQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.stopConsuming()
	return q.nc.Drain()
}
