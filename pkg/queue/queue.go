package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-chat-be/internal/pkg/logger"
)

// ErrUnavailable is returned when the broker cannot be reached.
var ErrUnavailable = errors.New("queue unavailable")

// Job is the wire payload of one chat message awaiting a reply.
type Job struct {
	ChatroomId string `json:"chatroomId"`
	MessageId  string `json:"messageId"`
	Content    string `json:"content"`
}

func (j Job) Validate() error {
	if j.ChatroomId == "" || j.MessageId == "" {
		return errors.New("job requires chatroomId and messageId")
	}
	return nil
}

func DecodeJob(data []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Delivery is one attempt at a job. Attempt starts at 1.
type Delivery struct {
	ID          string
	Job         Job
	Attempt     int
	MaxAttempts int
}

func (d Delivery) IsFinal() bool {
	return d.Attempt >= d.MaxAttempts
}

type Handler func(ctx context.Context, d Delivery) error

type Queue interface {
	// Enqueue returns once the broker has accepted the job.
	Enqueue(ctx context.Context, job Job) (string, error)
	// Consume starts the worker pool and returns. Workers stop taking jobs
	// when ctx is cancelled or Close is called; jobs already running finish.
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// Listener receives exactly one terminal event per job.
type Listener interface {
	JobCompleted(jobID string)
	JobFailed(jobID string, reason string)
}

type Options struct {
	Concurrency int
	MaxAttempts int
	RetryDelay  time.Duration
	Listener    Listener
	Logger      logger.ILogger
}

func (o Options) withDefaults() Options {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.Listener == nil {
		o.Listener = nopListener{}
	}
	if o.Logger == nil {
		o.Logger = logger.NewNopLogger()
	}
	return o
}

// retryDelay grows linearly with the attempt that just failed.
func (o Options) retryDelay(attempt int) time.Duration {
	return o.RetryDelay * time.Duration(attempt)
}

type verdict int

const (
	verdictAck verdict = iota
	verdictTerm
	verdictRetry
	// verdictRequeue hands the job back to the broker without spending the attempt.
	verdictRequeue
)

// handlerContext keeps in-flight jobs running after the consumer is told to stop.
func handlerContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// interrupted reports a handler error caused by consumer shutdown.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// resolve settles a delivery unless shutdown interrupted it.
func (o Options) resolve(ctx context.Context, d Delivery, err error) verdict {
	if err != nil && interrupted(ctx, err) {
		o.Logger.Warn("QUEUE", "Job interrupted by shutdown, requeueing", map[string]interface{}{
			"job_id":  d.ID,
			"attempt": d.Attempt,
		})
		return verdictRequeue
	}
	if o.settle(d, err) {
		return verdictRetry
	}
	if err == nil {
		return verdictAck
	}
	return verdictTerm
}

// settle reports the outcome of a delivery and whether it should run again.
func (o Options) settle(d Delivery, err error) (retry bool) {
	if err == nil {
		o.Listener.JobCompleted(d.ID)
		return false
	}
	if d.IsFinal() || IsPermanent(err) {
		o.Listener.JobFailed(d.ID, err.Error())
		return false
	}
	o.Logger.Warn("QUEUE", "Job attempt failed, retrying", map[string]interface{}{
		"job_id":  d.ID,
		"attempt": d.Attempt,
		"error":   err.Error(),
	})
	return true
}

type nopListener struct{}

func (nopListener) JobCompleted(string)      {}
func (nopListener) JobFailed(string, string) {}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
