package service

import (
	"context"

	"ai-chat-be/internal/metrics"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/queue"
)

type IConsumerService interface {
	// Consume registers the message processor on the queue and returns.
	Consume(ctx context.Context) error
}

type consumerService struct {
	queue     queue.Queue
	processor IMessageProcessor
	logger    logger.ILogger
}

func NewConsumerService(q queue.Queue, processor IMessageProcessor, log logger.ILogger) IConsumerService {
	return &consumerService{
		queue:     q,
		processor: processor,
		logger:    log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	if err := cs.queue.Consume(ctx, cs.processor.Process); err != nil {
		return err
	}
	cs.logger.Info("Consumer", "Message processor registered", nil)
	return nil
}

// JobListener records the single terminal outcome of each job.
type JobListener struct {
	metrics *metrics.Metrics
	logger  logger.ILogger
}

func NewJobListener(m *metrics.Metrics, log logger.ILogger) *JobListener {
	return &JobListener{metrics: m, logger: log}
}

func (l *JobListener) JobCompleted(jobID string) {
	l.metrics.RecordJobSettled("completed")
	l.logger.Info("Consumer", "Job completed", map[string]interface{}{"job_id": jobID})
}

func (l *JobListener) JobFailed(jobID string, reason string) {
	l.metrics.RecordJobSettled("failed")
	l.logger.Error("Consumer", "Job failed", map[string]interface{}{
		"job_id": jobID,
		"error":  reason,
	})
}
