package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_jobs_total",
		Help: "Message jobs settled by the queue",
	}, []string{"status"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_job_duration_seconds",
		Help:    "Time spent processing one message job attempt",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	llmRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_llm_request_duration_seconds",
		Help:    "Duration of LLM reply requests",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"provider", "status"})

	fallbackReplies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_fallback_replies_total",
		Help: "Assistant replies stored with the fallback text",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_cache_lookups_total",
		Help: "Chatroom list cache lookups",
	}, []string{"result"})

	admissionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_admission_rejected_total",
		Help: "Prompts rejected by the daily limit",
	}, []string{"tier"})

	webhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_payment_webhooks_total",
		Help: "Payment notifications received",
	}, []string{"transaction_status"})
)

// Metrics records process metrics. The zero value is ready to use.
type Metrics struct{}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordJobAttempt(status string, duration time.Duration) {
	jobDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) RecordJobSettled(status string) {
	jobsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordLLMRequest(provider, status string, duration time.Duration) {
	llmRequests.WithLabelValues(provider, status).Observe(duration.Seconds())
}

func (m *Metrics) RecordFallback() {
	fallbackReplies.Inc()
}

func (m *Metrics) RecordCacheHit() {
	cacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) RecordCacheMiss() {
	cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) RecordAdmissionRejected(tier string) {
	admissionRejected.WithLabelValues(tier).Inc()
}

func (m *Metrics) RecordWebhook(transactionStatus string) {
	webhooksTotal.WithLabelValues(transactionStatus).Inc()
}

// Handler serves the default registry in Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
