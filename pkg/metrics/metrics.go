package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Token 验证计数
	TokenVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_verifications_total",
			Help: "Total number of token verifications",
		},
		[]string{"kind", "result"}, // kind: session, purpose; result: ok, rejected
	)

	// 登录尝试计数
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"}, // result: ok, rejected, second_factor, throttled
	)

	// 授权决策计数
	AccessDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_access_decisions_total",
			Help: "Total number of access decisions",
		},
		[]string{"decision"}, // decision: allow, deny
	)

	// Outbox 入队计数
	OutboxEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_enqueued_total",
			Help: "Total number of items enqueued to the email outbox",
		},
	)

	// Outbox 投递结果计数
	OutboxDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_deliveries_total",
			Help: "Total number of outbox delivery outcomes",
		},
		[]string{"outcome"}, // outcome: sent, retried, failed
	)

	// Outbox drain 延迟（秒）
	OutboxDrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_drain_duration_seconds",
			Help:    "Outbox drain duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	// Outbox drain 批大小
	OutboxDrainBatch = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_drain_batch_size",
			Help:    "Number of items processed per outbox drain",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

// RecordTokenVerification 记录 token 验证结果
func RecordTokenVerification(kind, result string) {
	TokenVerifications.WithLabelValues(kind, result).Inc()
}

// RecordLoginAttempt 记录登录尝试
func RecordLoginAttempt(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}

// RecordAccessDecision 记录授权决策
func RecordAccessDecision(allowed bool) {
	if allowed {
		AccessDecisions.WithLabelValues("allow").Inc()
	} else {
		AccessDecisions.WithLabelValues("deny").Inc()
	}
}

// IncrementOutboxEnqueued 增加入队计数
func IncrementOutboxEnqueued() {
	OutboxEnqueued.Inc()
}

// IncrementOutboxDelivery 增加投递结果计数
func IncrementOutboxDelivery(outcome string) {
	OutboxDeliveries.WithLabelValues(outcome).Inc()
}

// RecordOutboxDrain 记录一次 drain
func RecordOutboxDrain(batch int, duration time.Duration) {
	OutboxDrainBatch.Observe(float64(batch))
	OutboxDrainDuration.Observe(duration.Seconds())
}
