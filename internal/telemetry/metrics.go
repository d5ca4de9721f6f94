package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики диспетчера. Регистрируются в default-реестре,
// отдаются через promhttp в main.
var (
	// DispatchTotal — исходы отправок по категориям:
	// sent, retryable, terminal.
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_dispatch_total",
		Help: "Dispatch attempt outcomes.",
	}, []string{"outcome"})

	// ClaimConflicts — проигранные гонки за claim (не ошибки).
	ClaimConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_claim_conflicts_total",
		Help: "Claims lost to a concurrent dispatcher.",
	})

	// RecoveredTotal — сообщения, возвращённые Recovery Sweeper'ом
	// из подвисшего PROCESSING в PENDING.
	RecoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_recovered_total",
		Help: "Stale in-flight messages returned to pending.",
	})

	// TickDuration — длительность одного цикла диспетчера.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "courier_tick_duration_seconds",
		Help:    "Dispatch cycle duration.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// QueueDepth — количество сообщений по статусам.
	// Обновляется janitor-циклом.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "courier_messages",
		Help: "Messages per status.",
	}, []string{"status"})
)
