package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EscrowMetrics содержит метрики жизненного цикла заказа и эскроу
type EscrowMetrics struct {
	// Переходы статусов заказа
	TransitionsTotal *prometheus.CounterVec
	// Ошибки операций по кодам apperror
	OperationErrorsTotal *prometheus.CounterVec

	// Суммы в минимальных единицах по исходу хранения
	EscrowAmountTotal *prometheus.CounterVec
	PlatformFeeTotal  prometheus.Counter

	GatewayDuration *prometheus.HistogramVec
	GatewayErrors   *prometheus.CounterVec

	AuditAppendFailures prometheus.Counter

	RelayPublishedTotal *prometheus.CounterVec
	RelayPending        prometheus.Gauge
}

// New регистрирует метрики в reg. Для тестов удобно передавать prometheus.NewRegistry().
func New(reg prometheus.Registerer) *EscrowMetrics {
	f := promauto.With(reg)
	return &EscrowMetrics{
		TransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_order_transitions_total",
				Help: "Количество переходов статуса заказа",
			},
			[]string{"from", "to"},
		),
		OperationErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_operation_errors_total",
				Help: "Ошибки операций жизненного цикла по коду",
			},
			[]string{"operation", "code"},
		),
		EscrowAmountTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_amount_minor_total",
				Help: "Суммы, прошедшие через эскроу, в минимальных единицах",
			},
			[]string{"outcome"},
		),
		PlatformFeeTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "escrow_platform_fee_minor_total",
				Help: "Удержанная комиссия площадки в минимальных единицах",
			},
		),
		GatewayDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "escrow_gateway_duration_seconds",
				Help:    "Время вызова платежного шлюза",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"call"},
		),
		GatewayErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_gateway_errors_total",
				Help: "Неуспешные вызовы платежного шлюза",
			},
			[]string{"call"},
		),
		AuditAppendFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "escrow_audit_append_failures_total",
				Help: "Записи аудита, которые не удалось сохранить",
			},
		),
		RelayPublishedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_relay_published_total",
				Help: "Опубликованные события заказов по приемнику и результату",
			},
			[]string{"sink", "result"},
		),
		RelayPending: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "escrow_relay_claimed_batch",
				Help: "Размер последней выбранной пачки событий outbox",
			},
		),
	}
}

// Все методы ниже допускают nil-получатель, чтобы метрики можно было не подключать.

func (m *EscrowMetrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *EscrowMetrics) OperationError(operation, code string) {
	if m == nil {
		return
	}
	m.OperationErrorsTotal.WithLabelValues(operation, code).Inc()
}

func (m *EscrowMetrics) EscrowAmount(outcome string, amount int64, fee int64) {
	if m == nil {
		return
	}
	m.EscrowAmountTotal.WithLabelValues(outcome).Add(float64(amount))
	if fee > 0 {
		m.PlatformFeeTotal.Add(float64(fee))
	}
}

func (m *EscrowMetrics) ObserveGateway(call string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.GatewayDuration.WithLabelValues(call).Observe(time.Since(started).Seconds())
	if err != nil {
		m.GatewayErrors.WithLabelValues(call).Inc()
	}
}

func (m *EscrowMetrics) AuditFailure() {
	if m == nil {
		return
	}
	m.AuditAppendFailures.Inc()
}

func (m *EscrowMetrics) RelayPublished(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RelayPublishedTotal.WithLabelValues(sink, result).Inc()
}

func (m *EscrowMetrics) RelayClaimed(n int) {
	if m == nil {
		return
	}
	m.RelayPending.Set(float64(n))
}
