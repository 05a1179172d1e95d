// metrics содержит prometheus-коллекторы сервиса.
// Все методы безопасны для nil-получателя: без метрик сервис работает так же.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Результаты операций с токенами.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics — набор метрик сервиса со своим реестром.
type Metrics struct {
	registry *prometheus.Registry
	tokens   *prometheus.CounterVec
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New создаёт отдельный реестр с коллекторами процесса/рантайма и метриками сервиса.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "tokens_total",
			Help:      "Token operations by kind of operation and result.",
		}, []string{"op", "result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "auth",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.tokens, m.requests, m.duration)

	return m
}

// TokenOp учитывает операцию с токеном (issue/refresh/revoke/authenticate).
func (m *Metrics) TokenOp(op, result string) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(op, result).Inc()
}

// ObserveHTTP учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveHTTP(method, route string, code int, dur time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry возвращает реестр (для тестов и дополнительных коллекторов).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
