package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - метрики сервера. Регистрируются в собственном реестре,
// чтобы несколько экземпляров (например, в тестах) не конфликтовали.
type Metrics struct {
	registry *prometheus.Registry

	tasksTotal          *prometheus.CounterVec
	tasksInFlight       prometheus.Gauge
	extractionDuration  prometheus.Histogram
	cacheHits           prometheus.Counter
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics создает и регистрирует метрики.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpkg_tasks_total",
			Help: "Количество задач извлечения по итоговому статусу.",
		}, []string{"status"}),
		tasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dpkg_tasks_in_flight",
			Help: "Количество выполняющихся задач извлечения.",
		}),
		extractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dpkg_extraction_duration_seconds",
			Help:    "Длительность извлечения статистики из архива.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dpkg_cache_hits_total",
			Help: "Количество задач, результат которых взят из кэша.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpkg_http_requests_total",
			Help: "Общее количество HTTP-запросов.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dpkg_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.tasksTotal,
		m.tasksInFlight,
		m.extractionDuration,
		m.cacheHits,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler отдает метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry возвращает реестр метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) taskStarted() {
	m.tasksInFlight.Inc()
}

func (m *Metrics) taskFinished(status TaskStatus, elapsed time.Duration) {
	m.extractionDuration.Observe(elapsed.Seconds())
	m.tasksInFlight.Dec()
	m.tasksTotal.WithLabelValues(string(status)).Inc()
}

// CacheHit учитывает задачу, результат которой взят из кэша.
func (m *Metrics) CacheHit() {
	m.cacheHits.Inc()
}

// middleware собирает метрики HTTP-запросов по шаблону маршрута chi.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, route, strconv.Itoa(status)}
		m.httpRequestsTotal.WithLabelValues(labels...).Inc()
		m.httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}
