// Package metrics exposes the service counters in the Prometheus text format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder interface {
	RequestServed(method, route string, status int, duration time.Duration)
	EventRecorded(eventType string)
	GameClosed(status string)
	CareerUpdate(succeeded bool)
}

type Prometheus struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	events          *prometheus.CounterVec
	gamesClosed     *prometheus.CounterVec
	careerUpdates   *prometheus.CounterVec
}

func NewPrometheus(namespace string) *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_events_total",
			Help:      "Events appended to game ledgers, by type.",
		}, []string{"type"}),
		gamesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_closed_total",
			Help:      "Games that reached a terminal status.",
		}, []string{"status"}),
		careerUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "career_updates_total",
			Help:      "Per-player career updates, by result.",
		}, []string{"result"}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.requests,
		p.requestDuration,
		p.events,
		p.gamesClosed,
		p.careerUpdates,
	)

	return p
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) RequestServed(method, route string, status int, duration time.Duration) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (p *Prometheus) EventRecorded(eventType string) {
	p.events.WithLabelValues(eventType).Inc()
}

func (p *Prometheus) GameClosed(status string) {
	p.gamesClosed.WithLabelValues(status).Inc()
}

func (p *Prometheus) CareerUpdate(succeeded bool) {
	result := "ok"
	if !succeeded {
		result = "failed"
	}
	p.careerUpdates.WithLabelValues(result).Inc()
}

// Noop discards everything. Used by tests and the CLI.
type Noop struct{}

func (Noop) RequestServed(string, string, int, time.Duration) {}
func (Noop) EventRecorded(string)                             {}
func (Noop) GameClosed(string)                                {}
func (Noop) CareerUpdate(bool)                                {}
