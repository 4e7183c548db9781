// Package metrics counts registry notifications with Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/simple-registry/pkg/registry"
)

const namespace = "registry"

// Sink is a registry.EventSink that updates Prometheus collectors.
type Sink struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	ratings  *prometheus.CounterVec
	executed prometheus.Counter
	requests *prometheus.HistogramVec
}

var _ registry.EventSink = (*Sink)(nil)

// New creates a Sink backed by its own Prometheus registry, with the Go and
// process collectors attached.
func New() *Sink {
	reg := prometheus.NewRegistry()
	s := &Sink{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Registry notifications by event type.",
		}, []string{"event"}),
		ratings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratings_total",
			Help:      "Ratings recorded by rating value.",
		}, []string{"rating"}),
		executed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_executed_total",
			Help:      "Proposals that reached quorum at execution.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		s.events,
		s.ratings,
		s.executed,
		s.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

// Handler serves the metrics in the Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Registry exposes the underlying registry for additional collectors.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Sink) ContentPublished(ctx context.Context, event registry.ContentPublished) error {
	s.events.WithLabelValues("content_published").Inc()
	return nil
}

func (s *Sink) ContentRated(ctx context.Context, event registry.ContentRated) error {
	s.events.WithLabelValues("content_rated").Inc()
	s.ratings.WithLabelValues(strconv.Itoa(int(event.Rating))).Inc()
	return nil
}

func (s *Sink) ProposalCreated(ctx context.Context, event registry.ProposalCreated) error {
	s.events.WithLabelValues("proposal_created").Inc()
	return nil
}

func (s *Sink) Voted(ctx context.Context, event registry.Voted) error {
	s.events.WithLabelValues("voted").Inc()
	return nil
}

func (s *Sink) ProposalExecuted(ctx context.Context, event registry.ProposalExecuted) error {
	s.events.WithLabelValues("proposal_executed").Inc()
	s.executed.Inc()
	return nil
}

// RecordRequest observes one HTTP request.
func (s *Sink) RecordRequest(method, route string, statusCode int, duration time.Duration) {
	s.requests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}
