package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linesmerrill/dharma-case-api/cases"
	"github.com/linesmerrill/dharma-case-api/databases"
	"github.com/linesmerrill/dharma-case-api/models"
)

// Metrics holds the prometheus collectors for the service
type Metrics struct {
	Registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	queries     *prometheus.HistogramVec
	mutations   *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dharma_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dharma_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		queries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dharma_store_query_duration_seconds",
			Help:    "Case store call latency by operation and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dharma_case_mutations_total",
			Help: "Committed case mutations by kind.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dharma_case_transitions_total",
			Help: "Case status changes by source and target status.",
		}, []string{"from", "to"}),
	}
	m.Registry.MustRegister(
		m.requests,
		m.duration,
		m.queries,
		m.mutations,
		m.transitions,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// CaseChanged counts committed mutations and status transitions
func (m *Metrics) CaseChanged(_ context.Context, e cases.Event) {
	m.mutations.WithLabelValues(string(e.Kind)).Inc()
	if e.StatusChanged() {
		m.transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
	}
}

func (m *Metrics) observeQuery(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.queries.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

// InstrumentCaseDatabase wraps db so every call is timed
func (m *Metrics) InstrumentCaseDatabase(db databases.CaseDatabase) databases.CaseDatabase {
	return &instrumentedCaseDatabase{next: db, metrics: m}
}

type instrumentedCaseDatabase struct {
	next    databases.CaseDatabase
	metrics *Metrics
}

func (d *instrumentedCaseDatabase) FindOne(ctx context.Context, id string) (c *models.CaseFile, err error) {
	defer func(start time.Time) { d.metrics.observeQuery("find_one", start, err) }(time.Now())
	return d.next.FindOne(ctx, id)
}

func (d *instrumentedCaseDatabase) Find(ctx context.Context, filter databases.CaseFilter) (out []models.CaseFile, err error) {
	defer func(start time.Time) { d.metrics.observeQuery("find", start, err) }(time.Now())
	return d.next.Find(ctx, filter)
}

func (d *instrumentedCaseDatabase) InsertOne(ctx context.Context, c models.CaseFile) (err error) {
	defer func(start time.Time) { d.metrics.observeQuery("insert_one", start, err) }(time.Now())
	return d.next.InsertOne(ctx, c)
}

func (d *instrumentedCaseDatabase) ReplaceOne(ctx context.Context, c *models.CaseFile, expectedVersion int32) (err error) {
	defer func(start time.Time) { d.metrics.observeQuery("replace_one", start, err) }(time.Now())
	return d.next.ReplaceOne(ctx, c, expectedVersion)
}

func (d *instrumentedCaseDatabase) CountDocuments(ctx context.Context, filter databases.CaseFilter) (n int64, err error) {
	defer func(start time.Time) { d.metrics.observeQuery("count_documents", start, err) }(time.Now())
	return d.next.CountDocuments(ctx, filter)
}
