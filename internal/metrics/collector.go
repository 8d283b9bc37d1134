// Package metrics exposes Prometheus metrics for the question-answering
// service on a dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "auroraqa"

// Collector owns every metric the service records.
type Collector struct {
	registry  *prometheus.Registry
	startTime time.Time

	questions      *prometheus.CounterVec
	failures       *prometheus.CounterVec
	duration       prometheus.Histogram
	evidence       prometheus.Histogram
	corpusFetches  *prometheus.CounterVec
	corpusMessages prometheus.Gauge
	httpRequests   *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions answered, by question type.",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_failures_total",
			Help:      "Questions that could not be answered, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "question_duration_seconds",
			Help:      "Time to answer a question.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		evidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evidence_messages",
			Help:      "Ranked evidence messages per question.",
			Buckets:   []float64{0, 1, 3, 5, 10, 15, 20, 25},
		}),
		corpusFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_fetch_total",
			Help:      "Corpus loads, by source and result.",
		}, []string{"source", "result"}),
		corpusMessages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_messages",
			Help:      "Messages in the last loaded corpus snapshot.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests, by route and status code.",
		}, []string{"path", "code"}),
	}

	c.registry.MustRegister(
		c.questions, c.failures, c.duration, c.evidence,
		c.corpusFetches, c.corpusMessages, c.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Uptime returns how long the collector has been running.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

func (c *Collector) ObserveAnswer(questionType string, evidence int, took time.Duration) {
	c.questions.WithLabelValues(questionType).Inc()
	c.evidence.Observe(float64(evidence))
	c.duration.Observe(took.Seconds())
}

func (c *Collector) AnswerFailed(reason string) {
	c.failures.WithLabelValues(reason).Inc()
}

// CorpusFetched implements corpus.FetchObserver.
func (c *Collector) CorpusFetched(source string, count int, err error) {
	if err != nil {
		c.corpusFetches.WithLabelValues(source, "error").Inc()
		return
	}
	c.corpusFetches.WithLabelValues(source, "ok").Inc()
	c.corpusMessages.Set(float64(count))
}

func (c *Collector) ObserveHTTP(path string, code int) {
	c.httpRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
