// Package metrics exposes Prometheus collectors for the ad pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ticksTotal                 *prometheus.CounterVec
	fetchBytesTotal            prometheus.Counter
	fetchDurationSeconds       prometheus.Histogram
	deliveriesTotal            *prometheus.CounterVec
	deliveryAttemptsTotal      prometheus.Counter
	adsDistributedTotal        *prometheus.CounterVec
	checkpointFailuresTotal    prometheus.Counter
	crawlCurrentID             prometheus.Gauge
	crawlLastSuccessID         prometheus.Gauge
	crawlIncrement             prometheus.Gauge
	crawlConsecutiveMisses     prometheus.Gauge
	rateLimitDelaysSeconds     prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ticksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adfiller_ticks_total",
				Help: "Crawler ticks, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		fetchBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "adfiller_fetch_bytes_total",
			Help: "Bytes of ad page markup fetched.",
		})
		fetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "adfiller_fetch_duration_seconds",
			Help:    "Histogram of ad page fetch latencies.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		})
		deliveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adfiller_deliveries_total",
				Help: "Per-receiver deliveries, labeled by status.",
			},
			[]string{"status"},
		)
		deliveryAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "adfiller_delivery_attempts_total",
			Help: "Individual send attempts, including retries.",
		})
		adsDistributedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adfiller_ads_distributed_total",
				Help: "Ads handed to the dispatcher, labeled by matched category.",
			},
			[]string{"category"},
		)
		checkpointFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "adfiller_checkpoint_failures_total",
			Help: "Checkpoint writes that failed.",
		})
		crawlCurrentID = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "adfiller_crawl_current_id",
			Help: "Next identifier the crawler will probe.",
		})
		crawlLastSuccessID = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "adfiller_crawl_last_success_id",
			Help: "Last identifier that yielded a stale ad.",
		})
		crawlIncrement = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "adfiller_crawl_increment",
			Help: "Current identifier step size.",
		})
		crawlConsecutiveMisses = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "adfiller_crawl_consecutive_misses",
			Help: "Missing pages seen since the last found ad.",
		})
		rateLimitDelaysSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "adfiller_rate_limit_delays_seconds",
			Help:    "Histogram of request pacing waits.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		})
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)
		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveTick counts one crawler tick outcome.
func ObserveTick(outcome string) {
	Init()
	ticksTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records one completed page fetch.
func ObserveFetch(bytesFetched int, duration time.Duration) {
	Init()
	if bytesFetched > 0 {
		fetchBytesTotal.Add(float64(bytesFetched))
	}
	fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveDelivery counts one receiver delivery and the attempts it took.
func ObserveDelivery(status string, attempts int) {
	Init()
	deliveriesTotal.WithLabelValues(status).Inc()
	deliveryAttemptsTotal.Add(float64(attempts))
}

// ObserveDistributed counts an ad routed to a category.
func ObserveDistributed(category string) {
	Init()
	adsDistributedTotal.WithLabelValues(category).Inc()
}

// ObserveCheckpointFailure counts a failed checkpoint write.
func ObserveCheckpointFailure() {
	Init()
	checkpointFailuresTotal.Inc()
}

// SetCrawlState publishes the crawler search state.
func SetCrawlState(currentID, lastSuccessID int64, increment, misses int) {
	Init()
	crawlCurrentID.Set(float64(currentID))
	crawlLastSuccessID.Set(float64(lastSuccessID))
	crawlIncrement.Set(float64(increment))
	crawlConsecutiveMisses.Set(float64(misses))
}

// ObserveRateLimitDelay records the duration of a pacing wait.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
