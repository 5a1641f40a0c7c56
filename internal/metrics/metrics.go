// Package metrics exposes campaign and HTTP instrumentation to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/mongeu/internal/energy"
	"codeberg.org/mutker/mongeu/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mongeu"

// unmatchedRoute labels requests that did not hit a registered route so
// arbitrary paths cannot blow up label cardinality
const unmatchedRoute = "unmatched"

type Metrics struct {
	gatherer prometheus.Gatherer

	campaigns       prometheus.GaugeFunc
	created         prometheus.Counter
	deleted         prometheus.Counter
	collected       prometheus.Counter
	gcRuns          *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers all collectors on reg. live reports the number of
// campaigns currently in the store.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer, live func() int) (*Metrics, error) {
	m := &Metrics{
		gatherer: gatherer,
		campaigns: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "campaigns",
			Help:      "Number of live measurement campaigns.",
		}, func() float64 {
			return float64(live())
		}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_created_total",
			Help:      "Total number of campaigns created.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_deleted_total",
			Help:      "Total number of campaigns deleted by clients.",
		}),
		collected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_collected_total",
			Help:      "Total number of campaigns removed by the collector.",
		}),
		gcRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gc_runs_total",
			Help:      "Collector wake-ups by trigger and whether a sweep happened.",
		}, []string{"trigger", "swept"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	for _, c := range []prometheus.Collector{
		m.campaigns,
		m.created,
		m.deleted,
		m.collected,
		m.gcRuns,
		m.requestDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.New().Wrap(ErrRegisterFailed, err)
		}
	}

	return m, nil
}

func (m *Metrics) CampaignCreated(energy.CampaignID, *energy.Snapshot) {
	m.created.Inc()
}

func (m *Metrics) CampaignDeleted(energy.CampaignID, *energy.Snapshot) {
	m.deleted.Inc()
}

func (m *Metrics) Swept(sweep energy.Sweep) {
	m.gcRuns.WithLabelValues(string(sweep.Trigger), strconv.FormatBool(sweep.Swept)).Inc()
	m.collected.Add(float64(len(sweep.Removed)))
}

// Middleware observes the latency of every request
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		m.requestDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
