// Package metrics exports report executions as Prometheus metrics.
package metrics

import (
	"net/http"

	report "github.com/einride/tableau-slack-report"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tableau_slack_report"

// Collector records report executions. Observe is a report.Config execution listener.
type Collector struct {
	executions    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	lastExecution *prometheus.GaugeVec
}

// New creates the report metrics and registers them with reg.
//
// requiredVarsSet, when non-nil, is exported as a gauge evaluated on every scrape.
func New(reg prometheus.Registerer, requiredVarsSet func() int) (*Collector, error) {
	c := &Collector{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Report script executions by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock duration of report script executions.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 180, 240, 300},
		}, []string{"status"}),
		lastExecution: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_execution_timestamp_seconds",
			Help:      "Unix time of the last report script execution by outcome.",
		}, []string{"status"}),
	}
	collectors := []prometheus.Collector{c.executions, c.duration, c.lastExecution}
	if requiredVarsSet != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "required_vars_set",
			Help:      "Number of required environment variables currently set.",
		}, func() float64 {
			return float64(requiredVarsSet())
		}))
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return nil, errors.Wrap(err, "register metrics")
		}
	}
	// Export every outcome from the start so that rate queries see zeroes.
	for _, status := range []report.Status{report.StatusSuccess, report.StatusError, report.StatusTimeout} {
		c.executions.WithLabelValues(status.String())
	}
	return c, nil
}

// Observe records an execution.
func (c *Collector) Observe(execution report.Execution) {
	status := execution.Status.String()
	c.executions.WithLabelValues(status).Inc()
	c.duration.WithLabelValues(status).Observe(execution.Duration.Seconds())
	c.lastExecution.WithLabelValues(status).Set(float64(execution.Time.UnixNano()) / 1e9)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
