package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records background job runs and the account records they touch.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	accounts *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of background jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Background job runs by outcome.",
	}, []string{"job", "outcome"})
	accounts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_reconciliations_total",
		Help: "Account records re-read from the gateway, by result.",
	}, []string{"result"})
	reg.MustRegister(duration, runs, accounts)
	return &JobMetrics{
		duration: duration,
		runs:     runs,
		accounts: accounts,
	}
}

// ObserveRun records one job run.
func (j *JobMetrics) ObserveRun(job string, err error, duration time.Duration) {
	if j == nil || j.duration == nil || j.runs == nil {
		return
	}
	name := normalizeLabel(job)
	j.duration.WithLabelValues(name).Observe(duration.Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	j.runs.WithLabelValues(name, outcome).Inc()
}

// IncAccount counts one reconciled account record.
func (j *JobMetrics) IncAccount(result string) {
	if j == nil || j.accounts == nil {
		return
	}
	j.accounts.WithLabelValues(normalizeLabel(result)).Inc()
}
