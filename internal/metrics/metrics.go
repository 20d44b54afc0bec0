// Package metrics exposes Prometheus collectors for token refreshes, API
// calls, and submission outcomes.
package metrics

import (
	"strconv"

	"github.com/port-experimental/membership-cli/internal/api"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "membership"

// Recorder implements api.Recorder and submission outcome recording.
type Recorder struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	authRetries *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	submissions *prometheus.CounterVec
}

var _ api.Recorder = (*Recorder)(nil)

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Domain API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		authRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_auth_retries_total",
			Help:      "Requests retried after a 401 response.",
		}, []string{"endpoint"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Token endpoint calls by trigger and outcome.",
		}, []string{"forced", "outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Membership submissions by terminal state.",
		}, []string{"state"}),
	}
	r.registry.MustRegister(r.requests, r.authRetries, r.refreshes, r.submissions)
	return r
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordRequest(endpoint string, kind api.Kind) {
	r.requests.WithLabelValues(endpoint, outcome(kind)).Inc()
}

func (r *Recorder) RecordAuthRetry(endpoint string) {
	r.authRetries.WithLabelValues(endpoint).Inc()
}

func (r *Recorder) RecordRefresh(forced bool, kind api.Kind) {
	r.refreshes.WithLabelValues(strconv.FormatBool(forced), outcome(kind)).Inc()
}

// RecordOutcome counts a finished submission.
func (r *Recorder) RecordOutcome(state string) {
	r.submissions.WithLabelValues(state).Inc()
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func outcome(kind api.Kind) string {
	if kind == "" {
		return "ok"
	}
	return string(kind)
}
