// Package metrics exposes Prometheus counters for pushed authorization requests.
package metrics

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/go-par-server/par"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "par"

// Outcome labels
const (
	OutcomeOK             = "ok"
	OutcomeUnknown        = "unknown"
	OutcomeExpired        = "expired"
	OutcomeClientMismatch = "client_mismatch"
	OutcomeInvalid        = "invalid_argument"
	OutcomeConfiguration  = "configuration_error"
	OutcomeUnavailable    = "store_unavailable"
	OutcomeError          = "error"
)

// Recorder counts issuance and redemption outcomes on its own registry.
type Recorder struct {
	registry *prometheus.Registry
	issued   *prometheus.CounterVec
	resolved *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_issued_total",
			Help:      "Pushed authorization requests issued, by outcome.",
		}, []string{"outcome"}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_resolved_total",
			Help:      "request_uri redemptions, by outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(
		r.issued,
		r.resolved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Issued(err error) {
	r.issued.WithLabelValues(Outcome(err)).Inc()
}

func (r *Recorder) Resolved(err error) {
	r.resolved.WithLabelValues(Outcome(err)).Inc()
}

// Registry is exposed for tests and for callers registering extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Outcome maps a service error to its label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, par.ErrUnknownReference):
		return OutcomeUnknown
	case errors.Is(err, par.ErrRequestExpired):
		return OutcomeExpired
	case errors.Is(err, par.ErrClientMismatch):
		return OutcomeClientMismatch
	case errors.Is(err, par.ErrInvalidArgument):
		return OutcomeInvalid
	case errors.Is(err, par.ErrConfiguration):
		return OutcomeConfiguration
	case errors.Is(err, par.ErrStoreUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}
