// Package metrics instruments a signer.Provider with prometheus collectors.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glinharesb/vault-signer/internal/signer"
)

var _ signer.Provider = (*Provider)(nil)

const namespace = "vault_signer"

// Provider counts calls on the wrapped provider by outcome and observes their
// latency.
type Provider struct {
	inner signer.Provider

	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Wrap registers the collectors for a provider called name on registerer.
func Wrap(name string, inner signer.Provider, registerer prometheus.Registerer) (*Provider, error) {
	labels := prometheus.Labels{"provider": name}
	calls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "calls_total",
			Help:        "Number of provider calls by operation and outcome",
			ConstLabels: labels,
		},
		[]string{"op", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "call_duration_seconds",
			Help:        "Time spent in provider calls",
			ConstLabels: labels,
			Buckets: []float64{
				.0005, .001, .005, .01, .05, .1, .5, 1, 5,
				// a device waiting on a button press lands here
				30,
			},
		},
		[]string{"op"},
	)

	err := errors.Join(
		registerer.Register(calls),
		registerer.Register(duration),
	)
	return &Provider{
		inner:    inner,
		calls:    calls,
		duration: duration,
	}, err
}

func (p *Provider) PublicKey() (signer.PublicKey, error) {
	start := time.Now()
	pk, err := p.inner.PublicKey()
	p.observe("public_key", start, err)
	return pk, err
}

func (p *Provider) Sign(msg []byte) (signer.Signature, error) {
	start := time.Now()
	sig, err := p.inner.Sign(msg)
	p.observe("sign", start, err)
	return sig, err
}

func (p *Provider) observe(op string, start time.Time, err error) {
	p.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	p.calls.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch signer.KindOf(err) {
	case 0:
		if err != nil {
			return "error"
		}
		return "ok"
	case signer.KindKeyInvalid:
		return "key_invalid"
	default:
		return "provider_error"
	}
}
