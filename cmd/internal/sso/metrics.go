package sso

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts SSO outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	resolve   *prometheus.CounterVec
	link      *prometheus.CounterVec
	secretSet *prometheus.CounterVec
}

// NewMetrics registers the SSO counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolve: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsso_resolve_total",
			Help: "DID resolutions by outcome.",
		}, []string{"outcome"}),
		link: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsso_link_total",
			Help: "Manual link attempts by outcome.",
		}, []string{"outcome"}),
		secretSet: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsso_secret_set_total",
			Help: "Shared secret set attempts by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.resolve, m.link, m.secretSet)
	}
	return m
}

// Resolve records one resolution outcome.
func (m *Metrics) Resolve(outcome string) {
	if m != nil {
		m.resolve.WithLabelValues(outcome).Inc()
	}
}

// Link records one link attempt outcome.
func (m *Metrics) Link(outcome string) {
	if m != nil {
		m.link.WithLabelValues(outcome).Inc()
	}
}

// SecretSet records one secret set attempt outcome.
func (m *Metrics) SecretSet(outcome string) {
	if m != nil {
		m.secretSet.WithLabelValues(outcome).Inc()
	}
}
