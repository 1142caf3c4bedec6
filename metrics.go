package rsapq

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Verification result labels.
const (
	resultValid       = "valid"
	resultExpired     = "expired"
	resultNotYetValid = "not_yet_valid"
	resultInvalid     = "invalid"
	resultMalformed   = "malformed"
)

// metrics are nil-safe: an engine built without a registerer records
// nothing.
type metrics struct {
	primeCandidates    prometheus.Counter
	keyGeneration      prometheus.Histogram
	certificatesIssued prometheus.Counter
	verifications      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		primeCandidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsapq_prime_candidates_total",
			Help: "Prime candidates drawn during key generation.",
		}),
		keyGeneration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsapq_key_generation_seconds",
			Help:    "Wall time spent generating key pairs.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		certificatesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsapq_certificates_issued_total",
			Help: "Certificates issued and stored.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsapq_certificate_verifications_total",
			Help: "Certificate verifications by result.",
		}, []string{"result"}),
	}

	collectors := []prometheus.Collector{m.primeCandidates, m.keyGeneration, m.certificatesIssued, m.verifications}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, registered := range collectors[:i] {
				reg.Unregister(registered)
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) candidate() {
	if m != nil {
		m.primeCandidates.Inc()
	}
}

func (m *metrics) observeKeyGeneration(seconds float64) {
	if m != nil {
		m.keyGeneration.Observe(seconds)
	}
}

func (m *metrics) issued() {
	if m != nil {
		m.certificatesIssued.Inc()
	}
}

func (m *metrics) verified(result string) {
	if m != nil {
		m.verifications.WithLabelValues(result).Inc()
	}
}
