// Package metrics provides Prometheus metrics for credential issuance and
// verification.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the credential collectors.
type Metrics struct {
	// Issuance
	AuthoritiesIssuedTotal *prometheus.CounterVec // MoE references minted by mode (single, batch)
	KeysRegisteredTotal    prometheus.Counter     // University key registrations
	GraduatesSignedTotal   prometheus.Counter     // Graduate records signed and appended
	SigningDurationSeconds prometheus.Histogram   // Per-record canonicalize + sign latency

	// Verification
	VerificationsTotal          *prometheus.CounterVec // Outcomes by status (valid, invalid, not_found)
	VerificationDurationSeconds prometheus.Histogram

	// Registry write serialization
	LockWaitSeconds   prometheus.Histogram
	LockAcquiredTotal prometheus.Counter
	StoreErrorsTotal  *prometheus.CounterVec // Storage faults by operation
}

// New registers the collectors on the default Prometheus registerer.
// Call it once per process.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on reg; tests pass a fresh
// prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuthoritiesIssuedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gradverify_authorities_issued_total",
			Help: "Total number of MoE authority references issued",
		}, []string{"mode"}),

		KeysRegisteredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gradverify_university_keys_registered_total",
			Help: "Total number of university public keys registered",
		}),

		GraduatesSignedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gradverify_graduates_signed_total",
			Help: "Total number of graduate records signed",
		}),

		SigningDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gradverify_graduate_signing_duration_seconds",
			Help:    "Duration of building and signing one graduate payload",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),

		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gradverify_verifications_total",
			Help: "Total number of graduate verifications by outcome",
		}, []string{"status"}),

		VerificationDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gradverify_verification_duration_seconds",
			Help:    "Duration of graduate verification requests",
			Buckets: prometheus.DefBuckets,
		}),

		LockWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gradverify_registry_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a registry shard lock",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),

		LockAcquiredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gradverify_registry_lock_acquisitions_total",
			Help: "Total number of registry shard lock acquisitions",
		}),

		StoreErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gradverify_store_errors_total",
			Help: "Total number of storage faults by operation",
		}, []string{"operation"}),
	}
}

// IncAuthorityIssued counts one minted reference.
func (m *Metrics) IncAuthorityIssued(mode string) {
	if m == nil {
		return
	}
	m.AuthoritiesIssuedTotal.WithLabelValues(mode).Inc()
}

// IncKeyRegistered counts one key registration.
func (m *Metrics) IncKeyRegistered() {
	if m == nil {
		return
	}
	m.KeysRegisteredTotal.Inc()
}

// AddGraduatesSigned counts appended graduate records.
func (m *Metrics) AddGraduatesSigned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.GraduatesSignedTotal.Add(float64(n))
}

// ObserveSigning records one signing latency.
func (m *Metrics) ObserveSigning(seconds float64) {
	if m == nil {
		return
	}
	m.SigningDurationSeconds.Observe(seconds)
}

// ObserveVerification records one verification outcome and its latency.
func (m *Metrics) ObserveVerification(status string, seconds float64) {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues(status).Inc()
	m.VerificationDurationSeconds.Observe(seconds)
}

// ObserveLockWait records shard lock contention.
func (m *Metrics) ObserveLockWait(seconds float64) {
	if m == nil {
		return
	}
	m.LockWaitSeconds.Observe(seconds)
	m.LockAcquiredTotal.Inc()
}

// IncStoreError counts a storage fault for the operation.
func (m *Metrics) IncStoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrorsTotal.WithLabelValues(operation).Inc()
}
