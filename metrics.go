package goEventHub

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a store counter or histogram.
type MetricID uint16

const (
	// MetricRecoverySuccess counts password recovery requests answered 200.
	MetricRecoverySuccess MetricID = iota
	// MetricRecoveryFailure counts password recovery requests that failed.
	MetricRecoveryFailure
	// MetricLoginSuccess counts logins answered 200.
	MetricLoginSuccess
	// MetricLoginFailure counts logins that failed.
	MetricLoginFailure
	// MetricTokenValid counts token validations answered 200.
	MetricTokenValid
	// MetricTokenInvalid counts token validations that raised.
	MetricTokenInvalid
	// MetricResetSuccess counts password resets answered 200.
	MetricResetSuccess
	// MetricResetFailure counts password resets that failed.
	MetricResetFailure
	// MetricGreetingSuccess counts greeting fetches that decoded.
	MetricGreetingSuccess
	// MetricGreetingFailure counts greeting fetches that failed.
	MetricGreetingFailure
	// MetricFeedSuccess counts feed fetches answered 200.
	MetricFeedSuccess
	// MetricFeedFailure counts feed fetches that failed.
	MetricFeedFailure
	// MetricTransportFailure counts requests that never got an HTTP answer, across actions.
	MetricTransportFailure
	// MetricStateMutation counts applied state mutations.
	MetricStateMutation
	// MetricLocationSelected counts accepted location picks.
	MetricLocationSelected
	// MetricRecoveryThrottled counts recovery requests refused before reaching the backend.
	MetricRecoveryThrottled
	// MetricBackendLatency is the round-trip latency histogram of backend requests.
	MetricBackendLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the store's atomic counters and latency histograms.
// All methods are safe for concurrent use and are no-ops on a nil or disabled receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters and histograms switched by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id. It is a no-op when metrics are disabled.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram of id. Only MetricBackendLatency has a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricBackendLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads counter id, zero for an unknown id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram.
// A disabled Metrics yields empty, non-nil maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricBackendLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricBackendLatency].buckets[i])
		}
		s.Histograms[MetricBackendLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
