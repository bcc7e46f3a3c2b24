package internaldefs

import (
	goEventHub "github.com/MrEthical07/goEventHub"
)

// CounterDef names one store counter for exporters.
type CounterDef struct {
	ID   goEventHub.MetricID
	Name string
	Help string
}

// HistogramDef names one store histogram for exporters.
type HistogramDef struct {
	ID   goEventHub.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for AuditDroppedByKind, one
// series per AuditKindLabel value.
const (
	AuditDroppedName = "eventhub_audit_dropped_total"
	AuditDroppedHelp = "Action events that never reached the audit sink, by outcome kind."
	AuditKindLabel   = "kind"
)

// AuditDropKinds fixes the export order of the per-kind drop series.
var AuditDropKinds = []goEventHub.ErrorKind{
	goEventHub.KindNone,
	goEventHub.KindTransport,
	goEventHub.KindAuth,
	goEventHub.KindBusiness,
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goEventHub.MetricRecoverySuccess, Name: "eventhub_password_recovery_success_total", Help: "Password recovery requests answered 200."},
	{ID: goEventHub.MetricRecoveryFailure, Name: "eventhub_password_recovery_failure_total", Help: "Password recovery requests that failed."},
	{ID: goEventHub.MetricLoginSuccess, Name: "eventhub_login_success_total", Help: "Logins answered 200."},
	{ID: goEventHub.MetricLoginFailure, Name: "eventhub_login_failure_total", Help: "Logins that failed."},
	{ID: goEventHub.MetricTokenValid, Name: "eventhub_token_valid_total", Help: "Token validations answered 200."},
	{ID: goEventHub.MetricTokenInvalid, Name: "eventhub_token_invalid_total", Help: "Token validations that failed."},
	{ID: goEventHub.MetricResetSuccess, Name: "eventhub_password_reset_success_total", Help: "Password resets answered 200."},
	{ID: goEventHub.MetricResetFailure, Name: "eventhub_password_reset_failure_total", Help: "Password resets that failed."},
	{ID: goEventHub.MetricGreetingSuccess, Name: "eventhub_greeting_success_total", Help: "Greeting fetches that decoded."},
	{ID: goEventHub.MetricGreetingFailure, Name: "eventhub_greeting_failure_total", Help: "Greeting fetches that failed."},
	{ID: goEventHub.MetricFeedSuccess, Name: "eventhub_feed_success_total", Help: "Feed fetches answered 200."},
	{ID: goEventHub.MetricFeedFailure, Name: "eventhub_feed_failure_total", Help: "Feed fetches that failed."},
	{ID: goEventHub.MetricTransportFailure, Name: "eventhub_transport_failure_total", Help: "Backend requests that got no HTTP answer."},
	{ID: goEventHub.MetricStateMutation, Name: "eventhub_state_mutation_total", Help: "Applied session state mutations."},
	{ID: goEventHub.MetricLocationSelected, Name: "eventhub_location_selected_total", Help: "Accepted map location picks."},
	{ID: goEventHub.MetricRecoveryThrottled, Name: "eventhub_password_recovery_throttled_total", Help: "Recovery requests refused by the local throttle."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goEventHub.MetricBackendLatency, Name: "eventhub_backend_latency_seconds", Help: "Backend round-trip latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds; the eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the eight snapshot buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
