package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goEventHub "github.com/MrEthical07/goEventHub"
	"github.com/MrEthical07/goEventHub/backendtest"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goEventHub.MetricsSnapshot
	dropped  map[goEventHub.ErrorKind]uint64
}

func (f fakeSource) MetricsSnapshot() goEventHub.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDroppedByKind() map[goEventHub.ErrorKind]uint64 {
	return f.dropped
}

func TestCollectOnlyAuditWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goEventHub.MetricsSnapshot{
			Counters:   map[goEventHub.MetricID]uint64{},
			Histograms: map[goEventHub.MetricID][]uint64{},
		},
		dropped: map[goEventHub.ErrorKind]uint64{goEventHub.KindNone: 0},
	})

	if got := testutil.CollectAndCount(exp); got != 1 {
		t.Fatalf("expected only the audit dropped sample, got %d", got)
	}
}

func TestAuditDroppedLabelledByKind(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goEventHub.MetricsSnapshot{},
		dropped: map[goEventHub.ErrorKind]uint64{
			goEventHub.KindNone:      1,
			goEventHub.KindTransport: 0,
			goEventHub.KindAuth:      0,
			goEventHub.KindBusiness:  4,
		},
	})

	want := `
# HELP eventhub_audit_dropped_total Action events that never reached the audit sink, by outcome kind.
# TYPE eventhub_audit_dropped_total counter
eventhub_audit_dropped_total{kind="auth"} 0
eventhub_audit_dropped_total{kind="business"} 4
eventhub_audit_dropped_total{kind="none"} 1
eventhub_audit_dropped_total{kind="transport"} 0
`
	if err := testutil.CollectAndCompare(exp, strings.NewReader(want), "eventhub_audit_dropped_total"); err != nil {
		t.Fatalf("unexpected audit series: %v", err)
	}
}

func TestGatherIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goEventHub.MetricsSnapshot{
			Counters: map[goEventHub.MetricID]uint64{
				goEventHub.MetricLoginSuccess: 7,
			},
			Histograms: map[goEventHub.MetricID][]uint64{
				goEventHub.MetricBackendLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: map[goEventHub.ErrorKind]uint64{goEventHub.KindTransport: 2},
	})

	families, err := exp.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
		switch mf.GetName() {
		case "eventhub_login_success_total":
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 7 {
				t.Fatalf("expected login_success 7, got %v", v)
			}
		case "eventhub_backend_latency_seconds":
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 36 {
				t.Fatalf("expected sample count 36, got %d", h.GetSampleCount())
			}
			b := h.GetBucket()
			if len(b) < 7 || b[0].GetUpperBound() != 0.005 || b[0].GetCumulativeCount() != 1 {
				t.Fatalf("unexpected buckets %+v", b)
			}
			if b[6].GetCumulativeCount() != 28 {
				t.Fatalf("expected 0.5s bucket cumulative 28, got %d", b[6].GetCumulativeCount())
			}
		case "eventhub_audit_dropped_total":
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 2 {
				t.Fatalf("expected audit dropped 2, got %v", v)
			}
		}
	}
	for _, name := range []string{"eventhub_login_success_total", "eventhub_backend_latency_seconds", "eventhub_audit_dropped_total"} {
		if !found[name] {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestHandlerServesStoreMetrics(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	cfg := goEventHub.DefaultConfig()
	cfg.Backend.BaseURL = srv.URL()
	store, err := goEventHub.New().WithConfig(cfg).WithHTTPClient(srv.Client()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer store.Close()
	store.FetchGreeting(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	NewExporter(store).Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "eventhub_greeting_success_total 1") {
		t.Fatalf("expected greeting counter, got:\n%s", body)
	}
	if !strings.Contains(string(body), `eventhub_audit_dropped_total{kind="business"} 0`) {
		t.Fatalf("expected per-kind audit series, got:\n%s", body)
	}
}

func BenchmarkCollect(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goEventHub.MetricsSnapshot{
			Counters: map[goEventHub.MetricID]uint64{
				goEventHub.MetricLoginSuccess:     1000,
				goEventHub.MetricLoginFailure:     40,
				goEventHub.MetricTokenValid:       800,
				goEventHub.MetricTokenInvalid:     10,
				goEventHub.MetricStateMutation:    2400,
				goEventHub.MetricResetFailure:     3,
				goEventHub.MetricTransportFailure: 2,
			},
			Histograms: map[goEventHub.MetricID][]uint64{
				goEventHub.MetricBackendLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})
	reg := exp.Registry()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = reg.Gather()
	}
}
