package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authgate"
	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type fakeSource struct {
	snapshot authgate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authgate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func sampleSource() fakeSource {
	return fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters: map[authgate.MetricID]uint64{
				authgate.MetricLoginSuccess:     7,
				authgate.MetricGateCSRFRejected: 3,
			},
			Histograms: map[authgate.MetricID][]uint64{
				authgate.MetricGateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			HistogramSums: map[authgate.MetricID]time.Duration{
				authgate.MetricGateLatency: 2 * time.Second,
			},
		},
		dropped: 2,
	}
}

func gather(t *testing.T, c *Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prom.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestCollectorCounters(t *testing.T) {
	families := gather(t, NewCollectorFromSource(sampleSource()))

	login := families["authgate_login_success_total"]
	if login == nil || login.GetMetric()[0].GetCounter().GetValue() != 7 {
		t.Fatalf("unexpected login counter: %v", login)
	}
	csrf := families["authgate_gate_csrf_rejected_total"]
	if csrf == nil || csrf.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatalf("unexpected csrf counter: %v", csrf)
	}
	dropped := families["authgate_audit_dropped_total"]
	if dropped == nil || dropped.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("unexpected dropped counter: %v", dropped)
	}
}

func TestCollectorHistogram(t *testing.T) {
	families := gather(t, NewCollectorFromSource(sampleSource()))

	fam := families["authgate_gate_latency_seconds"]
	if fam == nil {
		t.Fatal("expected latency histogram")
	}
	h := fam.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 36 {
		t.Fatalf("expected 36 samples, got %d", h.GetSampleCount())
	}
	if h.GetSampleSum() != 2 {
		t.Fatalf("expected sum 2s, got %v", h.GetSampleSum())
	}
	first := h.GetBucket()[0]
	if first.GetUpperBound() != 0.005 || first.GetCumulativeCount() != 1 {
		t.Fatalf("unexpected first bucket: %v", first)
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(NewCollectorFromSource(sampleSource())).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "authgate_login_success_total 7") {
		t.Fatalf("expected login counter in output, got:\n%s", body)
	}
	if !strings.Contains(body, `authgate_gate_latency_seconds_bucket{le="+Inf"} 36`) {
		t.Fatalf("expected +Inf bucket in output, got:\n%s", body)
	}
}
