package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/api/health", "200", time.Millisecond)
	m.ObserveLLMRequest("m", "tutoring", "ok", time.Millisecond)
	m.ObserveBranch("quiz", "error")
	m.IncFastPath("greeting")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("nil handler status=%d, want 503", rec.Code)
	}
}

func TestMetricsRecordAndExport(t *testing.T) {
	m := New()
	m.ObserveBranch("assessment", "contributed")
	m.ObserveBranch("assessment", "contributed")
	m.IncFastPath("greeting")

	if got := testutil.ToFloat64(m.branchOutcomes.WithLabelValues("assessment", "contributed")); got != 2 {
		t.Fatalf("branch counter=%v, want 2", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "edulife_coordinator_fast_path_total") {
		t.Fatalf("export missing fast path counter")
	}
}
