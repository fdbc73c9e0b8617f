package observability

import (
	"testing"
	"time"
)

func TestLatencyWindowSnapshot(t *testing.T) {
	w := newLatencyWindow(8)
	w.Observe("llm", 500)
	w.Observe("llm", 700)
	w.Observe("llm", 900)
	w.Observe("engine", 1)
	w.ObserveIndicator("fallback_timeout")
	w.ObserveIndicator("fallback_timeout")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Sources) != 2 || snap.Sources[0].Source != "engine" {
		t.Fatalf("Sources = %+v, want engine then llm", snap.Sources)
	}
	s := snap.Sources[1]
	if s.Samples != 3 || s.LastMS != 900 || s.P50MS != 700 {
		t.Fatalf("llm stats = %+v", s)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
	if s.TargetP95MS != 4000 {
		t.Fatalf("TargetP95MS = %.2f, want 4000", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 || snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators = %+v", snap.Indicators)
	}
}

func TestLatencyWindowWrapsAround(t *testing.T) {
	w := newLatencyWindow(2)
	w.Observe("engine", 10)
	w.Observe("engine", 20)
	w.Observe("engine", 30)
	s := w.Snapshot().Sources[0]
	if s.Samples != 2 || s.AvgMS != 25 || s.LastMS != 30 {
		t.Fatalf("stats = %+v, want only the newest two samples", s)
	}
}

func TestMetricsObserveReply(t *testing.T) {
	m := NewMetrics("observability_test")
	m.ObserveReply("engine", 2*time.Millisecond)
	m.ObserveFallback("timeout")
	snap := m.SnapshotLatency()
	if len(snap.Sources) != 1 || snap.Sources[0].LastMS != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Indicators) != 1 || snap.Indicators[0].Name != "fallback_timeout" {
		t.Fatalf("Indicators = %+v", snap.Indicators)
	}
}
