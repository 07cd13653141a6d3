package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	m.Line("file")
	m.Line("file")
	m.ChecksumError("$SDDPT")
	m.Decoded("GLL")
	m.Trigger()
	m.PersistError("track")
	m.SetSourceState("file", 2)

	if got := testutil.ToFloat64(m.LinesTotal.WithLabelValues("file")); got != 2 {
		t.Fatalf("lines_total=%v want 2", got)
	}
	if got := testutil.ToFloat64(m.TriggersTotal); got != 1 {
		t.Fatalf("triggers_total=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.SourceState.WithLabelValues("file")); got != 2 {
		t.Fatalf("source state=%v want 2", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Line("x")
	m.ChecksumError("x")
	m.Decoded("x")
	m.Trigger()
	m.PersistError("x")
	m.SetSourceState("x", 1)
}
