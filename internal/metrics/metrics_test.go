package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordMutation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordMutation("add_user", nil)
	m.RecordMutation("add_user", nil)
	m.RecordMutation("add_user", errors.New("duplicate"))

	if got := testutil.ToFloat64(m.mutations.WithLabelValues("add_user", ResultOK)); got != 2 {
		t.Errorf("Expected 2 successful add_user, got %v", got)
	}
	if got := testutil.ToFloat64(m.mutations.WithLabelValues("add_user", ResultError)); got != 1 {
		t.Errorf("Expected 1 failed add_user, got %v", got)
	}
}

func TestSetSize(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetSize(5, 3)

	if got := testutil.ToFloat64(m.users); got != 5 {
		t.Errorf("Expected users gauge 5, got %v", got)
	}
	if got := testutil.ToFloat64(m.friendships); got != 3 {
		t.Errorf("Expected friendships gauge 3, got %v", got)
	}
}

func TestRecordReplay(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordReplay(20*time.Millisecond, 4, 1, false)
	m.RecordReplay(time.Millisecond, 2, 0, true)

	if got := testutil.ToFloat64(m.replayLines.WithLabelValues(LineApplied)); got != 6 {
		t.Errorf("Expected 6 applied lines, got %v", got)
	}
	if got := testutil.ToFloat64(m.replayLines.WithLabelValues(LineFailed)); got != 1 {
		t.Errorf("Expected 1 failed line, got %v", got)
	}
	if n := testutil.CollectAndCount(m.replayDuration); n != 1 {
		t.Errorf("Expected one histogram series, got %d", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordMutation("add_user", nil)
	m.SetSize(1, 1)
	m.RecordReplay(time.Second, 1, 1, true)
}
