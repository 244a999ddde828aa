package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.ObservePass("quest", "ok", time.Millisecond)
	c.ObservePass("quest", "errors", time.Millisecond)
	c.ObservePass("loop", "cycle", 0)
	c.ObserveFieldError("quest", "runtime")
	c.ObserveFieldError("quest", "runtime")

	if got := testutil.ToFloat64(c.passesTotal.WithLabelValues("quest", "ok")); got != 1 {
		t.Fatalf("expected one ok pass, got %v", got)
	}
	if got := testutil.ToFloat64(c.fieldErrorsTotal.WithLabelValues("quest", "runtime")); got != 2 {
		t.Fatalf("expected two runtime errors, got %v", got)
	}

	expected := `
# HELP flexforms_dependency_cycles_total Number of forms rejected because of a modifier dependency cycle.
# TYPE flexforms_dependency_cycles_total counter
flexforms_dependency_cycles_total{form="loop"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "flexforms_dependency_cycles_total"); err != nil {
		t.Fatalf("cycles: %v", err)
	}
	if n := testutil.CollectAndCount(c.passDuration); n != 1 {
		t.Fatalf("expected one duration series, got %d", n)
	}
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	MustNew(reg)
	if _, err := New(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
