package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_Singleton(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	if a != b {
		t.Fatal("NewMetrics() returned different instances")
	}

	before := testutil.ToFloat64(a.CheckInsSubmitted.WithLabelValues("Happy"))
	b.CheckInsSubmitted.WithLabelValues("Happy").Inc()
	if got := testutil.ToFloat64(a.CheckInsSubmitted.WithLabelValues("Happy")); got != before+1 {
		t.Errorf("CheckInsSubmitted = %v, want %v", got, before+1)
	}
}
