package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestForgetRun(t *testing.T) {
	TrainingSteps.WithLabelValues("run-a").Add(3)
	TrainingSteps.WithLabelValues("run-b").Inc()
	QuantizationError.WithLabelValues("run-a").Set(0.25)

	if got := testutil.ToFloat64(TrainingSteps.WithLabelValues("run-a")); got != 3 {
		t.Fatalf("steps = %v, want 3", got)
	}

	before := testutil.CollectAndCount(TrainingSteps)
	ForgetRun("run-a")
	if after := testutil.CollectAndCount(TrainingSteps); after != before-1 {
		t.Errorf("series count %d -> %d, want one fewer", before, after)
	}
	if n := testutil.CollectAndCount(QuantizationError); n != 0 {
		t.Errorf("quantization error series left behind: %d", n)
	}

	// other runs are untouched
	if got := testutil.ToFloat64(TrainingSteps.WithLabelValues("run-b")); got != 1 {
		t.Errorf("run-b steps = %v, want 1", got)
	}
	ForgetRun("run-b")
}
