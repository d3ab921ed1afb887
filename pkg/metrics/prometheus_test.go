package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordValuation("ok")
	r.RecordValuation("ok")
	r.RecordValuation("prediction_error")
	r.RecordClassification("Premium resale segment", "A+")
	r.RecordError("store")
	r.RecordEstimate("Toyota", 21000)
	r.RecordLatency("predict_seconds", 0.02)

	if got := testutil.ToFloat64(r.valuations.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok valuations, got %v", got)
	}
	if got := testutil.ToFloat64(r.classifications.WithLabelValues("Premium resale segment", "A+")); got != 1 {
		t.Fatalf("expected 1 classification, got %v", got)
	}
	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("store")); got != 1 {
		t.Fatalf("expected 1 store error, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 5 {
		t.Fatalf("expected 5 metric families, got %d", len(families))
	}
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
	New(nil)
}
