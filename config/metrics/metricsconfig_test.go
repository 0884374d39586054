package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHelpersAreNoopsBeforeInit(t *testing.T) {
	if importTotal != nil {
		t.Skip("metrics already initialised")
	}
	ObserveImport(ResultSuccess, time.Second, 1, 1)
	AddWriteErrors(2)
	IncFallback()
	ObserveAggregate(time.Second)
}

func TestObserveImport(t *testing.T) {
	Init()
	Init()

	ObserveImport(ResultSuccess, 20*time.Millisecond, 10, 2)
	ObserveImport("", time.Millisecond, 0, 5)

	if got := testutil.ToFloat64(importTotal.WithLabelValues(ResultSuccess)); got != 1 {
		t.Fatalf("expected 1 successful import, got %v", got)
	}
	if got := testutil.ToFloat64(importTotal.WithLabelValues(ResultError)); got != 1 {
		t.Fatalf("expected empty result counted as error, got %v", got)
	}
	if got := testutil.ToFloat64(rowsTotal.WithLabelValues("skipped")); got != 7 {
		t.Fatalf("expected 7 skipped rows, got %v", got)
	}

	AddWriteErrors(0)
	AddWriteErrors(3)
	IncFallback()
	if got := testutil.ToFloat64(writeErrors); got != 3 {
		t.Fatalf("expected 3 write errors, got %v", got)
	}
	if got := testutil.ToFloat64(fallbackTotal); got != 1 {
		t.Fatalf("expected 1 fallback, got %v", got)
	}
}
