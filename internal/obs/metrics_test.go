package obs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFetchMetrics(t *testing.T) {
	before := testutil.ToFloat64(fetchTotal.WithLabelValues("inventory", OutcomeSuccess))
	ObserveFetch("inventory", OutcomeSuccess, 120*time.Millisecond)
	after := testutil.ToFloat64(fetchTotal.WithLabelValues("inventory", OutcomeSuccess))
	if after != before+1 {
		t.Fatalf("fetch counter: %v -> %v", before, after)
	}

	beforeFB := testutil.ToFloat64(fallbackServes.WithLabelValues("inventory"))
	CountFallback("inventory")
	if got := testutil.ToFloat64(fallbackServes.WithLabelValues("inventory")); got != beforeFB+1 {
		t.Fatalf("fallback counter: %v -> %v", beforeFB, got)
	}
}
