package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveProvider(t *testing.T) {
	okBefore := testutil.ToFloat64(providerCallsTotal.WithLabelValues("speechace", "score", "success"))
	errBefore := testutil.ToFloat64(providerCallsTotal.WithLabelValues("speechace", "score", "error"))

	_ = ObserveProvider("speechace", "score", func() error { return nil })
	err := ObserveProvider("speechace", "score", func() error { return errors.New("timeout") })
	if err == nil || err.Error() != "timeout" {
		t.Fatalf("ObserveProvider returned %v", err)
	}

	if got := testutil.ToFloat64(providerCallsTotal.WithLabelValues("speechace", "score", "success")); got != okBefore+1 {
		t.Errorf("success count = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(providerCallsTotal.WithLabelValues("speechace", "score", "error")); got != errBefore+1 {
		t.Errorf("error count = %v, want %v", got, errBefore+1)
	}
}

func TestRecordFeedbackFallback(t *testing.T) {
	before := testutil.ToFloat64(feedbackFallbacks.WithLabelValues("parse"))
	RecordFeedbackFallback("parse")
	if got := testutil.ToFloat64(feedbackFallbacks.WithLabelValues("parse")); got != before+1 {
		t.Errorf("fallbacks = %v, want %v", got, before+1)
	}
}
