package testutil

import (
	"testing"
	"time"
)

func TestHooksRecorder_CapturesSignals(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("agg.op", "success", 10*time.Millisecond)
	h.IncConflict("agg.op")
	h.IncRetry("agg.op")
	h.ObserveAttempts("agg.op", 2)
	h.IncEvent("enrolled")
	h.IncEvent("enrolled")

	if len(h.Operations) != 1 {
		t.Fatalf("expected 1 op event, got %d", len(h.Operations))
	}
	if h.Operations[0].Name != "agg.op" || h.Operations[0].Status != "success" {
		t.Fatalf("unexpected op event: %+v", h.Operations[0])
	}
	if len(h.Conflicts) != 1 || h.Conflicts[0] != "agg.op" {
		t.Fatalf("unexpected conflicts: %+v", h.Conflicts)
	}
	if h.RetryCount() != 1 || h.Retries[0] != "agg.op" {
		t.Fatalf("unexpected retries: %+v", h.Retries)
	}
	if got := h.Attempts["agg.op"]; len(got) != 1 || got[0] != 2 {
		t.Fatalf("unexpected attempts: %+v", h.Attempts)
	}
	if h.EventCount("enrolled") != 2 || h.EventCount("reviewed") != 0 {
		t.Fatalf("unexpected events: %+v", h.Events)
	}
}
