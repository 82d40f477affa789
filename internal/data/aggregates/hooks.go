package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/coursemarket-backend/internal/observability"
)

// Hooks captures aggregate-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
	// ObserveAttempts records how many transaction attempts a retried write needed.
	ObserveAttempts(name string, attempts int)
	// IncEvent counts a committed ledger event (enrollment, review, toggle).
	IncEvent(event string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) ObserveAttempts(string, int)                    {}
func (noopHooks) IncEvent(string)                                {}

type observabilityHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks creates aggregate hooks backed by observability metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &observabilityHooks{metrics: metrics}
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.IncAggregateConflict(strings.TrimSpace(name))
}

func (h *observabilityHooks) IncRetry(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.IncAggregateRetry(strings.TrimSpace(name))
}

// ObserveAttempts only has a histogram for the toggle path today.
func (h *observabilityHooks) ObserveAttempts(name string, attempts int) {
	if h == nil || h.metrics == nil {
		return
	}
	if strings.TrimSpace(name) == opToggleLesson {
		h.metrics.ObserveToggleAttempts(attempts)
	}
}

func (h *observabilityHooks) IncEvent(event string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.IncLedgerEvent(strings.TrimSpace(event))
}
