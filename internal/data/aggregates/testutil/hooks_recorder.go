package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/coursemarket-backend/internal/data/aggregates"
)

// HooksRecorder captures aggregate hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []string
	Retries    []string
	Attempts   map[string][]int
	Events     map[string]int
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{
		Name:     name,
		Status:   status,
		Duration: dur,
	})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}

func (h *HooksRecorder) ObserveAttempts(name string, attempts int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Attempts == nil {
		h.Attempts = map[string][]int{}
	}
	h.Attempts[name] = append(h.Attempts[name], attempts)
}

func (h *HooksRecorder) IncEvent(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Events == nil {
		h.Events = map[string]int{}
	}
	h.Events[event]++
}

// EventCount is safe to call while writers are still running.
func (h *HooksRecorder) EventCount(event string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Events[event]
}

func (h *HooksRecorder) RetryCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Retries)
}
