package operation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"stegoctl/internal/stego"
)

// Status is the lifecycle state of one operation handle.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusInFlight   Status = "in_flight"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Handle represents one in-flight request. It carries the cancellation
// token for the underlying exchange and makes exactly one terminal
// transition before being discarded; handles are never reused.
type Handle struct {
	mu        sync.RWMutex
	id        string
	kind      stego.Kind
	status    Status
	startTime time.Time
	endTime   *time.Time
	result    *Result
	err       error

	cancel context.CancelFunc
	done   chan struct{}
}

func newHandle(kind stego.Kind, cancel context.CancelFunc) *Handle {
	return &Handle{
		id:        uuid.NewString(),
		kind:      kind,
		status:    StatusIdle,
		startTime: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// ID returns the handle identifier.
func (h *Handle) ID() string { return h.id }

// Kind returns the operation kind this handle was started for.
func (h *Handle) Kind() stego.Kind { return h.kind }

// Status returns the current lifecycle state.
func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// IsTerminal reports whether the handle has reached its final state.
func (h *Handle) IsTerminal() bool {
	return h.Status().Terminal()
}

// Cancel triggers the cancellation token. Idempotent and safe to call at
// any time; a no-op once the handle is terminal.
func (h *Handle) Cancel() {
	h.cancel()
}

// Wait blocks until the handle reaches a terminal state.
func (h *Handle) Wait() {
	<-h.done
}

// Result returns the outcome after the terminal transition: the produced
// result on success, the typed operation error otherwise. Before the
// terminal transition both returns are nil.
func (h *Handle) Result() (*Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result, h.err
}

// Duration returns elapsed time, settling once the handle is terminal.
func (h *Handle) Duration() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.endTime != nil {
		return h.endTime.Sub(h.startTime)
	}
	return time.Since(h.startTime)
}

func (h *Handle) markValidating() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == StatusIdle {
		h.status = StatusValidating
	}
}

func (h *Handle) markInFlight() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == StatusValidating {
		h.status = StatusInFlight
	}
}

// terminate performs the single terminal transition. Later calls are
// ignored, which keeps completion, failure, and cancellation mutually
// exclusive however they race.
func (h *Handle) terminate(status Status, result *Result, err error) bool {
	h.mu.Lock()
	if h.status.Terminal() {
		h.mu.Unlock()
		return false
	}
	now := time.Now()
	h.status = status
	h.endTime = &now
	h.result = result
	h.err = err
	h.mu.Unlock()

	// Release the token so the context does not leak, then wake waiters.
	h.cancel()
	close(h.done)
	return true
}

func (h *Handle) complete(result *Result) bool {
	return h.terminate(StatusSucceeded, result, nil)
}

func (h *Handle) fail(err error) bool {
	return h.terminate(StatusFailed, nil, err)
}

func (h *Handle) markCancelled() bool {
	return h.terminate(StatusCancelled, nil, NewCancellationError())
}
