package operation

import (
	"context"

	"stegoctl/internal/resources"
	"stegoctl/internal/stats"
	"stegoctl/internal/stego"
)

// Service is the remote steganography exchange, satisfied by *stego.Client.
type Service interface {
	Hide(ctx context.Context, req stego.HideRequest) (*stego.HideResponse, error)
	Extract(ctx context.Context, req stego.ExtractRequest) (*stego.ExtractResponse, error)
}

// Session reports the current authentication state, satisfied by
// *stego.Session.
type Session interface {
	Authenticated() bool
}

// UsageGate guards new operations against anonymous quotas, satisfied by
// *quota.Gate.
type UsageGate interface {
	Permits(authenticated bool, kind stego.Kind) bool
	RecordSuccess(ctx context.Context, authenticated bool) error
	Limit(kind stego.Kind) int
}

// Ledger records successful operations, satisfied by *stats.Ledger.
type Ledger interface {
	RecordOperation(ctx context.Context, kind stego.Kind, payloadSize int64, authenticated bool) ([]stats.Achievement, error)
}

// ResourceTracker owns the live download handles, satisfied by
// *resources.Tracker.
type ResourceTracker interface {
	Create(data []byte, name string) (string, error)
	Get(id string) (resources.Handle, bool)
	Revoke(id string)
	RevokeAll()
}

// ProgressSink receives lifecycle events from the controller. A
// progress-begin is emitted when an operation enters flight and exactly one
// progress-end follows on its terminal transition; operations rejected
// during validation emit neither.
type ProgressSink interface {
	OperationStarted(id string, kind stego.Kind)
	OperationFinished(id string, status Status, result *Result, err error)
}

// NopSink discards all progress events.
type NopSink struct{}

func (NopSink) OperationStarted(string, stego.Kind)              {}
func (NopSink) OperationFinished(string, Status, *Result, error) {}
