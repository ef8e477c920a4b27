// Package quota gates new operations for anonymous sessions. It tracks a
// single persisted counter of successful anonymous operations since the
// last login and denies further work once a per-kind limit is reached,
// independent of any server-side authorization.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"stegoctl/internal/stego"
)

// Limits carries the fixed per-kind anonymous quotas.
type Limits struct {
	Hide    int
	Extract int
}

// Store persists the anonymous operation counter and the last observed
// authentication state across sessions.
type Store interface {
	LoadCounter(ctx context.Context) (int, error)
	SaveCounter(ctx context.Context, count int) error
	LoadSessionState(ctx context.Context) (bool, error)
	SaveSessionState(ctx context.Context, authenticated bool) error
}

// Gate enforces anonymous quotas. Denial is a pure in-memory check with no
// side effects, so it is safe to consult before any I/O.
type Gate struct {
	mu            sync.Mutex
	count         int
	authenticated bool
	limits        Limits
	store         Store
	logger        *slog.Logger
}

// NewGate loads the persisted counter and session state and returns a ready
// gate.
func NewGate(ctx context.Context, limits Limits, store Store, logger *slog.Logger) (*Gate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	count, err := store.LoadCounter(ctx)
	if err != nil {
		return nil, fmt.Errorf("quota: failed to load counter: %w", err)
	}
	authenticated, err := store.LoadSessionState(ctx)
	if err != nil {
		return nil, fmt.Errorf("quota: failed to load session state: %w", err)
	}
	return &Gate{
		count:         count,
		authenticated: authenticated,
		limits:        limits,
		store:         store,
		logger:        logger,
	}, nil
}

// Permits reports whether a new operation of the given kind may start.
// Authenticated sessions are never gated.
func (g *Gate) Permits(authenticated bool, kind stego.Kind) bool {
	if authenticated {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count < g.limit(kind)
}

// RecordSuccess counts one completed anonymous operation. Authenticated
// operations never advance the counter. The new value is persisted before
// returning.
func (g *Gate) RecordSuccess(ctx context.Context, authenticated bool) error {
	if authenticated {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
	if err := g.store.SaveCounter(ctx, g.count); err != nil {
		return fmt.Errorf("quota: failed to persist counter: %w", err)
	}
	g.logger.DebugContext(ctx, "quota_counter_incremented", slog.Int("count", g.count))
	return nil
}

// ObserveAuthentication records the authentication state seen on the latest
// profile check. The counter is reset only on the anonymous to authenticated
// flip, so repeated checks while signed in leave it alone; the observed
// state is persisted so the flip is detected once per login, not once per
// process.
func (g *Gate) ObserveAuthentication(ctx context.Context, authenticated bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if authenticated == g.authenticated {
		return nil
	}
	g.authenticated = authenticated
	if err := g.store.SaveSessionState(ctx, authenticated); err != nil {
		return fmt.Errorf("quota: failed to persist session state: %w", err)
	}
	if authenticated {
		return g.resetLocked(ctx)
	}
	return nil
}

// ResetOnAuthentication zeroes the counter. Called once per successful
// authentication transition.
func (g *Gate) ResetOnAuthentication(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resetLocked(ctx)
}

func (g *Gate) resetLocked(ctx context.Context) error {
	g.count = 0
	if err := g.store.SaveCounter(ctx, 0); err != nil {
		return fmt.Errorf("quota: failed to persist counter reset: %w", err)
	}
	g.logger.InfoContext(ctx, "quota_counter_reset")
	return nil
}

// Remaining returns how many anonymous operations of the given kind are
// still permitted.
func (g *Gate) Remaining(kind stego.Kind) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r := g.limit(kind) - g.count; r > 0 {
		return r
	}
	return 0
}

// Limit returns the configured quota for the given kind.
func (g *Gate) Limit(kind stego.Kind) int {
	return g.limit(kind)
}

func (g *Gate) limit(kind stego.Kind) int {
	if kind == stego.KindExtract {
		return g.limits.Extract
	}
	return g.limits.Hide
}
