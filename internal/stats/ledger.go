// Package stats maintains cumulative usage counters and the unlocked
// achievement set. Counters are monotonically non-decreasing, persisted
// locally after every mutation, and mirrored best-effort to the remote
// profile store when the session is authenticated.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"stegoctl/internal/stego"
)

// Stats are the cumulative usage counters.
type Stats struct {
	FilesProcessed       int64 `json:"filesProcessed"`
	DataHiddenBytes      int64 `json:"dataHidden"`
	SuccessfulOperations int64 `json:"successfulOperations"`
}

// Store persists stats and the unlocked achievement ids locally.
type Store interface {
	LoadStats(ctx context.Context) (Stats, []string, error)
	SaveStats(ctx context.Context, s Stats, unlocked []string) error
}

// Mirror pushes a stats snapshot to the remote profile store. Implemented
// by the stego service client.
type Mirror interface {
	SaveStats(ctx context.Context, payload stego.StatsPayload) error
}

// Ledger owns the process-wide stats state. Load-at-init, persist after
// every mutation; mirror failures are logged and swallowed.
type Ledger struct {
	mu       sync.Mutex
	stats    Stats
	unlocked []string
	seen     map[string]bool
	store    Store
	mirror   Mirror
	logger   *slog.Logger
}

// NewLedger loads persisted state and returns a ready ledger. mirror may be
// nil when no remote store is configured.
func NewLedger(ctx context.Context, store Store, mirror Mirror, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, unlocked, err := store.LoadStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: failed to load persisted stats: %w", err)
	}
	seen := make(map[string]bool, len(unlocked))
	for _, id := range unlocked {
		seen[id] = true
	}
	return &Ledger{
		stats:    s,
		unlocked: unlocked,
		seen:     seen,
		store:    store,
		mirror:   mirror,
		logger:   logger,
	}, nil
}

// RecordOperation counts one successful operation and returns any newly
// unlocked achievements. FilesProcessed and SuccessfulOperations always
// advance; DataHiddenBytes advances by payloadSize for hide operations
// only. Local persistence failures are returned; remote mirroring is
// best-effort and only attempted for authenticated sessions.
func (l *Ledger) RecordOperation(ctx context.Context, kind stego.Kind, payloadSize int64, authenticated bool) ([]Achievement, error) {
	l.mu.Lock()
	l.stats.FilesProcessed++
	l.stats.SuccessfulOperations++
	if kind == stego.KindHide && payloadSize > 0 {
		l.stats.DataHiddenBytes += payloadSize
	}

	fresh := EvaluateAchievements(l.stats, l.seen)
	for _, a := range fresh {
		l.seen[a.ID] = true
		l.unlocked = append(l.unlocked, a.ID)
	}

	snapshot := l.stats
	unlocked := append([]string(nil), l.unlocked...)
	l.mu.Unlock()

	if err := l.store.SaveStats(ctx, snapshot, unlocked); err != nil {
		return fresh, fmt.Errorf("stats: failed to persist: %w", err)
	}

	for _, a := range fresh {
		l.logger.InfoContext(ctx, "achievement_unlocked",
			slog.String("achievement_id", a.ID),
			slog.String("name", a.Name),
		)
	}

	if authenticated && l.mirror != nil {
		if err := l.mirror.SaveStats(ctx, stego.StatsPayload{
			FilesProcessed:       snapshot.FilesProcessed,
			DataHidden:           snapshot.DataHiddenBytes,
			SuccessfulOperations: snapshot.SuccessfulOperations,
			Achievements:         unlocked,
		}); err != nil {
			// Mirror failures never block local state or the user flow.
			l.logger.WarnContext(ctx, "stats_mirror_failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return fresh, nil
}

// Snapshot returns the current stats and unlocked achievement ids.
func (l *Ledger) Snapshot() (Stats, []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats, append([]string(nil), l.unlocked...)
}

// Level returns the current user tier label.
func (l *Ledger) Level() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return UserLevel(l.stats.FilesProcessed)
}
