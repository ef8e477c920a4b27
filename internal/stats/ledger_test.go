package stats_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stegoctl/internal/stats"
	"stegoctl/internal/stego"
)

type memStore struct {
	stats    stats.Stats
	unlocked []string
	saves    int
	saveErr  error
}

func (m *memStore) LoadStats(context.Context) (stats.Stats, []string, error) {
	return m.stats, m.unlocked, nil
}

func (m *memStore) SaveStats(_ context.Context, s stats.Stats, unlocked []string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stats = s
	m.unlocked = unlocked
	m.saves++
	return nil
}

type memMirror struct {
	calls    int
	last     stego.StatsPayload
	failWith error
}

func (m *memMirror) SaveStats(_ context.Context, payload stego.StatsPayload) error {
	m.calls++
	m.last = payload
	return m.failWith
}

func newLedger(t *testing.T, store *memStore, mirror stats.Mirror) *stats.Ledger {
	t.Helper()
	l, err := stats.NewLedger(context.Background(), store, mirror, nil)
	require.NoError(t, err)
	return l
}

func TestRecordOperationCounters(t *testing.T) {
	store := &memStore{}
	l := newLedger(t, store, nil)

	_, err := l.RecordOperation(context.Background(), stego.KindHide, 4096, false)
	require.NoError(t, err)
	_, err = l.RecordOperation(context.Background(), stego.KindExtract, 0, false)
	require.NoError(t, err)

	got, _ := l.Snapshot()
	assert.Equal(t, int64(2), got.FilesProcessed)
	assert.Equal(t, int64(4096), got.DataHiddenBytes, "extract never advances hidden bytes")
	assert.Equal(t, int64(2), got.SuccessfulOperations)
	assert.Equal(t, 2, store.saves, "persisted after every mutation")
}

func TestRecordOperationUnlocksFirstOperation(t *testing.T) {
	l := newLedger(t, &memStore{}, nil)

	fresh, err := l.RecordOperation(context.Background(), stego.KindExtract, 0, false)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, stats.AchievementFirstOperation, fresh[0].ID)

	// Unlocked ids are never reported as new again.
	fresh, err = l.RecordOperation(context.Background(), stego.KindExtract, 0, false)
	require.NoError(t, err)
	for _, a := range fresh {
		assert.NotEqual(t, stats.AchievementFirstOperation, a.ID)
	}
}

func TestRecordOperationUnlocksDataTiers(t *testing.T) {
	l := newLedger(t, &memStore{}, nil)

	fresh, err := l.RecordOperation(context.Background(), stego.KindHide, 11<<20, false)
	require.NoError(t, err)

	ids := make([]string, len(fresh))
	for i, a := range fresh {
		ids[i] = a.ID
	}
	assert.Contains(t, ids, stats.AchievementDataHidden1MB)
	assert.Contains(t, ids, stats.AchievementDataHidden10MB)
}

func TestMirrorOnlyWhenAuthenticated(t *testing.T) {
	mirror := &memMirror{}
	l := newLedger(t, &memStore{}, mirror)

	_, err := l.RecordOperation(context.Background(), stego.KindHide, 10, false)
	require.NoError(t, err)
	assert.Zero(t, mirror.calls)

	_, err = l.RecordOperation(context.Background(), stego.KindHide, 10, true)
	require.NoError(t, err)
	require.Equal(t, 1, mirror.calls)
	assert.Equal(t, int64(2), mirror.last.FilesProcessed)
	assert.Equal(t, int64(20), mirror.last.DataHidden)
	assert.Contains(t, mirror.last.Achievements, stats.AchievementFirstOperation)
}

func TestMirrorFailureSwallowed(t *testing.T) {
	mirror := &memMirror{failWith: errors.New("service unavailable")}
	store := &memStore{}
	l := newLedger(t, store, mirror)

	_, err := l.RecordOperation(context.Background(), stego.KindHide, 10, true)
	assert.NoError(t, err, "mirror failures never surface")
	assert.Equal(t, 1, store.saves, "local persistence unaffected")
}

func TestLocalPersistFailureSurfaces(t *testing.T) {
	l := newLedger(t, &memStore{saveErr: errors.New("disk full")}, nil)

	_, err := l.RecordOperation(context.Background(), stego.KindHide, 10, false)
	assert.Error(t, err)
}

func TestLedgerLoadsPersistedState(t *testing.T) {
	store := &memStore{
		stats:    stats.Stats{FilesProcessed: 9, SuccessfulOperations: 9},
		unlocked: []string{stats.AchievementFirstOperation},
	}
	l := newLedger(t, store, nil)

	fresh, err := l.RecordOperation(context.Background(), stego.KindExtract, 0, false)
	require.NoError(t, err)

	ids := make([]string, len(fresh))
	for i, a := range fresh {
		ids[i] = a.ID
	}
	assert.Contains(t, ids, stats.AchievementOperations10)
	assert.Contains(t, ids, stats.AchievementPerfectionist)
	assert.NotContains(t, ids, stats.AchievementFirstOperation)
}
