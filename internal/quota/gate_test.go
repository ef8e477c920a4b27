package quota_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stegoctl/internal/quota"
	"stegoctl/internal/stego"
)

type memStore struct {
	count      int
	loggedIn   bool
	saves      int
	stateSaves int
	loadErr    error
	saveErr    error
}

func (m *memStore) LoadCounter(context.Context) (int, error) {
	return m.count, m.loadErr
}

func (m *memStore) SaveCounter(_ context.Context, count int) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.count = count
	m.saves++
	return nil
}

func (m *memStore) LoadSessionState(context.Context) (bool, error) {
	return m.loggedIn, m.loadErr
}

func (m *memStore) SaveSessionState(_ context.Context, authenticated bool) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.loggedIn = authenticated
	m.stateSaves++
	return nil
}

func newGate(t *testing.T, store *memStore) *quota.Gate {
	t.Helper()
	g, err := quota.NewGate(context.Background(), quota.Limits{Hide: 3, Extract: 5}, store, nil)
	require.NoError(t, err)
	return g
}

func TestPermitsAuthenticatedAlways(t *testing.T) {
	g := newGate(t, &memStore{count: 1000})

	assert.True(t, g.Permits(true, stego.KindHide))
	assert.True(t, g.Permits(true, stego.KindExtract))
}

func TestPermitsAnonymousPerKindLimits(t *testing.T) {
	tests := []struct {
		name  string
		count int
		kind  stego.Kind
		want  bool
	}{
		{name: "hide below limit", count: 2, kind: stego.KindHide, want: true},
		{name: "hide at limit", count: 3, kind: stego.KindHide, want: false},
		{name: "extract below limit", count: 4, kind: stego.KindExtract, want: true},
		{name: "extract at limit", count: 5, kind: stego.KindExtract, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGate(t, &memStore{count: tt.count})
			assert.Equal(t, tt.want, g.Permits(false, tt.kind))
		})
	}
}

func TestRecordSuccessAnonymousOnly(t *testing.T) {
	store := &memStore{}
	g := newGate(t, store)

	require.NoError(t, g.RecordSuccess(context.Background(), true))
	assert.Zero(t, store.count, "authenticated operations never advance the counter")
	assert.Zero(t, store.saves)

	require.NoError(t, g.RecordSuccess(context.Background(), false))
	assert.Equal(t, 1, store.count)
	assert.Equal(t, 1, store.saves, "counter is flushed after every mutation")
}

func TestResetOnAuthentication(t *testing.T) {
	store := &memStore{count: 2}
	g := newGate(t, store)

	require.NoError(t, g.ResetOnAuthentication(context.Background()))
	assert.Zero(t, store.count)
	assert.True(t, g.Permits(false, stego.KindHide))
	assert.Equal(t, 3, g.Remaining(stego.KindHide))
}

func TestObserveAuthenticationResetsOnFlipOnly(t *testing.T) {
	store := &memStore{count: 2}
	g := newGate(t, store)

	// Anonymous to authenticated: reset once.
	require.NoError(t, g.ObserveAuthentication(context.Background(), true))
	assert.Zero(t, store.count)
	assert.True(t, store.loggedIn)
	assert.Equal(t, 1, store.saves)

	// Repeated checks while signed in leave everything alone.
	require.NoError(t, g.ObserveAuthentication(context.Background(), true))
	require.NoError(t, g.ObserveAuthentication(context.Background(), true))
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1, store.stateSaves)

	// Logout, a few anonymous operations, then a fresh login resets again.
	require.NoError(t, g.ObserveAuthentication(context.Background(), false))
	require.NoError(t, g.RecordSuccess(context.Background(), false))
	assert.Equal(t, 1, store.count)
	require.NoError(t, g.ObserveAuthentication(context.Background(), true))
	assert.Zero(t, store.count)
}

func TestObserveAuthenticationAlreadyAuthenticated(t *testing.T) {
	// The persisted state says the login was already seen; observing it
	// again on a later process run must not wipe the counter.
	store := &memStore{count: 2, loggedIn: true}
	g := newGate(t, store)

	require.NoError(t, g.ObserveAuthentication(context.Background(), true))
	assert.Equal(t, 2, store.count)
	assert.Zero(t, store.saves)
	assert.Zero(t, store.stateSaves)
}

func TestRemainingNeverNegative(t *testing.T) {
	g := newGate(t, &memStore{count: 10})
	assert.Zero(t, g.Remaining(stego.KindHide))
	assert.Zero(t, g.Remaining(stego.KindExtract))
}

func TestNewGateLoadFailure(t *testing.T) {
	_, err := quota.NewGate(context.Background(), quota.Limits{Hide: 3, Extract: 5},
		&memStore{loadErr: errors.New("disk gone")}, nil)
	assert.Error(t, err)
}

func TestRecordSuccessPersistFailure(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	g := newGate(t, store)

	err := g.RecordSuccess(context.Background(), false)
	assert.Error(t, err)
}
