package operation_test

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stegoctl/internal/operation"
	"stegoctl/internal/quota"
	"stegoctl/internal/resources"
	"stegoctl/internal/stego"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status operation.Status
		want   bool
	}{
		{operation.StatusIdle, false},
		{operation.StatusValidating, false},
		{operation.StatusInFlight, false},
		{operation.StatusSucceeded, true},
		{operation.StatusFailed, true},
		{operation.StatusCancelled, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.Terminal(), "status %s", tt.status)
	}
}

func TestHandlesAreNeverReused(t *testing.T) {
	f := newFixture(t, &fakeService{extractResp: &stego.ExtractResponse{
		Success:       true,
		ExtractedData: "aGVsbG8=",
	}}, false)
	path := f.writeFile(t, "stego.png", 2048)

	req := operation.Request{Kind: stego.KindExtract, Primary: operation.FileInput{Path: path}}

	first, err := f.controller.Start(context.Background(), req)
	require.NoError(t, err)
	first.Wait()

	second, err := f.controller.Start(context.Background(), req)
	require.NoError(t, err)
	second.Wait()

	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, operation.StatusSucceeded, first.Status(), "terminal states are final")
	assert.Equal(t, operation.StatusSucceeded, second.Status())
}

// counterStore is an in-memory quota.Store for exercising the real gate.
type counterStore struct {
	count    int
	loggedIn bool
}

func (s *counterStore) LoadCounter(context.Context) (int, error) { return s.count, nil }
func (s *counterStore) SaveCounter(_ context.Context, c int) error {
	s.count = c
	return nil
}
func (s *counterStore) LoadSessionState(context.Context) (bool, error) { return s.loggedIn, nil }
func (s *counterStore) SaveSessionState(_ context.Context, authenticated bool) error {
	s.loggedIn = authenticated
	return nil
}

func TestAnonymousQuotaBoundary(t *testing.T) {
	// Counter at limit-1: the operation runs, consumes the last slot, and
	// produces a tracked resource. The next attempt is denied locally.
	store := &counterStore{count: 2}
	gate, err := quota.NewGate(context.Background(), quota.Limits{Hide: 3, Extract: 5}, store, nil)
	require.NoError(t, err)

	tracker, err := resources.NewTracker(t.TempDir(), nil)
	require.NoError(t, err)

	output := []byte("stego bytes")
	service := &fakeService{hideResp: &stego.HideResponse{
		Success:       true,
		Method:        "lsb",
		StegoData:     base64.StdEncoding.EncodeToString(output),
		FileExtension: ".png",
		OriginalSize:  2000000,
		HiddenSize:    10000,
		StegoSize:     int64(len(output)),
	}}
	ledger := &fakeLedger{}
	f := newFixture(t, service, false)
	c := operation.NewController(operation.Deps{
		Service: service,
		Gate:    gate,
		Ledger:  ledger,
		Tracker: tracker,
		Session: fakeSession{},
		Sink:    operation.NopSink{},
	}, nil, nil)

	req := operation.Request{
		Kind:      stego.KindHide,
		Method:    stego.MethodLSB,
		Primary:   operation.FileInput{Path: f.writeFile(t, "photo.png", 2000000)},
		Secondary: &operation.FileInput{Path: f.writeFile(t, "secret.txt", 10000)},
	}

	h, err := c.Start(context.Background(), req)
	require.NoError(t, err)
	h.Wait()

	require.Equal(t, operation.StatusSucceeded, h.Status())
	assert.Equal(t, 3, store.count, "counter reaches the limit")
	assert.Equal(t, 1, tracker.Count())
	result, _ := h.Result()
	require.NotNil(t, result)
	assert.Equal(t, int64(len(output)), result.Metrics.OutputSize)
	require.Len(t, ledger.recorded(), 1)

	// Counter now at the limit: denied with no side effects.
	denied, err := c.Start(context.Background(), req)
	require.Error(t, err)
	assert.True(t, operation.IsQuotaExceeded(err))
	assert.Equal(t, operation.StatusFailed, denied.Status())
	assert.Equal(t, 3, store.count, "denial never touches the counter")
	hides, _ := service.calls()
	assert.Equal(t, 1, hides, "the denied attempt performed no network I/O")
}
