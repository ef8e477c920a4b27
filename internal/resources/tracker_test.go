package resources_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stegoctl/internal/resources"
)

func newTracker(t *testing.T) *resources.Tracker {
	t.Helper()
	tr, err := resources.NewTracker(t.TempDir(), nil)
	require.NoError(t, err)
	return tr
}

func TestCreateMaterializesFile(t *testing.T) {
	tr := newTracker(t)

	id, err := tr.Create([]byte("stego output"), "result.png")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	h, ok := tr.Get(id)
	require.True(t, ok)
	assert.Equal(t, int64(len("stego output")), h.Size)

	data, err := os.ReadFile(h.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("stego output"), data)
}

func TestRevokeIsIdempotent(t *testing.T) {
	tr := newTracker(t)

	id, err := tr.Create([]byte("x"), "a.png")
	require.NoError(t, err)
	h, _ := tr.Get(id)

	tr.Revoke(id)
	_, ok := tr.Get(id)
	assert.False(t, ok)
	assert.NoFileExists(t, h.Path)

	// Second revoke and unknown ids are no-ops, never errors.
	tr.Revoke(id)
	tr.Revoke("not-a-handle")
	assert.Zero(t, tr.Count())
}

func TestRevokeAllEmptiesTrackedSet(t *testing.T) {
	tr := newTracker(t)

	var paths []string
	for _, name := range []string{"a.png", "b.wav", "c.png"} {
		id, err := tr.Create([]byte(name), name)
		require.NoError(t, err)
		h, _ := tr.Get(id)
		paths = append(paths, h.Path)
	}
	require.Equal(t, 3, tr.Count())

	tr.RevokeAll()
	assert.Zero(t, tr.Count())
	for _, p := range paths {
		assert.NoFileExists(t, p)
	}
}

func TestCreateSameNameTwice(t *testing.T) {
	tr := newTracker(t)

	first, err := tr.Create([]byte("one"), "result.png")
	require.NoError(t, err)
	second, err := tr.Create([]byte("two"), "result.png")
	require.NoError(t, err)

	h1, _ := tr.Get(first)
	h2, _ := tr.Get(second)
	assert.NotEqual(t, h1.Path, h2.Path)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "photo.png", want: "photo.png"},
		{name: "path traversal", in: "../../etc/passwd", want: "passwd"},
		{name: "windows separators", in: `C:\temp\evil.png`, want: "C__temp_evil.png"},
		{name: "control characters", in: "bad\x00\x1fname.wav", want: "badname.wav"},
		{name: "empty", in: "", want: "output"},
		{name: "dot dot", in: "..", want: "output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resources.SanitizeName(tt.in))
		})
	}
}

func TestSanitizeNameCapsLength(t *testing.T) {
	long := make([]rune, 0, 400)
	for i := 0; i < 400; i++ {
		long = append(long, 'a')
	}
	got := resources.SanitizeName(string(long))
	assert.Len(t, got, resources.MaxFilenameLength)
}
