package codec_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stegoctl/internal/codec"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	rng := rand.New(rand.NewSource(int64(n)))
	_, err := rng.Read(data)
	require.NoError(t, err)
	return data
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "single byte", size: 1},
		{name: "below chunk threshold", size: 64 * 1024},
		{name: "exactly chunk threshold", size: codec.ChunkThreshold},
		{name: "unaligned above threshold", size: codec.ChunkThreshold + 7},
		{name: "multiple encode chunks", size: 2*codec.EncodeChunkSize + 11},
		{name: "multiple decode chunks", size: 3 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := randomBytes(t, tt.size)

			text, err := codec.Encode(context.Background(), bytes.NewReader(original), int64(tt.size))
			require.NoError(t, err)
			assert.Equal(t, base64.StdEncoding.EncodedLen(tt.size), len(text))

			obj, err := codec.Decode(context.Background(), text, "application/octet-stream")
			require.NoError(t, err)
			assert.Equal(t, original, obj.Bytes)
			assert.Equal(t, "application/octet-stream", obj.MIMEType)
			assert.Equal(t, int64(tt.size), obj.Size())
		})
	}
}

func TestEncodeMatchesStdlib(t *testing.T) {
	// The chunked path must produce byte-identical output to a single-pass
	// encode.
	original := randomBytes(t, codec.ChunkThreshold+123)

	text, err := codec.Encode(context.Background(), bytes.NewReader(original), int64(len(original)))
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(original), text)
}

func TestEncodeBytesEmpty(t *testing.T) {
	text, err := codec.EncodeBytes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestEncodeReadError(t *testing.T) {
	// Reader claims more data than it can deliver.
	short := bytes.NewReader(make([]byte, 100))

	_, err := codec.Encode(context.Background(), short, 200)
	require.Error(t, err)

	var readErr *codec.ReadError
	assert.ErrorAs(t, err, &readErr)
}

func TestEncodeReadErrorChunked(t *testing.T) {
	short := bytes.NewReader(make([]byte, codec.ChunkThreshold))

	_, err := codec.Encode(context.Background(), short, codec.ChunkThreshold+1)
	require.Error(t, err)

	var readErr *codec.ReadError
	assert.ErrorAs(t, err, &readErr)
}

func TestEncodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := randomBytes(t, codec.ChunkThreshold)
	_, err := codec.Encode(ctx, bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "non-alphabet characters", text: "????abcd"},
		{name: "length not multiple of four", text: "abcde"},
		{name: "padding in the middle", text: "QUJD" + strings.Repeat("A", codec.DecodeChunkSize-4) + "QQ==QUJD" + strings.Repeat("A", codec.DecodeChunkSize-8)},
		{name: "excess padding", text: "QQ======"},
		{name: "trailing newlines", text: "aGVsbG8=\r\n\r\n"},
		{name: "embedded whitespace", text: "aGVs\nbG8="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(context.Background(), tt.text, "")
			require.Error(t, err)

			var decodeErr *codec.DecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestDecodeCancelledBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text := base64.StdEncoding.EncodeToString(randomBytes(t, 2*1024*1024))
	_, err := codec.Decode(ctx, text, "image/png")
	assert.ErrorIs(t, err, context.Canceled)

	var decodeErr *codec.DecodeError
	assert.False(t, errors.As(err, &decodeErr), "cancellation must not be reported as a decode failure")
}
