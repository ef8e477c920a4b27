// Package codec converts raw payload bytes to and from the base64 text
// representation the steganography service expects on the wire.
//
// Large payloads are processed in fixed-size chunks with the context checked
// between chunks, so multi-megabyte files neither pin a second full copy of
// themselves in flight nor stall cancellation until the transform finishes.
package codec

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const (
	// ChunkThreshold is the input size at or above which Encode switches
	// from the single-shot path to chunked streaming.
	ChunkThreshold = 1 << 20

	// EncodeChunkSize is a multiple of 3 so a chunk boundary never splits a
	// base64 quantum.
	EncodeChunkSize = 768 * 1024

	// DecodeChunkSize is a multiple of 4 for the same reason on the text
	// side.
	DecodeChunkSize = 1 << 20
)

// Object is a decoded binary payload tagged with a MIME hint for
// presentation.
type Object struct {
	Bytes    []byte
	MIMEType string
}

// Size returns the payload length in bytes.
func (o *Object) Size() int64 {
	if o == nil {
		return 0
	}
	return int64(len(o.Bytes))
}

// ReadError reports that the underlying input could not be read.
type ReadError struct {
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read input: %v", e.Cause)
}

func (e *ReadError) Unwrap() error { return e.Cause }

// DecodeError reports malformed base64 text: non-alphabet characters or
// invalid padding.
type DecodeError struct {
	Offset int
	Cause  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed base64 near offset %d: %v", e.Offset, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Encode reads size bytes from r and returns their standard base64
// encoding. Inputs at or above ChunkThreshold are streamed in
// EncodeChunkSize chunks with ctx checked between chunks; smaller inputs
// take a single-shot path. The output length is deterministic for a given
// size and bytes are never reordered or dropped.
func Encode(ctx context.Context, r io.Reader, size int64) (string, error) {
	if size < ChunkThreshold {
		data := make([]byte, size)
		if _, err := io.ReadFull(r, data); err != nil {
			return "", &ReadError{Cause: err}
		}
		return base64.StdEncoding.EncodeToString(data), nil
	}

	var sb strings.Builder
	sb.Grow(base64.StdEncoding.EncodedLen(int(size)))

	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	buf := make([]byte, EncodeChunkSize)
	var read int64
	for read < size {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		want := int64(len(buf))
		if remaining := size - read; remaining < want {
			want = remaining
		}
		n, err := io.ReadFull(r, buf[:want])
		if err != nil {
			return "", &ReadError{Cause: err}
		}
		if _, err := enc.Write(buf[:n]); err != nil {
			return "", &ReadError{Cause: err}
		}
		read += int64(n)
	}
	if err := enc.Close(); err != nil {
		return "", &ReadError{Cause: err}
	}
	return sb.String(), nil
}

// EncodeBytes encodes an in-memory payload. It shares Encode's chunking
// behavior via the same threshold.
func EncodeBytes(ctx context.Context, data []byte) (string, error) {
	return Encode(ctx, strings.NewReader(string(data)), int64(len(data)))
}

// Decode is the inverse of Encode. The text is processed in DecodeChunkSize
// slices with ctx checked between slices, so cancelling mid-decode stops
// promptly instead of completing the transform. The result is tagged with
// mimeHint. Malformed input fails with DecodeError; an interrupted decode
// returns the context's error.
func Decode(ctx context.Context, text string, mimeHint string) (*Object, error) {
	if len(text)%4 != 0 {
		return nil, &DecodeError{
			Offset: len(text),
			Cause:  base64.CorruptInputError(len(text)),
		}
	}

	out := make([]byte, 0, base64.StdEncoding.DecodedLen(len(text)))
	scratch := make([]byte, base64.StdEncoding.DecodedLen(DecodeChunkSize))
	for off := 0; off < len(text); off += DecodeChunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := off + DecodeChunkSize
		if end > len(text) {
			end = len(text)
		}
		chunk := text[off:end]
		// The stdlib decoder silently skips \r and \n; the wire format
		// carries none, so any byte outside the alphabet is malformed.
		for j := 0; j < len(chunk); j++ {
			if !base64Alphabet(chunk[j]) {
				return nil, &DecodeError{
					Offset: off + j,
					Cause:  base64.CorruptInputError(off + j),
				}
			}
		}
		// Padding is only legal in the final quantum of the whole text, so
		// an interior chunk containing '=' fails here exactly as a
		// single-pass decode would.
		n, err := base64.StdEncoding.Decode(scratch, []byte(chunk))
		if err != nil {
			return nil, &DecodeError{Offset: off, Cause: err}
		}
		if end < len(text) && n != len(chunk)/4*3 {
			// Short output from an interior chunk means it ended in padding.
			return nil, &DecodeError{Offset: end, Cause: base64.CorruptInputError(end)}
		}
		out = append(out, scratch[:n]...)
	}
	return &Object{Bytes: out, MIMEType: mimeHint}, nil
}

func base64Alphabet(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '+' || c == '/' || c == '=':
		return true
	}
	return false
}
