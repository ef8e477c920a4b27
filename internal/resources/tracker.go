// Package resources owns the set of live download handles produced by
// successful operations. Each handle maps an opaque identifier to a
// materialized output file; releasing a handle removes the file. Release is
// idempotent and a stale-handle sweep runs whenever a new operation begins,
// so no output from a cancelled or superseded operation stays reachable.
package resources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

// MaxFilenameLength caps sanitized filenames before they are echoed back
// into paths or presentation.
const MaxFilenameLength = 120

// Handle describes one live tracked resource.
type Handle struct {
	ID   string
	Name string
	Path string
	Size int64
}

// Tracker records every externally visible output file created during
// result presentation. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	dir    string
	live   map[string]Handle
	logger *slog.Logger
}

// NewTracker creates a tracker that materializes outputs under dir,
// creating it if needed.
func NewTracker(dir string, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("resources: failed to create results dir: %w", err)
	}
	return &Tracker{
		dir:    dir,
		live:   make(map[string]Handle),
		logger: logger,
	}, nil
}

// Create writes data to a new file named after the sanitized name, records
// the handle as live, and returns its identifier. The file carries a short
// handle prefix so repeated outputs with the same name never collide.
func (t *Tracker) Create(data []byte, name string) (string, error) {
	id := uuid.NewString()
	filename := fmt.Sprintf("%s_%s", id[:8], SanitizeName(name))
	path := filepath.Join(t.dir, filename)

	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("resources: failed to write output file: %w", err)
	}

	t.mu.Lock()
	t.live[id] = Handle{ID: id, Name: filename, Path: path, Size: int64(len(data))}
	t.mu.Unlock()

	t.logger.Debug("resource_created",
		slog.String("handle_id", id),
		slog.String("path", path),
		slog.Int("size", len(data)),
	)
	return id, nil
}

// Get returns the handle for id, if it is still live.
func (t *Tracker) Get(id string) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.live[id]
	return h, ok
}

// Revoke releases the handle and removes its file. Revoking an unknown or
// already-revoked id is a no-op.
func (t *Tracker) Revoke(id string) {
	t.mu.Lock()
	h, ok := t.live[id]
	if ok {
		delete(t.live, id)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		t.logger.Warn("resource_remove_failed",
			slog.String("handle_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// RevokeAll releases every live handle. Called when an operation is
// cancelled or a new one supersedes the previous result set.
func (t *Tracker) RevokeAll() {
	t.mu.Lock()
	handles := make([]Handle, 0, len(t.live))
	for _, h := range t.live {
		handles = append(handles, h)
	}
	t.live = make(map[string]Handle)
	t.mu.Unlock()

	for _, h := range handles {
		if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
			t.logger.Warn("resource_remove_failed",
				slog.String("handle_id", h.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Count returns the number of live handles.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// SanitizeName strips path separators and control characters from a
// filename supplied by the user or echoed back by the service, and caps its
// length. An empty result falls back to "output".
func SanitizeName(name string) string {
	name = filepath.Base(name)
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':':
			sb.WriteRune('_')
		case unicode.IsControl(r):
			// dropped
		default:
			sb.WriteRune(r)
		}
	}
	clean := sb.String()
	if runes := []rune(clean); len(runes) > MaxFilenameLength {
		clean = string(runes[:MaxFilenameLength])
	}
	clean = strings.TrimSpace(clean)
	if clean == "" || clean == "." || clean == ".." {
		return "output"
	}
	return clean
}
