package operation

import (
	"path/filepath"

	"stegoctl/internal/stego"
)

// FileInput points at one payload file. Name optionally overrides the
// filename echoed to the service and into output naming; it defaults to
// the base of Path.
type FileInput struct {
	Path string
	Name string
}

// DisplayName returns the effective filename for the input.
func (f FileInput) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return filepath.Base(f.Path)
}

// Request describes one hide or extract operation. Hide requires Primary
// (the container), Secondary (the secret payload), and a concrete Method;
// Extract requires exactly Primary (the stego file).
type Request struct {
	Kind      stego.Kind   `validate:"required,oneof=hide extract"`
	Method    stego.Method `validate:"omitempty,oneof=lsb audio_lsb auto"`
	Primary   FileInput
	Secondary *FileInput
	Password  string `validate:"max=1024"`
}

// SizeMetrics reports the sizes involved in a completed operation, as
// confirmed by the service.
type SizeMetrics struct {
	InputSize   int64 `json:"input_size"`
	PayloadSize int64 `json:"payload_size"`
	OutputSize  int64 `json:"output_size"`
}

// Result is produced only on a successful terminal transition and is
// immutable once produced. HandleID references the tracked download
// resource holding the output bytes.
type Result struct {
	Kind            stego.Kind   `json:"kind"`
	Method          stego.Method `json:"method"`
	HandleID        string       `json:"handle_id"`
	OutputPath      string       `json:"output_path"`
	OutputName      string       `json:"output_name"`
	OutputExtension string       `json:"output_extension"`
	Metrics         SizeMetrics  `json:"metrics"`
}
