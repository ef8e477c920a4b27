package stego

// Kind identifies the direction of a steganographic operation.
type Kind string

const (
	KindHide    Kind = "hide"
	KindExtract Kind = "extract"
)

// Method identifies the embedding technique interpreted by the remote service.
type Method string

const (
	MethodLSB      Method = "lsb"
	MethodAudioLSB Method = "audio_lsb"
	MethodAuto     Method = "auto"
)

// Valid reports whether k is a known operation kind.
func (k Kind) Valid() bool {
	return k == KindHide || k == KindExtract
}

// Valid reports whether m is a known embedding method.
func (m Method) Valid() bool {
	return m == MethodLSB || m == MethodAudioLSB || m == MethodAuto
}

// HideRequest is the body of POST /api/hide. Container and Secret carry
// base64-encoded file contents.
type HideRequest struct {
	Container        string `json:"container"`
	Secret           string `json:"secret"`
	Method           string `json:"method"`
	Password         string `json:"password"`
	OriginalFilename string `json:"original_filename,omitempty"`
	FileExtension    string `json:"file_extension,omitempty"`
}

// HideResponse is the service reply to a hide request. When Success is false
// only Error is meaningful.
type HideResponse struct {
	Success          bool   `json:"success"`
	Method           string `json:"method,omitempty"`
	StegoData        string `json:"stego_data,omitempty"`
	FileExtension    string `json:"file_extension,omitempty"`
	OriginalSize     int64  `json:"original_size,omitempty"`
	HiddenSize       int64  `json:"hidden_size,omitempty"`
	StegoSize        int64  `json:"stego_size,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	Error            string `json:"error,omitempty"`
}

// ExtractRequest is the body of POST /api/extract.
type ExtractRequest struct {
	Stego    string `json:"stego"`
	Password string `json:"password"`
}

// ExtractResponse is the service reply to an extract request.
type ExtractResponse struct {
	Success          bool   `json:"success"`
	Method           string `json:"method,omitempty"`
	ExtractedData    string `json:"extracted_data,omitempty"`
	ExtractedSize    int64  `json:"extracted_size,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	FileExtension    string `json:"file_extension,omitempty"`
	Error            string `json:"error,omitempty"`
}

// FileInfoRequest is the body of POST /api/file-info.
type FileInfoRequest struct {
	File     string `json:"file"`
	Filename string `json:"filename"`
}

// FileInfo describes a prospective container file as reported by the service.
// The service shapes this object per file type; unknown fields are zero.
type FileInfo struct {
	Type             string  `json:"type,omitempty"`
	Format           string  `json:"format,omitempty"`
	Size             int64   `json:"size,omitempty"`
	Width            int     `json:"width,omitempty"`
	Height           int     `json:"height,omitempty"`
	Mode             string  `json:"mode,omitempty"`
	Channels         int     `json:"channels,omitempty"`
	SampleRate       int     `json:"sample_rate,omitempty"`
	Duration         float64 `json:"duration,omitempty"`
	CapacityEstimate int64   `json:"capacity_estimate,omitempty"`
	Error            string  `json:"error,omitempty"`
}

// RemoteStats is the stats snapshot embedded in the /api/user profile.
// Field names are the camelCase keys the original frontend persisted.
type RemoteStats struct {
	FilesProcessed       int64    `json:"filesProcessed"`
	DataHidden           int64    `json:"dataHidden"`
	SuccessfulOperations int64    `json:"successfulOperations"`
	Achievements         []string `json:"achievements"`
}

// UserProfile is the reply to GET /api/user.
type UserProfile struct {
	LoggedIn bool         `json:"logged_in"`
	Name     string       `json:"name,omitempty"`
	Email    string       `json:"email,omitempty"`
	Picture  string       `json:"picture,omitempty"`
	Stats    *RemoteStats `json:"stats,omitempty"`
}

// StatsPayload is the body of POST /api/save-stats.
type StatsPayload struct {
	FilesProcessed       int64    `json:"filesProcessed"`
	DataHidden           int64    `json:"dataHidden"`
	SuccessfulOperations int64    `json:"successfulOperations"`
	Achievements         []string `json:"achievements"`
}
