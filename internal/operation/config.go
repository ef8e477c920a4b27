package operation

// Input constraints enforced before any network call.
const (
	// DefaultMaxFileSize caps any input file at 50 MiB.
	DefaultMaxFileSize = 50 << 20
)

// defaultContainerExtensions is the allow-list for container and stego
// files: the image and audio formats the service's LSB backends accept.
var defaultContainerExtensions = []string{".png", ".bmp", ".tiff", ".tif", ".wav"}

// Config carries the controller's validation constraints.
type Config struct {
	// MaxFileSize is the per-file byte ceiling for any input.
	MaxFileSize int64
	// ContainerExtensions is the extension allow-list for container and
	// stego inputs. Secret payloads are unrestricted.
	ContainerExtensions []string
}

// NewConfig returns the default controller configuration.
func NewConfig() *Config {
	return &Config{
		MaxFileSize:         DefaultMaxFileSize,
		ContainerExtensions: append([]string(nil), defaultContainerExtensions...),
	}
}

func (c *Config) allowsContainer(ext string) bool {
	for _, allowed := range c.ContainerExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
