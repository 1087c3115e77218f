// Package config provides the configuration schema, loader, file watcher, and
// provider registry for the Scrivano transcription server.
package config

// LogLevel controls log verbosity for the Scrivano server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Scrivano.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	STT       STTConfig       `yaml:"stt"`
	Recording RecordingConfig `yaml:"recording"`
}

// ServerConfig holds network and logging settings for the Scrivano server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on. Defaults to
	// ":50051" when empty.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// DefaultListenAddr is used when server.listen_addr is not set.
const DefaultListenAddr = ":50051"

// Addr returns the configured listen address or [DefaultListenAddr].
func (s ServerConfig) Addr() string {
	if s.ListenAddr == "" {
		return DefaultListenAddr
	}
	return s.ListenAddr
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// STTConfig selects and tunes the speech-to-text backend.
type STTConfig struct {
	// Provider is the primary transcription backend.
	Provider ProviderEntry `yaml:"provider"`

	// Fallback, when set, is a secondary backend used after the primary's
	// circuit breaker opens.
	Fallback *ProviderEntry `yaml:"fallback"`
}

// ProviderEntry is the configuration block shared by all STT backends.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered backend implementation
	// (e.g., "whisper-native").
	Name string `yaml:"name"`

	// Model selects a specific model within the backend. For whisper-native
	// this is the path to a GGML model file.
	Model string `yaml:"model"`

	// Language is the expected speech language code (e.g., "en").
	// Empty means auto-detect.
	Language string `yaml:"language"`

	// Threads caps the CPU threads used for inference. Zero lets the
	// backend decide.
	Threads int `yaml:"threads"`

	// Options holds backend-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// RecordingConfig controls the per-session WAV archive.
type RecordingConfig struct {
	// Enabled turns session archiving on. Off by default.
	Enabled bool `yaml:"enabled"`

	// Dir is the directory WAV files are written to. Defaults to
	// "recordings" when empty.
	Dir string `yaml:"dir"`
}

// DefaultRecordingDir is used when recording.dir is not set.
const DefaultRecordingDir = "recordings"

// Path returns the configured recording directory or [DefaultRecordingDir].
func (r RecordingConfig) Path() string {
	if r.Dir == "" {
		return DefaultRecordingDir
	}
	return r.Dir
}
