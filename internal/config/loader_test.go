package config_test

import (
	"strings"
	"testing"

	"github.com/scrivano/scrivano/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8090"
  log_level: debug
stt:
  provider:
    name: whisper-native
    model: models/ggml-base.en.bin
    language: en
    threads: 4
  fallback:
    name: mock
recording:
  enabled: true
  dir: /tmp/sessions
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr() != ":8090" {
		t.Errorf("Addr() = %q, want %q", cfg.Server.Addr(), ":8090")
	}
	if cfg.STT.Provider.Model != "models/ggml-base.en.bin" {
		t.Errorf("provider model = %q", cfg.STT.Provider.Model)
	}
	if cfg.STT.Fallback == nil || cfg.STT.Fallback.Name != "mock" {
		t.Errorf("fallback = %+v, want mock", cfg.STT.Fallback)
	}
	if !cfg.Recording.Enabled || cfg.Recording.Path() != "/tmp/sessions" {
		t.Errorf("recording = %+v", cfg.Recording)
	}
}

func TestValidate_ProviderNameRequired(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: info
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing stt.provider.name, got nil")
	}
	if !strings.Contains(err.Error(), "stt.provider.name") {
		t.Errorf("error should mention stt.provider.name, got: %v", err)
	}
}

func TestValidate_WhisperNativeRequiresModel(t *testing.T) {
	t.Parallel()
	yaml := `
stt:
  provider:
    name: whisper-native
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for whisper-native without model, got nil")
	}
	if !strings.Contains(err.Error(), "model") {
		t.Errorf("error should mention model, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
stt:
  provider:
    name: mock
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_TLSRequiresBothFiles(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  tls:
    cert_file: cert.pem
stt:
  provider:
    name: mock
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for TLS without key file, got nil")
	}
	if !strings.Contains(err.Error(), "key_file") {
		t.Errorf("error should mention key_file, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
stt:
  provider:
    name: whisper-native
    threads: -2
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
	if !strings.Contains(errStr, "model") {
		t.Errorf("error should mention model, got: %v", err)
	}
	if !strings.Contains(errStr, "threads") {
		t.Errorf("error should mention threads, got: %v", err)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	yaml := `
stt:
  provider:
    name: mock
    modle: typo.bin
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	yaml := `
stt:
  provider:
    name: mock
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr() != config.DefaultListenAddr {
		t.Errorf("Addr() = %q, want %q", cfg.Server.Addr(), config.DefaultListenAddr)
	}
	if cfg.Recording.Path() != config.DefaultRecordingDir {
		t.Errorf("Path() = %q, want %q", cfg.Recording.Path(), config.DefaultRecordingDir)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	found := false
	for _, n := range config.ValidProviderNames {
		if n == "whisper-native" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames should contain \"whisper-native\"")
	}
}
