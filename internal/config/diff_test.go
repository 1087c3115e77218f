package config_test

import (
	"testing"

	"github.com/scrivano/scrivano/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		STT: config.STTConfig{
			Provider: config.ProviderEntry{Name: "whisper-native", Model: "m.bin"},
		},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if d.RecordingChanged {
		t.Error("expected RecordingChanged=false for identical configs")
	}
	if d.RestartRequired {
		t.Error("expected RestartRequired=false for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.RestartRequired {
		t.Error("log level change should not require a restart")
	}
}

func TestDiff_RecordingChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Recording: config.RecordingConfig{Enabled: false}}
	new := &config.Config{Recording: config.RecordingConfig{Enabled: true, Dir: "out"}}

	d := config.Diff(old, new)
	if !d.RecordingChanged {
		t.Error("expected RecordingChanged=true")
	}
	if !d.NewRecording.Enabled || d.NewRecording.Dir != "out" {
		t.Errorf("NewRecording = %+v", d.NewRecording)
	}
}

func TestDiff_ListenAddrRequiresRestart(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{ListenAddr: ":50051"}}
	new := &config.Config{Server: config.ServerConfig{ListenAddr: ":50052"}}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true for listen address change")
	}
}

func TestDiff_BackendRequiresRestart(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		STT: config.STTConfig{Provider: config.ProviderEntry{Name: "whisper-native", Model: "base.bin"}},
	}
	new := &config.Config{
		STT: config.STTConfig{Provider: config.ProviderEntry{Name: "whisper-native", Model: "small.bin"}},
	}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true for model change")
	}
}

func TestDiff_FallbackAddedRequiresRestart(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		STT: config.STTConfig{Provider: config.ProviderEntry{Name: "whisper-native", Model: "m.bin"}},
	}
	new := &config.Config{
		STT: config.STTConfig{
			Provider: config.ProviderEntry{Name: "whisper-native", Model: "m.bin"},
			Fallback: &config.ProviderEntry{Name: "mock"},
		},
	}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true when a fallback is added")
	}
}
