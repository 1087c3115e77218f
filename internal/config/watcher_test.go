package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scrivano/scrivano/internal/config"
)

func watcherYAML(level string) string {
	return `
server:
  log_level: ` + level + `
stt:
  provider:
    name: whisper-native
    model: models/ggml-base.en.bin
`
}

// startWatcher writes an initial config file and starts a fast-polling
// watcher over it, returning the file path, the watcher, and a channel that
// receives every onChange invocation.
func startWatcher(t *testing.T) (string, *config.Watcher, chan [2]*config.Config) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, watcherYAML("info"))

	changes := make(chan [2]*config.Config, 4)
	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		changes <- [2]*config.Config{old, new}
	}, config.WithInterval(25*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return path, w, changes
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()

	_, w, _ := startWatcher(t)
	cfg := w.Current()
	if cfg == nil || cfg.Server.LogLevel != config.LogInfo {
		t.Fatalf("Current() = %+v, want initial info config", cfg)
	}
}

func TestWatcher_InitialLoadFailure(t *testing.T) {
	t.Parallel()

	if _, err := config.NewWatcher("/nonexistent/config.yaml", nil); err == nil {
		t.Fatal("NewWatcher over a missing file returned nil error")
	}
}

func TestWatcher_ValidEditFiresCallback(t *testing.T) {
	t.Parallel()

	path, w, changes := startWatcher(t)
	writeConfig(t, path, watcherYAML("debug"))

	select {
	case ch := <-changes:
		if ch[0].Server.LogLevel != config.LogInfo {
			t.Errorf("old level = %q, want info", ch[0].Server.LogLevel)
		}
		if ch[1].Server.LogLevel != config.LogDebug {
			t.Errorf("new level = %q, want debug", ch[1].Server.LogLevel)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("change was never observed")
	}

	if got := w.Current().Server.LogLevel; got != config.LogDebug {
		t.Errorf("Current() level = %q, want debug", got)
	}
}

func TestWatcher_InvalidEditIsIgnored(t *testing.T) {
	t.Parallel()

	path, w, changes := startWatcher(t)
	writeConfig(t, path, watcherYAML("bananas"))

	time.Sleep(200 * time.Millisecond)
	select {
	case ch := <-changes:
		t.Fatalf("invalid edit fired callback: %+v", ch)
	default:
	}
	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("Current() level = %q, want old info config retained", got)
	}
}

func TestWatcher_TouchWithoutEdit(t *testing.T) {
	t.Parallel()

	path, _, changes := startWatcher(t)

	later := time.Now().Add(time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("touch: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	select {
	case <-changes:
		t.Fatal("mtime-only change fired callback")
	default:
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	_, w, _ := startWatcher(t)

	// Repeated stops must not panic or block.
	w.Stop()
	w.Stop()
	w.Stop()
}
