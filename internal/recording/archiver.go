// Package recording archives full-session audio to WAV files on disk.
//
// Archiving is strictly best-effort: a failed write is reported to the caller
// for logging but must never take down the session or the server. The archive
// is written once, after the session ends, from the session's accumulated
// 16 kHz recording buffer.
package recording

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/scrivano/scrivano/pkg/audio"
)

// Archiver writes per-session WAV files into a target directory.
// Safe for concurrent use; each Save writes an independent file.
type Archiver struct {
	dir string
	log *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithLogger sets the logger used for archive outcomes.
func WithLogger(log *slog.Logger) Option {
	return func(a *Archiver) { a.log = log }
}

// withClock overrides the timestamp source in tests.
func withClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// NewArchiver creates an Archiver targeting dir. The directory is created on
// first save, not here, so a misconfigured path does not block startup.
func NewArchiver(dir string, opts ...Option) *Archiver {
	a := &Archiver{
		dir: dir,
		log: slog.Default(),
		now: time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Save writes samples (16 kHz mono) as a timestamped WAV file and returns the
// path written. Empty recordings are skipped without error. Failures are
// logged and returned; callers must treat them as non-fatal.
func (a *Archiver) Save(sessionID string, samples []float32) (string, error) {
	if len(samples) == 0 {
		a.log.Debug("skipping empty recording", "session", sessionID)
		return "", nil
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		a.log.Warn("cannot create recording directory", "dir", a.dir, "error", err)
		return "", fmt.Errorf("recording: create dir %q: %w", a.dir, err)
	}

	name := fmt.Sprintf("recording_%s.wav", a.now().Format("20060102_150405"))
	path := filepath.Join(a.dir, name)

	f, err := os.Create(path)
	if err != nil {
		a.log.Warn("cannot create recording file", "path", path, "error", err)
		return "", fmt.Errorf("recording: create %q: %w", path, err)
	}
	defer f.Close()

	if err := audio.WriteWAV(f, samples, audio.TargetRate); err != nil {
		a.log.Warn("cannot write recording", "path", path, "error", err)
		return "", fmt.Errorf("recording: write %q: %w", path, err)
	}

	a.log.Info("session recording saved",
		"session", sessionID,
		"path", path,
		"duration_seconds", float64(len(samples))/audio.TargetRate,
	)
	return path, nil
}
