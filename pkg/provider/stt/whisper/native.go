// Package whisper provides an stt.Transcriber backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/scrivano/scrivano/pkg/provider/stt"
)

const defaultLanguage = "en"

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber implements stt.Transcriber using whisper.cpp Go bindings.
// The model is loaded once at construction and shared across all sessions.
//
// whisper.cpp contexts are not thread-safe and the service runs one model
// instance for every session, so all inference is serialized behind a mutex.
type Transcriber struct {
	model    whisperlib.Model
	language string
	threads  int

	// mu serializes Process calls; only one inference may be in flight
	// across the whole process.
	mu sync.Mutex
}

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithLanguage sets the default recognition language code (e.g. "en", "de").
// A per-call stt.Options.Language overrides it. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// WithThreads sets the number of CPU threads whisper.cpp may use per
// inference. 0 lets the library pick.
func WithThreads(n int) Option {
	return func(t *Transcriber) { t.threads = n }
}

// New loads the whisper.cpp model from modelPath. Model loading is the only
// unrecoverable failure in the service: callers abort startup when New
// returns an error. The caller must call Close when the transcriber is no
// longer needed.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &Transcriber{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model.
func (t *Transcriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe runs whisper.cpp over one audio window and converts the native
// segments and tokens into stt values.
//
// Mapping notes: the bindings expose per-token probabilities but no
// segment-level no-speech estimate, so NoSpeechProb is reported as 0 and
// AvgLogProb is derived from the token probabilities. The VAD fields of
// opts have no native equivalent in this binding version and are ignored.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, opts stt.Options) ([]stt.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context cancelled: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	wctx, err := t.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	lang := opts.Language
	if lang == "" {
		lang = t.language
	}
	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
	}
	if opts.BeamSize > 0 {
		wctx.SetBeamSize(opts.BeamSize)
	}
	wctx.SetTokenTimestamps(opts.WordTimestamps)
	if opts.InitialPrompt != "" {
		wctx.SetInitialPrompt(opts.InitialPrompt)
	}
	if t.threads > 0 {
		wctx.SetThreads(uint(t.threads))
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var segments []stt.Segment
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		converted := convertSegment(seg, opts.WordTimestamps)
		if converted.Text == "" {
			continue
		}
		segments = append(segments, converted)
	}
	return segments, nil
}

// convertSegment maps a native whisper segment to an stt.Segment.
func convertSegment(seg whisperlib.Segment, wordTimestamps bool) stt.Segment {
	out := stt.Segment{
		Start: seg.Start.Seconds(),
		End:   seg.End.Seconds(),
		Text:  strings.TrimSpace(seg.Text),
	}

	var logSum float64
	var counted int
	for _, tok := range seg.Tokens {
		text := strings.TrimSpace(tok.Text)
		if text == "" || isSpecialToken(text) {
			continue
		}
		if tok.P > 0 {
			logSum += math.Log(float64(tok.P))
			counted++
		}
		if wordTimestamps {
			out.Words = append(out.Words, stt.Word{
				Start: tok.Start.Seconds(),
				End:   tok.End.Seconds(),
				Text:  text,
			})
		}
	}
	if counted > 0 {
		out.AvgLogProb = logSum / float64(counted)
	}
	return out
}

// isSpecialToken reports whether text is a whisper marker token such as
// [_BEG_] or <|endoftext|> rather than transcribed speech.
func isSpecialToken(text string) bool {
	return strings.HasPrefix(text, "[_") || strings.HasPrefix(text, "<|")
}
