// Package session implements the streaming transcription state machine that
// sits between the audio ingress and the speech-to-text model.
//
// Each client stream owns one Session. The session buffers resampled audio
// for the current utterance, invokes the model once per second of new audio
// over a bounded sliding window, and turns the model's word-timestamped
// segments into a stream of partial and final transcription results. The
// hard part is deciding when a phrase is complete: boundaries adapt to the
// speaker's measured pace, splits are inhibited while speech is continuous,
// and common silence hallucinations are rejected.
//
// A Session is a single cooperative task: Run processes one chunk at a time
// and runs one analysis cycle at a time, so no two model invocations ever
// overlap for the same session. Sessions share nothing but the Transcriber.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scrivano/scrivano/internal/observe"
	"github.com/scrivano/scrivano/pkg/audio"
	"github.com/scrivano/scrivano/pkg/provider/stt"
)

// Session holds all per-stream state. Create with [New]; drive with [Run].
// All fields are owned by the Run goroutine — none of the state is shared.
type Session struct {
	id      string
	tr      stt.Transcriber
	opts    stt.Options
	log     *slog.Logger
	metrics *observe.Metrics
	ctx     context.Context

	// Utterance state.
	utterance                  [][]float32
	samplesInUtterance         int
	samplesSinceLastTranscribe int
	absoluteStartTime          float64

	// Stall detection.
	lastPartialText    string
	lastTextChangeTime float64

	// Emission ordering.
	lastEmittedStart float64

	history History
	pace    PaceStats

	consecutiveQuietIntervals int

	// recording archives the whole session in parallel with the utterance
	// buffer. Never consulted by the pipeline itself.
	recording       [][]float32
	recordedSamples int

	warnedResample bool
}

// Option configures a Session during construction.
type Option func(*Session)

// WithLogger sets the base logger. The session id is attached automatically.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithMetrics attaches metric instruments. Nil (the default) disables
// metric recording, which keeps tests free of global state.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTranscribeOptions overrides the decoding options passed to the model.
// The initial prompt field is overwritten each cycle from history.
func WithTranscribeOptions(opts stt.Options) Option {
	return func(s *Session) { s.opts = opts }
}

// New creates a Session around the given transcriber.
func New(tr stt.Transcriber, opts ...Option) *Session {
	s := &Session{
		id:   uuid.NewString(),
		tr:   tr,
		opts: stt.DefaultOptions(),
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("session", s.id)
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Recording returns the archived full-session audio at 16 kHz mono.
func (s *Session) Recording() []float32 {
	return concat(s.recording, s.recordedSamples)
}

// Run executes the session loop: read chunks from in until it closes or ctx
// is cancelled, emit results on out. When the input ends normally one last
// analysis pass runs with forced finalization enabled so a buffered
// remainder is not lost. Run never closes out; the caller owns it.
func (s *Session) Run(ctx context.Context, in <-chan Chunk, out chan<- Result) error {
	s.ctx = ctx
	s.log.Info("session started")
	if s.metrics != nil {
		s.metrics.SessionStarted(ctx)
		defer s.metrics.SessionEnded(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			// Cancellation: no final pass, no further yields.
			s.log.Info("session cancelled", "buffered_seconds", float64(s.samplesInUtterance)/targetRate)
			return ctx.Err()

		case chunk, ok := <-in:
			if !ok {
				// End of stream: flush whatever is still buffered.
				if s.samplesInUtterance > 0 {
					if err := s.deliver(ctx, out, s.cycle(ctx, true)); err != nil {
						return err
					}
				}
				s.log.Info("session finished",
					"words_finalized", s.pace.TotalWordsFinalized,
					"speech_seconds", s.pace.TotalSpeechSeconds,
				)
				return nil
			}

			s.ingest(chunk)
			if s.samplesSinceLastTranscribe < transcribeIntervalSamples {
				continue
			}
			s.samplesSinceLastTranscribe = 0

			if err := s.deliver(ctx, out, s.cycle(ctx, false)); err != nil {
				return err
			}
		}
	}
}

// ingest resamples one chunk to the canonical rate and appends it to the
// utterance and recording buffers.
func (s *Session) ingest(chunk Chunk) {
	rate := chunk.SampleRate
	if rate <= 0 {
		rate = targetRate
	}
	if rate != targetRate && !s.warnedResample {
		s.warnedResample = true
		s.log.Warn("resampling required", "received_rate", rate, "target_rate", targetRate)
	}

	samples := audio.Resample(chunk.Samples, rate)
	if len(samples) == 0 {
		return
	}

	s.utterance = append(s.utterance, samples)
	s.samplesInUtterance += len(samples)
	s.samplesSinceLastTranscribe += len(samples)

	s.recording = append(s.recording, samples)
	s.recordedSamples += len(samples)
}

// cycle runs one analysis pass: window selection, quiet gate, model call,
// and boundary analysis. It returns the results to emit; an error from the
// model is logged and swallowed so the stream continues with the buffer
// intact.
func (s *Session) cycle(ctx context.Context, force bool) []Result {
	fullAudio := concat(s.utterance, s.samplesInUtterance)
	win, windowOffset, totalDuration := window(fullAudio)
	if len(win) == 0 {
		return nil
	}

	// Quiet gate: skip the model on near-silent windows, but never skip
	// past the finalize/cleanup logic once silence has persisted or the
	// buffer has hit the safety cap.
	if audio.RMS(win) < rmsThreshold {
		s.consecutiveQuietIntervals++
		if !force && s.consecutiveQuietIntervals < 2 && s.samplesInUtterance < maxUtteranceSamples {
			if s.metrics != nil {
				s.metrics.QuietSkips.Add(ctx, 1)
			}
			return nil
		}
	} else {
		s.consecutiveQuietIntervals = 0
	}

	opts := s.opts
	opts.InitialPrompt = s.history.Prompt()

	start := time.Now()
	segments, err := s.tr.Transcribe(ctx, win, opts)
	if s.metrics != nil {
		s.metrics.RecordModelCall(ctx, time.Since(start), err)
	}
	if err != nil {
		// Transient by definition: the buffer is preserved and the cycle
		// naturally re-runs when the next second of audio arrives.
		s.log.Error("transcription failed", "error", err, "window_seconds", totalDuration-windowOffset)
		return nil
	}

	return s.analyze(segments, fullAudio, windowOffset, totalDuration, force)
}

// deliver pushes results to out in order, honouring cancellation.
func (s *Session) deliver(ctx context.Context, out chan<- Result, results []Result) error {
	for _, r := range results {
		select {
		case out <- r:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// concat flattens the fragment list into one contiguous slice of n samples.
func concat(fragments [][]float32, n int) []float32 {
	if len(fragments) == 1 {
		return fragments[0]
	}
	out := make([]float32, 0, n)
	for _, f := range fragments {
		out = append(out, f...)
	}
	return out
}
