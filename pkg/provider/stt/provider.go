// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A Transcriber maps a single window of 16 kHz mono float32 PCM to a list of
// Segments with word-level timestamps and confidence scores. It is a
// single-pass, model-per-window abstraction: the streaming state machine in
// internal/session decides when to invoke it, what audio to submit, and what
// to do with the result. Implementations must be safe for concurrent use;
// backends that require mutual exclusion (a single GPU context, a non
// thread-safe native library) must serialize calls internally.
package stt

import "context"

// Transcriber is the abstraction over any STT backend.
type Transcriber interface {
	// Transcribe runs the model over one audio window. samples must be
	// 16 kHz mono float32 PCM in [-1.0, 1.0]. The returned segments carry
	// timestamps relative to the start of the window.
	//
	// A nil error with zero segments is a valid outcome (the model heard
	// nothing). Errors are transient from the caller's point of view: the
	// session logs them, skips the cycle, and retries on the next trigger.
	Transcribe(ctx context.Context, samples []float32, opts Options) ([]Segment, error)
}
