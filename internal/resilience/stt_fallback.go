package resilience

import (
	"context"

	"github.com/scrivano/scrivano/pkg/provider/stt"
)

// STTFallback implements [stt.Transcriber] with automatic failover across
// multiple STT backends. Each backend has its own circuit breaker, so a
// primary that keeps timing out is bypassed in favour of the fallback until
// its breaker half-opens again.
type STTFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

// Compile-time interface assertion.
var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional transcriber as a fallback.
func (f *STTFallback) AddFallback(name string, tr stt.Transcriber) {
	f.group.AddFallback(name, tr)
}

// Transcribe runs the window against the first healthy backend. If the
// primary fails, subsequent fallbacks are tried within the same call so the
// session's analysis cycle is not lost.
func (f *STTFallback) Transcribe(ctx context.Context, samples []float32, opts stt.Options) ([]stt.Segment, error) {
	return ExecuteWithResult(f.group, func(tr stt.Transcriber) ([]stt.Segment, error) {
		return tr.Transcribe(ctx, samples, opts)
	})
}
