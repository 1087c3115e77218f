// Package mock provides a scripted stt.Transcriber for tests and wiring
// checks. Each Transcribe call consumes the next scripted response; the mock
// records every call so tests can assert on submitted windows and prompts.
package mock

import (
	"context"
	"sync"

	"github.com/scrivano/scrivano/pkg/provider/stt"
)

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Call records one Transcribe invocation.
type Call struct {
	// Samples is the audio window that was submitted.
	Samples []float32

	// Opts is the options value that was submitted.
	Opts stt.Options
}

// Response is one scripted Transcribe result.
type Response struct {
	Segments []stt.Segment
	Err      error
}

// Transcriber is a scripted stt.Transcriber. Responses are consumed in order;
// once the script is exhausted every further call returns no segments (or
// Default, when set). Safe for concurrent use.
type Transcriber struct {
	mu    sync.Mutex
	queue []Response
	calls []Call

	// Default is returned after the scripted queue is exhausted.
	Default Response
}

// Enqueue appends scripted responses to the queue.
func (t *Transcriber) Enqueue(responses ...Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, responses...)
}

// Transcribe pops the next scripted response and records the call.
func (t *Transcriber) Transcribe(_ context.Context, samples []float32, opts stt.Options) ([]stt.Segment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cp := make([]float32, len(samples))
	copy(cp, samples)
	t.calls = append(t.calls, Call{Samples: cp, Opts: opts})

	if len(t.queue) == 0 {
		return t.Default.Segments, t.Default.Err
	}
	resp := t.queue[0]
	t.queue = t.queue[1:]
	return resp.Segments, resp.Err
}

// Calls returns a copy of all recorded calls.
func (t *Transcriber) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}

// CallCount returns the number of Transcribe invocations so far.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
