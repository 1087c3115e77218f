package session

// Chunk is one decoded inbound audio frame: float32 mono PCM at SampleRate.
// The transport layer decodes the wire bytes and drops malformed frames
// before a Chunk reaches the session.
type Chunk struct {
	// Samples is the PCM payload. Values are expected in [-1.0, 1.0].
	Samples []float32

	// SampleRate is the source rate in Hz. 0 means the canonical 16 000.
	SampleRate int
}

// Result is one transcription update emitted to the client.
type Result struct {
	// Text is the transcribed phrase.
	Text string `json:"text"`

	// IsFinal distinguishes irrevocable results from partial hypotheses
	// that later updates may supersede.
	IsFinal bool `json:"is_final"`

	// StartTime is seconds from session start to the beginning of the
	// phrase. Monotonically non-decreasing within a session.
	StartTime float64 `json:"start_time"`
}
