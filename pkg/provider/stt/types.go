package stt

// Segment is one recognized span of speech within a transcription window.
// Timestamps are seconds relative to the start of the submitted window.
type Segment struct {
	// Start and End bound the segment within the window, in seconds.
	Start float64
	End   float64

	// Text is the recognized text, whitespace-trimmed by the backend.
	Text string

	// AvgLogProb is the mean log-probability of the segment's tokens.
	// More negative means less confident.
	AvgLogProb float64

	// NoSpeechProb is the model's probability that the segment contains no
	// speech at all. Backends that cannot estimate it report 0.
	NoSpeechProb float64

	// Words holds per-word detail when the backend supports word timestamps.
	// Nil or empty for backends that do not; callers must fall back to
	// segment-level handling in that case.
	Words []Word
}

// Word is a single word with its timing within the window.
type Word struct {
	// Start and End bound the word within the window, in seconds.
	Start float64
	End   float64

	// Text is the word including any attached punctuation.
	Text string
}

// Options carries the decoding knobs passed to every Transcribe call.
// The zero value is not useful; start from [DefaultOptions].
//
// Backends apply what they support and ignore the rest: a backend without a
// built-in VAD ignores the VAD fields, one without word timestamps ignores
// WordTimestamps and returns segments with empty Words.
type Options struct {
	// Language is the recognition language code (e.g. "en"). Empty lets the
	// backend use its default.
	Language string

	// InitialPrompt is the context string prepended to decoding. The session
	// builds it from recent finalized history; conditioning on the model's
	// own previous output is disabled in favour of this.
	InitialPrompt string

	// BeamSize is the decoder beam width. 1 = greedy.
	BeamSize int

	// VADFilter enables the backend's voice-activity pre-filter.
	VADFilter bool

	// MinSilenceMS is the VAD minimum silence duration, in milliseconds.
	MinSilenceMS int

	// SpeechPadMS is the VAD padding added around detected speech, in
	// milliseconds.
	SpeechPadMS int

	// WordTimestamps requests per-word timing in the returned segments.
	WordTimestamps bool

	// NoSpeechThreshold is the backend-side no-speech suppression threshold.
	NoSpeechThreshold float64

	// LogProbThreshold is the backend-side decode rejection threshold.
	LogProbThreshold float64

	// CompressionRatioThreshold rejects degenerate repetitive decodes.
	CompressionRatioThreshold float64

	// ConditionOnPreviousText enables model-level history conditioning.
	// The pipeline keeps this off and supplies InitialPrompt instead.
	ConditionOnPreviousText bool
}

// DefaultOptions returns the fixed decoding knobs used by the streaming
// pipeline: greedy decoding, VAD on (500 ms min silence, 200 ms pad), word
// timestamps on, and the standard confidence thresholds.
func DefaultOptions() Options {
	return Options{
		BeamSize:                  1,
		VADFilter:                 true,
		MinSilenceMS:              500,
		SpeechPadMS:               200,
		WordTimestamps:            true,
		NoSpeechThreshold:         0.6,
		LogProbThreshold:          -0.5,
		CompressionRatioThreshold: 2.4,
		ConditionOnPreviousText:   false,
	}
}
