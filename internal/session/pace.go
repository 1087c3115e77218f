package session

// defaultWPM is assumed until enough speech has been finalized to measure
// the speaker.
const defaultWPM = 150

// minMeasuredSpeechSeconds is the amount of finalized speech required before
// the measured rate replaces [defaultWPM].
const minMeasuredSpeechSeconds = 5.0

// PaceStats tracks the session-wide speaking rate. Every finalization
// credits the word count and speech duration; the derived words-per-minute
// value drives all adaptive timing thresholds.
//
// Not safe for concurrent use; owned by the session goroutine.
type PaceStats struct {
	// TotalWordsFinalized is the number of words committed as final.
	TotalWordsFinalized int

	// TotalSpeechSeconds is the audio duration those words covered.
	TotalSpeechSeconds float64
}

// Add credits words finalized over seconds of speech. Durations below 100 ms
// are clamped up so that single short words cannot drive the rate estimate
// to infinity.
func (p *PaceStats) Add(words int, seconds float64) {
	p.TotalWordsFinalized += words
	p.TotalSpeechSeconds += max(0.1, seconds)
}

// WPM returns the measured words-per-minute rate, or [defaultWPM] while
// fewer than [minMeasuredSpeechSeconds] of speech have been finalized.
func (p *PaceStats) WPM() float64 {
	if p.TotalSpeechSeconds <= minMeasuredSpeechSeconds {
		return defaultWPM
	}
	return float64(p.TotalWordsFinalized) / (p.TotalSpeechSeconds / 60)
}
