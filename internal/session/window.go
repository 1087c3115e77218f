package session

import "github.com/scrivano/scrivano/pkg/audio"

const (
	// targetRate is the canonical pipeline sample rate in Hz.
	targetRate = audio.TargetRate

	// transcribeIntervalSamples is the amount of new audio that triggers an
	// analysis cycle: 1.0 s at the canonical rate.
	transcribeIntervalSamples = targetRate

	// windowSeconds is the maximum audio duration submitted to the model.
	// Transcribing the full growing buffer every second is O(N²); a sliding
	// window keeps each model call bounded.
	windowSeconds = 12.0

	// maxUtteranceSamples is the hard safety cap on buffered utterance
	// audio: 30 s, the model's optimal context length.
	maxUtteranceSamples = 30 * targetRate

	// rmsThreshold gates model calls on quiet windows.
	rmsThreshold = 0.005

	// tailCushion is the audio retained after a finalized word's end so the
	// next word's leading phoneme is not clipped.
	tailCushion = 0.05
)

// window selects the audio slice submitted to the model: the last
// [windowSeconds] of fullAudio, or all of it when shorter. offset is the
// number of seconds of the utterance preceding the window; it converts
// window-relative timestamps back to utterance-relative ones.
func window(fullAudio []float32) (win []float32, offset, totalDuration float64) {
	totalDuration = float64(len(fullAudio)) / targetRate
	if totalDuration > windowSeconds {
		windowSamples := int(windowSeconds * targetRate)
		return fullAudio[len(fullAudio)-windowSamples:], totalDuration - windowSeconds, totalDuration
	}
	return fullAudio, 0, totalDuration
}
