// Package audio provides the PCM primitives shared by the transcription
// pipeline: little-endian float32 decoding, linear-interpolation resampling
// to the canonical 16 kHz mono rate, RMS measurement, and WAV encoding for
// session archives.
package audio

import (
	"encoding/binary"
	"math"
)

// TargetRate is the canonical sample rate of the pipeline. All audio is
// resampled to this rate before it enters an utterance buffer.
const TargetRate = 16000

// DecodeFloat32LE interprets data as little-endian float32 mono PCM and
// returns the decoded samples. A trailing partial sample is ignored.
//
// Non-finite values (NaN, ±Inf) mark a malformed chunk; ok is false and the
// caller should drop the chunk.
func DecodeFloat32LE(data []byte) (samples []float32, ok bool) {
	n := len(data) / 4
	samples = make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		v := math.Float32frombits(bits)
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, false
		}
		samples[i] = v
	}
	return samples, true
}

// RMS returns the root-mean-square amplitude of samples. An empty slice
// has RMS 0.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
