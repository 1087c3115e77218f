package audio

// Resample converts samples from sourceRate to [TargetRate] using linear
// interpolation. When sourceRate already equals TargetRate the input slice is
// returned unchanged (zero allocation).
//
// The output length is ⌊len·TargetRate/sourceRate⌋; output sample k is the
// linear interpolation of the source signal at position k·(len-1)/(target-1).
// A sourceRate ≤ 0 is treated as TargetRate (the caller is expected to log
// this once per session).
func Resample(samples []float32, sourceRate int) []float32 {
	if sourceRate <= 0 || sourceRate == TargetRate {
		return samples
	}
	if len(samples) == 0 {
		return samples
	}

	targetLen := len(samples) * TargetRate / sourceRate
	if targetLen <= 0 {
		return nil
	}
	out := make([]float32, targetLen)

	if targetLen == 1 || len(samples) == 1 {
		for i := range out {
			out[i] = samples[0]
		}
		return out
	}

	// Map the output index range [0, targetLen-1] onto the source index
	// range [0, len-1] and interpolate between the two nearest samples.
	step := float64(len(samples)-1) / float64(targetLen-1)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx] + (samples[idx+1]-samples[idx])*frac
	}
	return out
}
