package session

// silenceThresholds maps the measured speaking rate to the base silence a
// finalization requires and the stall timeout that forces one. Faster
// speakers warrant shorter waits; slow narrators get deep patience for
// dramatic pauses. strongPunct shortens the stall timeout because a trailing
// sentence stop makes the pending text far more likely to be complete.
func silenceThresholds(wpm float64, strongPunct bool) (baseSilence, stall float64) {
	switch {
	case wpm > 180:
		baseSilence = 0.6
		stall = pick(strongPunct, 1.0, 1.4)
	case wpm >= 140:
		baseSilence = 1.0
		stall = pick(strongPunct, 1.5, 2.2)
	case wpm >= 110:
		baseSilence = 1.5
		stall = pick(strongPunct, 2.0, 2.8)
	case wpm >= 85:
		baseSilence = 2.5
		stall = pick(strongPunct, 3.0, 4.0)
	default:
		baseSilence = 4.0
		stall = pick(strongPunct, 5.0, 7.0)
	}
	return baseSilence, stall
}

// requiredSilence applies the overrides on top of the base requirement, in
// order: a trailing strong stop allows a much snappier cut, and a long
// window (by word count or duration) caps the wait so big utterances cannot
// linger unbounded.
func requiredSilence(base float64, wpm float64, strongPunct bool, windowWords int, totalDuration float64) float64 {
	required := base
	if strongPunct {
		snap := 0.3
		if wpm < 130 {
			snap = 0.4
		}
		required = min(required, snap)
	}
	if windowWords > 15 || totalDuration > 15.0 {
		required = min(required, 0.6)
	}
	return required
}

func pick(cond bool, whenTrue, whenFalse float64) float64 {
	if cond {
		return whenTrue
	}
	return whenFalse
}
