package session

import (
	"strings"

	"github.com/scrivano/scrivano/pkg/provider/stt"
)

// Confidence filters applied to raw model output before any boundary
// decision. Segments beyond either limit are treated as hallucinations.
const (
	noSpeechCutoff   = 0.8
	avgLogProbCutoff = -1.0

	// speechProbCeiling marks a segment as genuine speech for window-text
	// and punctuation heuristics.
	speechProbCeiling = 0.4

	// lookaheadGap is the maximum pause between consecutive words that
	// still counts as continuous speech. No split may land inside it.
	lookaheadGap = 0.4
)

// strongStops end a sentence; soft stops allow a split with more patience.
var (
	strongStops = []string{".", "?", "!", "..."}
	softStops   = []string{",", ";", ":", "-"}
)

// continuationTokens inhibit a mid-window split when the following segment
// opens with one of them: the model regularly places a sentence stop right
// before a clause that continues the thought.
var continuationTokens = []string{"when", "and", "which", "but", "while", "that", "because", "the", "a"}

// sinkWords are single-word remainders the model tends to invent during
// silence gaps. They are never finalized on their own.
var sinkWords = map[string]struct{}{
	"please": {}, "thanks": {}, "thank you": {}, "bye": {},
	"you": {}, "it": {}, "with": {}, "the": {},
}

// analyze is the per-cycle decision engine. It scans the model's segments
// for finalization boundaries, emits finals and partials, and mutates the
// session state accordingly: trimming the utterance buffer to the tail after
// the last finalized word, advancing the absolute clock, and updating pace
// and history.
//
// fullAudio is the concatenated utterance; windowOffset and totalDuration
// come from the windower. force enables the forced-finalization triggers
// regardless of buffered duration (used on stream close).
func (s *Session) analyze(segments []stt.Segment, fullAudio []float32, windowOffset, totalDuration float64, force bool) []Result {
	filtered := filterSegments(segments)

	windowText := speechText(segments)
	windowWords := len(strings.Fields(windowText))
	strongPunct := endsWithAny(windowText, strongStops)

	wpm := s.pace.WPM()
	baseSilence, stallThreshold := silenceThresholds(wpm, strongPunct)
	required := requiredSilence(baseSilence, wpm, strongPunct, windowWords, totalDuration)

	var results []Result

	// ── Word-level incremental finalization ──────────────────────────────
	var (
		current             []string // words of the sentence being built
		currentStart        float64  // first word's start, window-relative
		segTextParts        []string // segment-level text lacking word detail
		lastFinalizedEndRel float64
	)

	minWords := 6
	if wpm < 100 {
		minWords = 12
	}

	for si, seg := range filtered {
		if len(seg.Words) == 0 {
			// Segment-level fallback: no word timestamps available.
			text := strings.TrimSpace(seg.Text)
			if text == "" {
				continue
			}
			if endsWithAny(text, strongStops) {
				results = append(results, s.emit(text, true, s.absoluteStartTime+windowOffset+seg.Start))
				lastFinalizedEndRel = seg.End
				s.pace.Add(len(strings.Fields(text)), max(0.2, seg.End-seg.Start))
				s.history.Push(text)
			} else {
				segTextParts = append(segTextParts, text)
			}
			continue
		}

		for wi, w := range seg.Words {
			text := strings.TrimSpace(w.Text)
			if text == "" {
				continue
			}
			if len(current) == 0 {
				currentStart = w.Start
			}
			current = append(current, text)

			if !s.isStopWord(filtered, si, wi, len(current) < minWords, wpm, windowOffset, totalDuration) {
				continue
			}

			sentence := strings.Join(current, " ")
			results = append(results, s.emit(sentence, true, s.absoluteStartTime+windowOffset+currentStart))
			s.log.Info("final", "source", "word", "text", sentence, "wpm", int(wpm))

			s.pace.Add(len(current), w.End-currentStart)
			s.history.Push(sentence)

			// Cushion after the stop word so the next word's onset
			// survives the buffer splice.
			lastFinalizedEndRel = min(totalDuration-windowOffset, w.End+tailCushion)
			current = nil
		}
	}

	remaining := strings.TrimSpace(strings.Join(append(current, segTextParts...), " "))

	// ── Forced finalization ──────────────────────────────────────────────
	var latestSpeechEndRel float64
	for _, seg := range filtered {
		latestSpeechEndRel = max(latestSpeechEndRel, seg.End)
	}
	totalSilence := totalDuration - (windowOffset + latestSpeechEndRel)

	if remaining != s.lastPartialText {
		s.lastPartialText = remaining
		s.lastTextChangeTime = totalDuration
	}
	totalStall := totalDuration - s.lastTextChangeTime

	globalTrigger := force ||
		s.samplesInUtterance >= maxUtteranceSamples ||
		s.consecutiveQuietIntervals >= 2
	forceFallback := totalSilence >= required ||
		(totalStall >= stallThreshold && totalSilence >= 0.4)

	finalizedAll := false
	if (globalTrigger || forceFallback) && remaining != "" {
		if isJunkRemainder(remaining, totalSilence) {
			// Hallucination sink: carry over to the next cycle.
			s.log.Debug("junk remainder carried over", "text", remaining, "silence", totalSilence)
		} else {
			results = append(results, s.emit(remaining, true, s.absoluteStartTime+windowOffset))
			s.log.Info("final", "source", "forced", "text", remaining, "silence", totalSilence, "stall", totalStall)

			s.resetUtterance(totalDuration)
			finalizedAll = true
			remaining = ""
		}
	}

	switch {
	case finalizedAll:
		// Buffer already reset above.

	case lastFinalizedEndRel > 0:
		// ── Tail preservation ────────────────────────────────────────
		s.spliceTail(fullAudio, windowOffset+lastFinalizedEndRel)

	case remaining == "" && (globalTrigger || s.consecutiveQuietIntervals >= 10):
		// ── Emergency cleanup for silent or stuck buffers ───────────
		// Only when no text survived: a junk remainder stays buffered
		// for the next cycle instead of being wiped with the audio.
		s.log.Info("emergency cleanup", "duration", totalDuration, "quiet_intervals", s.consecutiveQuietIntervals)
		s.resetUtterance(totalDuration)

	case remaining != "":
		// ── Partial update ──────────────────────────────────────────
		results = append(results, s.emit(remaining, false, s.absoluteStartTime+windowOffset))
		s.log.Debug("partial", "text", remaining, "duration", totalDuration, "silence", totalSilence)
	}

	return results
}

// isStopWord applies the protected split rules to word wi of segment si and
// reports whether the sentence may be cut after it.
func (s *Session) isStopWord(filtered []stt.Segment, si, wi int, tooShort bool, wpm, windowOffset, totalDuration float64) bool {
	seg := filtered[si]
	w := seg.Words[wi]
	text := strings.TrimSpace(w.Text)

	hasStrong := endsWithAny(text, strongStops)
	hasSoft := endsWithAny(text, softStops)
	if !hasStrong && !hasSoft {
		return false
	}

	// Lookahead beats punctuation: never split when the next word follows
	// within the continuous-speech gap.
	if wi < len(seg.Words)-1 {
		if seg.Words[wi+1].Start-w.End < lookaheadGap {
			return false
		}
	} else if si < len(filtered)-1 {
		if filtered[si+1].Start-w.End < lookaheadGap {
			return false
		}
	}

	isAbsoluteLast := wi == len(seg.Words)-1 && si == len(filtered)-1
	silenceAtEdge := totalDuration - (windowOffset + w.End)

	if hasStrong {
		if isAbsoluteLast {
			// The window edge is where hallucinated stops concentrate:
			// require real trailing silence, more of it for short
			// sentences and slow narrators.
			required := 0.8
			if tooShort {
				required = 1.5
				if wpm < 100 {
					required = 2.5
				}
			}
			return silenceAtEdge >= required
		}
		if tooShort || s.followedByContinuation(filtered, si) {
			return false
		}
		return true
	}

	// Soft stop: allowed, with more patience.
	if isAbsoluteLast {
		return silenceAtEdge >= 1.5
	}
	return silenceAtEdge >= 1.0
}

// followedByContinuation reports whether the segment after si opens with a
// continuation token.
func (s *Session) followedByContinuation(filtered []stt.Segment, si int) bool {
	if si >= len(filtered)-1 {
		return false
	}
	next := strings.ToLower(strings.TrimSpace(filtered[si+1].Text))
	for _, c := range continuationTokens {
		if strings.HasPrefix(next, c) {
			return true
		}
	}
	return false
}

// emit constructs a Result with a start time clamped to keep the per-session
// emission order monotonically non-decreasing, and updates counters.
func (s *Session) emit(text string, isFinal bool, startTime float64) Result {
	startTime = max(startTime, s.lastEmittedStart)
	s.lastEmittedStart = startTime
	if s.metrics != nil {
		s.metrics.RecordEmission(s.ctx, isFinal)
	}
	return Result{Text: text, IsFinal: isFinal, StartTime: startTime}
}

// resetUtterance drops the whole buffer and advances the absolute clock past
// the processed audio.
func (s *Session) resetUtterance(totalDuration float64) {
	s.utterance = nil
	s.samplesInUtterance = 0
	s.absoluteStartTime += totalDuration
	s.lastPartialText = ""
	s.lastTextChangeTime = 0
}

// spliceTail truncates the buffer to the audio after splitTime (seconds into
// the utterance) and advances the absolute clock accordingly.
func (s *Session) spliceTail(fullAudio []float32, splitTime float64) {
	splitSample := int(splitTime * targetRate)
	if splitSample > len(fullAudio) {
		splitSample = len(fullAudio)
	}
	tail := fullAudio[splitSample:]

	s.absoluteStartTime += splitTime
	if len(tail) > 0 {
		// Copy so the spliced-off head can be garbage collected.
		kept := make([]float32, len(tail))
		copy(kept, tail)
		s.utterance = [][]float32{kept}
	} else {
		s.utterance = nil
	}
	s.samplesInUtterance = len(tail)
	s.lastPartialText = ""
	s.lastTextChangeTime = 0
}

// filterSegments drops low-confidence segments before boundary analysis.
func filterSegments(segments []stt.Segment) []stt.Segment {
	out := make([]stt.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.NoSpeechProb > noSpeechCutoff || seg.AvgLogProb < avgLogProbCutoff {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// speechText joins the text of segments the model considers genuine speech.
// Used only for the window-level word count and punctuation heuristics.
func speechText(segments []stt.Segment) string {
	var parts []string
	for _, seg := range segments {
		if seg.NoSpeechProb >= speechProbCeiling {
			continue
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// isJunkRemainder applies the hallucination sink: single sink words and
// short unpunctuated remainders are kept buffered instead of finalized.
func isJunkRemainder(remaining string, totalSilence float64) bool {
	words := strings.Fields(remaining)

	clean := strings.ToLower(remaining)
	for _, p := range []string{".", "!", "?"} {
		clean = strings.ReplaceAll(clean, p, "")
	}
	clean = strings.TrimSpace(clean)

	if len(words) == 1 {
		if _, ok := sinkWords[clean]; ok {
			return true
		}
	}
	if len(words) < 3 {
		if !containsAny(remaining, strongStops) || totalSilence > 1.0 {
			return true
		}
	}
	return false
}

func endsWithAny(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
