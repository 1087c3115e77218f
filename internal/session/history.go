package session

import (
	"strings"
	"unicode/utf8"
)

const (
	// historySize bounds the finalized-text ring used for prompting.
	historySize = 5

	// promptCharCap bounds the history suffix included in the prompt.
	promptCharCap = 500

	// promptPreamble precedes the history context in every model prompt.
	promptPreamble = "I am transcribing live speech."
)

// History is a bounded ring of the most recent finalized strings. Its
// concatenation seeds the model's initial prompt so that decoding stays
// consistent across windows without model-level history conditioning.
//
// Not safe for concurrent use; owned by the session goroutine.
type History struct {
	entries []string
}

// Push appends text and evicts the oldest entry beyond [historySize].
func (h *History) Push(text string) {
	h.entries = append(h.entries, text)
	if len(h.entries) > historySize {
		h.entries = h.entries[len(h.entries)-historySize:]
	}
}

// Prompt builds the initial prompt for the next model call: the preamble
// plus the last [promptCharCap] characters of finalized history. With no
// history the preamble is returned alone.
func (h *History) Prompt() string {
	joined := strings.Join(h.entries, " ")
	if len(joined) > promptCharCap {
		joined = joined[len(joined)-promptCharCap:]
		// The byte cut may land inside a rune; advance to the next
		// boundary so the prompt stays valid UTF-8.
		for len(joined) > 0 && !utf8.RuneStart(joined[0]) {
			joined = joined[1:]
		}
	}
	joined = strings.TrimSpace(joined)
	if joined == "" {
		return promptPreamble
	}
	return promptPreamble + " Context: " + joined
}

// Entries returns the current ring contents, oldest first. Intended for
// testing.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
