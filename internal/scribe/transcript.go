package scribe

import "strings"

// Accumulator builds a session's running transcript from formatted
// utterances. Not safe for concurrent use; the owning stream guards it.
type Accumulator struct {
	b strings.Builder
}

// Append adds one formatted utterance, separated by a space
func (a *Accumulator) Append(formatted string) {
	a.b.WriteString(" ")
	a.b.WriteString(formatted)
}

// String returns the accumulated transcript with surrounding space trimmed
func (a *Accumulator) String() string {
	return strings.TrimSpace(a.b.String())
}
