package scribe

import (
	"strings"
	"time"
)

const (
	// A silence longer than this between utterances suggests a turn change
	pauseThreshold = 2 * time.Second

	// Utterances shorter than this read as replies to the other party
	shortReplyWords = 5

	// Word-count lead beyond which attribution is rebalanced
	balanceMargin = 50
)

// Conversational openers typical for each party in a clinical encounter.
// Matching is case-insensitive substring containment.
var (
	doctorPhrases = []string{
		"let's", "i'm going to", "can you", "how are", "what brings",
		"i need to", "we should", "i'd like to", "tell me about",
	}
	patientPhrases = []string{
		"i have", "it hurts", "i feel", "my", "i can't",
		"i've been", "i think", "i'm worried", "i'm having",
	}
)

// SpeakerState tracks per-session attribution history for the heuristic
// fallback used when the provider supplies no diarization labels.
type SpeakerState struct {
	LastSpeaker    int       // 1 or 2
	UtteranceCount int       // utterances attributed so far
	SpeakerWords   [2]int    // cumulative word totals, index 0 = speaker 1
	LastUtterance  time.Time // zero until the first utterance lands
}

// NewSpeakerState returns the initial attribution state: speaker 1,
// zero counts, no prior utterance.
func NewSpeakerState() SpeakerState {
	return SpeakerState{LastSpeaker: 1}
}

// InferSpeaker assigns an utterance to speaker 1 or 2 and returns the
// updated state. The decision rules are evaluated in order; the first match
// wins:
//
//  1. a pause longer than pauseThreshold switches speaker
//  2. a short reply (< shortReplyWords) after at least one prior utterance
//     switches speaker
//  3. doctor-style phrasing switches to speaker 1, patient-style phrasing
//     switches to speaker 2, when the last speaker was the other party
//  4. a word-count imbalance beyond balanceMargin switches speaker
//  5. otherwise the last speaker keeps the floor
func InferSpeaker(st SpeakerState, text string, now time.Time) (int, SpeakerState) {
	lower := strings.ToLower(text)
	wordCount := len(strings.Fields(text))

	var gap time.Duration
	if !st.LastUtterance.IsZero() {
		gap = now.Sub(st.LastUtterance)
	}

	cur := st.SpeakerWords[st.LastSpeaker-1]
	other := st.SpeakerWords[2-st.LastSpeaker]

	switchSpeaker := false
	switch {
	case gap > pauseThreshold:
		switchSpeaker = true
	case wordCount < shortReplyWords && st.UtteranceCount > 0:
		switchSpeaker = true
	case containsAny(lower, doctorPhrases) && st.LastSpeaker == 2:
		switchSpeaker = true
	case containsAny(lower, patientPhrases) && st.LastSpeaker == 1:
		switchSpeaker = true
	case cur > other+balanceMargin:
		switchSpeaker = true
	}

	speaker := st.LastSpeaker
	if switchSpeaker {
		speaker = 3 - st.LastSpeaker
	}

	st.UtteranceCount++
	st.SpeakerWords[speaker-1] += wordCount
	st.LastUtterance = now
	st.LastSpeaker = speaker

	return speaker, st
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
