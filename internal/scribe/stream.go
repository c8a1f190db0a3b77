package scribe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medscribe/scribe-gateway/internal/stt"
)

// TranscriptUpdate is one attributed utterance delivered to the session layer
type TranscriptUpdate struct {
	SessionID      string
	RawText        string
	Speaker        *int
	FormattedText  string
	FullTranscript string
	Inferred       bool
}

// UpdateFunc receives transcript updates as utterances arrive
type UpdateFunc func(TranscriptUpdate)

// ErrorFunc receives mid-stream provider faults
type ErrorFunc func(sessionID string, err error)

// SpeakerStats is the attribution state snapshot for a session
type SpeakerStats struct {
	CurrentSpeaker int `json:"current_speaker"`
	UtteranceCount int `json:"utterance_count"`
	Speaker1Words  int `json:"speaker_1_words"`
	Speaker2Words  int `json:"speaker_2_words"`
}

// speakerTrack holds one session's inference state behind its own lock so
// utterance handling never contends across sessions.
type speakerTrack struct {
	mu    sync.Mutex
	state SpeakerState
}

// Streamer manages one live transcription connection per session and turns
// provider utterances into attributed transcript updates.
type Streamer struct {
	dialer     stt.Dialer
	log        zerolog.Logger
	clock      func() time.Time
	finishWait time.Duration

	mu       sync.Mutex
	streams  map[string]*liveStream
	speakers map[string]*speakerTrack
}

// NewStreamer creates a Streamer backed by the given dialer
func NewStreamer(dialer stt.Dialer, log zerolog.Logger) *Streamer {
	return &Streamer{
		dialer:     dialer,
		log:        log,
		clock:      time.Now,
		finishWait: 3 * time.Second,
		streams:    make(map[string]*liveStream),
		speakers:   make(map[string]*speakerTrack),
	}
}

// liveStream is the per-session receive side of a provider connection. It
// implements stt.Handler; the provider invokes it from its read loop. The
// accumulator is shared between that loop and Stop, so mu guards it.
type liveStream struct {
	sessionID string
	track     *speakerTrack
	clock     func() time.Time
	log       zerolog.Logger
	onUpdate  UpdateFunc
	onError   ErrorFunc
	conn      stt.LiveConnection

	mu         sync.Mutex
	transcript Accumulator

	closed    chan struct{}
	closeOnce sync.Once
}

// Start dials the provider and registers a live stream for the session. Any
// previous stream for the id is replaced; its state does not leak into the
// new one. On dial failure nothing is registered.
func (s *Streamer) Start(ctx context.Context, sessionID string, onUpdate UpdateFunc, onError ErrorFunc) error {
	ls := &liveStream{
		sessionID: sessionID,
		track:     &speakerTrack{state: NewSpeakerState()},
		clock:     s.clock,
		log:       s.log.With().Str("session_id", sessionID).Logger(),
		onUpdate:  onUpdate,
		onError:   onError,
		closed:    make(chan struct{}),
	}

	conn, err := s.dialer.Dial(ctx, ls)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStreamStart, err)
	}
	ls.conn = conn

	s.mu.Lock()
	s.streams[sessionID] = ls
	s.speakers[sessionID] = ls.track
	s.mu.Unlock()

	s.log.Info().Str("session_id", sessionID).Msg("transcription stream started")
	return nil
}

// SendAudio forwards a decoded chunk to the session's live connection
func (s *Streamer) SendAudio(sessionID string, data []byte) error {
	s.mu.Lock()
	ls, ok := s.streams[sessionID]
	s.mu.Unlock()
	if !ok {
		return ErrNoConnection
	}
	return ls.conn.Send(data)
}

// Stop closes the session's stream and returns the accumulated transcript.
// The connection is finished before the transcript is read so utterances
// the provider flushes during the graceful close still land in the result.
// Stopping a session with no stream is a no-op returning an empty
// transcript.
func (s *Streamer) Stop(sessionID string) (string, error) {
	s.mu.Lock()
	ls, ok := s.streams[sessionID]
	delete(s.streams, sessionID)
	delete(s.speakers, sessionID)
	s.mu.Unlock()
	if !ok {
		return "", nil
	}

	if err := ls.conn.Finish(); err != nil {
		ls.log.Warn().Err(err).Msg("error finishing transcription stream")
	}
	select {
	case <-ls.closed:
	case <-time.After(s.finishWait):
		ls.log.Warn().Msg("timed out waiting for stream close")
	}

	ls.mu.Lock()
	final := ls.transcript.String()
	ls.mu.Unlock()
	ls.log.Info().Int("transcript_len", len(final)).Msg("transcription stream stopped")
	return final, nil
}

// CorrectSpeaker overrides the inferred current speaker for a session. A
// session with no live attribution state gets a fresh one seeded with the
// correction so the override survives until the next stream start.
func (s *Streamer) CorrectSpeaker(sessionID string, speaker int) error {
	if speaker != 1 && speaker != 2 {
		return ErrInvalidSpeaker
	}
	s.mu.Lock()
	track, ok := s.speakers[sessionID]
	if !ok {
		track = &speakerTrack{state: NewSpeakerState()}
		s.speakers[sessionID] = track
	}
	s.mu.Unlock()

	track.mu.Lock()
	track.state.LastSpeaker = speaker
	track.mu.Unlock()

	s.log.Info().Str("session_id", sessionID).Int("speaker", speaker).Msg("speaker corrected")
	return nil
}

// Stats returns the session's attribution state; sessions with no state
// report the initial defaults.
func (s *Streamer) Stats(sessionID string) SpeakerStats {
	s.mu.Lock()
	track, ok := s.speakers[sessionID]
	s.mu.Unlock()
	if !ok {
		return SpeakerStats{CurrentSpeaker: 1}
	}

	track.mu.Lock()
	defer track.mu.Unlock()
	return SpeakerStats{
		CurrentSpeaker: track.state.LastSpeaker,
		UtteranceCount: track.state.UtteranceCount,
		Speaker1Words:  track.state.SpeakerWords[0],
		Speaker2Words:  track.state.SpeakerWords[1],
	}
}

func (ls *liveStream) OnOpen() {
	ls.log.Debug().Msg("transcription connection open")
}

// OnUtterance attributes the utterance (provider label first, heuristic
// fallback otherwise), appends it to the running transcript, and delivers
// the update. Provider-labeled utterances do not advance the inference
// state; a later fallback starts from the same history it had before.
func (ls *liveStream) OnUtterance(u stt.Utterance) {
	if u.Text == "" {
		return
	}

	speaker, inferred := ls.attribute(u)
	formatted := fmt.Sprintf("Speaker %d: %s", speaker, u.Text)

	ls.mu.Lock()
	ls.transcript.Append(formatted)
	full := ls.transcript.String()
	ls.mu.Unlock()

	sp := speaker
	ls.onUpdate(TranscriptUpdate{
		SessionID:      ls.sessionID,
		RawText:        u.Text,
		Speaker:        &sp,
		FormattedText:  formatted,
		FullTranscript: full,
		Inferred:       inferred,
	})
}

// attribute resolves the display speaker for an utterance. Provider labels
// are 0-based and win when present, checked word level first, then
// utterance, then channel.
func (ls *liveStream) attribute(u stt.Utterance) (speaker int, inferred bool) {
	if tag := extractSpeaker(u); tag != nil {
		return *tag + 1, false
	}

	ls.track.mu.Lock()
	defer ls.track.mu.Unlock()
	speaker, ls.track.state = InferSpeaker(ls.track.state, u.Text, ls.clock())
	return speaker, true
}

func extractSpeaker(u stt.Utterance) *int {
	for _, w := range u.Words {
		if w.Speaker != nil {
			return w.Speaker
		}
	}
	if u.Speaker != nil {
		return u.Speaker
	}
	return u.ChannelSpeaker
}

func (ls *liveStream) OnMetadata(m stt.Metadata) {
	ls.log.Debug().Str("request_id", m.RequestID).Msg("transcription metadata received")
}

func (ls *liveStream) OnClose() {
	ls.log.Debug().Msg("transcription connection closed")
	ls.closeOnce.Do(func() { close(ls.closed) })
}

func (ls *liveStream) OnError(err error) {
	ls.log.Error().Err(err).Msg("transcription stream error")
	if ls.onError != nil {
		ls.onError(ls.sessionID, err)
	}
}
