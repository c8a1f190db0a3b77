// Package scribe implements the recording-session engine: session registry,
// live transcription streaming with speaker attribution, and SOAP note
// orchestration.
package scribe

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medscribe/scribe-gateway/internal/audio"
	"github.com/medscribe/scribe-gateway/internal/observability"
)

// Service is the single entry point for all session operations. The
// transport layer calls it; it coordinates the registry, the streamer,
// and the note orchestrator.
type Service struct {
	registry     *Registry
	streamer     *Streamer
	orchestrator *NoteOrchestrator
	publisher    EventPublisher
	log          zerolog.Logger
}

// NewService wires the service facade
func NewService(registry *Registry, streamer *Streamer, orchestrator *NoteOrchestrator, publisher EventPublisher, log zerolog.Logger) *Service {
	return &Service{
		registry:     registry,
		streamer:     streamer,
		orchestrator: orchestrator,
		publisher:    publisher,
		log:          log,
	}
}

// CreateSession registers a fresh session. An empty id gets a generated
// one; re-using an id resets that session.
func (s *Service) CreateSession(id string) SessionView {
	if id == "" {
		id = uuid.NewString()
	}
	session := s.registry.Create(id)
	s.log.Info().Str("session_id", id).Msg("session created")
	return session.Snapshot()
}

// StartRecording opens a live transcription stream for the session. The
// session is created on demand. On stream failure the session state is
// left unchanged and the error is returned.
func (s *Service) StartRecording(ctx context.Context, sessionID string) error {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		session = s.registry.Create(sessionID)
	}

	err := s.streamer.Start(ctx, sessionID, s.handleTranscript, s.handleStreamError)
	if err != nil {
		observability.RecordError("stream_start", "scribe")
		return err
	}

	session.setRecording(time.Now())
	observability.RecordSessionStart()
	s.publisher.Publish(EventRecordingStarted, RecordingStartedEvent{
		SessionID: sessionID,
		Status:    "Recording started - Real-time streaming transcription active",
	})
	return nil
}

// handleTranscript receives attributed utterances from the streamer. An
// utterance landing after the session finalized must not overwrite the
// finalized transcript, so anything past the recording window is dropped.
func (s *Service) handleTranscript(u TranscriptUpdate) {
	session, ok := s.registry.Get(u.SessionID)
	if !ok || !session.IsRecording() {
		return
	}

	attribution := "provider"
	if u.Inferred {
		attribution = "inferred"
	}
	observability.RecordUtterance(attribution)
	session.updateTranscript(u.FullTranscript)

	s.publisher.Publish(EventLiveTranscription, LiveTranscriptionEvent{
		SessionID:       u.SessionID,
		TranscriptChunk: u.FormattedText,
		RawText:         u.RawText,
		Speaker:         u.Speaker,
		FullTranscript:  u.FullTranscript,
	})
}

// handleStreamError surfaces mid-stream provider faults to the client
func (s *Service) handleStreamError(sessionID string, err error) {
	observability.RecordError("stream", "stt")
	s.publisher.Publish(EventTranscriptionError, TranscriptionErrorEvent{
		SessionID: sessionID,
		Error:     err.Error(),
	})
}

// AddAudioChunk decodes a base64 audio payload and forwards it upstream.
// Chunks for sessions that are not recording are rejected.
func (s *Service) AddAudioChunk(sessionID, payload string) error {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if !session.IsRecording() {
		return ErrNotRecording
	}

	data, err := audio.DecodeChunk(payload)
	if err != nil {
		observability.RecordError("decode", "audio")
		return err
	}

	if err := s.streamer.SendAudio(sessionID, data); err != nil {
		observability.RecordError("send", "stt")
		return err
	}
	observability.RecordAudioBytes(len(data))
	return nil
}

// StopRecording closes the stream and finalizes the transcript. Stopping a
// session that is not recording is not an error; the current transcript is
// returned as-is.
func (s *Service) StopRecording(sessionID string) (string, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}

	if !session.IsRecording() {
		return session.Transcript(), nil
	}

	final, err := s.streamer.Stop(sessionID)
	if err != nil {
		s.log.Warn().Str("session_id", sessionID).Err(err).
			Msg("error stopping transcription stream")
	}

	duration := session.beginProcessing(final)
	observability.RecordSessionEnd(duration)

	transcript := session.Transcript()
	s.publisher.Publish(EventRecordingStopped, RecordingStoppedEvent{
		SessionID:  sessionID,
		Transcript: transcript,
		Status:     "Recording stopped, generating SOAP note...",
	})
	return transcript, nil
}

// GenerateNote produces a SOAP note synchronously
func (s *Service) GenerateNote(ctx context.Context, sessionID string) SOAPResult {
	return s.orchestrator.Generate(ctx, sessionID)
}

// GenerateNoteAsync produces a SOAP note in the background; completion is
// delivered as a single published event.
func (s *Service) GenerateNoteAsync(sessionID string) {
	s.orchestrator.GenerateAsync(sessionID)
}

// GetSession returns a snapshot of the session
func (s *Service) GetSession(sessionID string) (SessionView, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// ListSessions returns snapshots of all live sessions
func (s *Service) ListSessions() []SessionView {
	sessions := s.registry.List()
	out := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, session.Snapshot())
	}
	return out
}

// CorrectSpeaker overrides the inferred current speaker for the session
func (s *Service) CorrectSpeaker(sessionID string, speaker int) error {
	if _, ok := s.registry.Get(sessionID); !ok {
		return ErrSessionNotFound
	}
	return s.streamer.CorrectSpeaker(sessionID, speaker)
}

// SpeakerStats returns the session's attribution state
func (s *Service) SpeakerStats(sessionID string) (SpeakerStats, error) {
	if _, ok := s.registry.Get(sessionID); !ok {
		return SpeakerStats{}, ErrSessionNotFound
	}
	return s.streamer.Stats(sessionID), nil
}

// CleanupSession tears down any live stream and removes the session
func (s *Service) CleanupSession(sessionID string) {
	if _, err := s.streamer.Stop(sessionID); err != nil {
		s.log.Warn().Str("session_id", sessionID).Err(err).
			Msg("error closing stream during cleanup")
	}
	s.registry.Remove(sessionID)
	s.log.Info().Str("session_id", sessionID).Msg("session cleaned up")
}
