package scribe

// Event names emitted to connected clients
const (
	EventConnected          = "connected"
	EventRecordingStarted   = "recording_started"
	EventLiveTranscription  = "live_transcription"
	EventRecordingStopped   = "recording_stopped"
	EventSOAPNoteComplete   = "soap_note_complete"
	EventSOAPGenerationErr  = "soap_generation_error"
	EventTranscriptionError = "transcription_error"
	EventError              = "error"
)

// EventPublisher delivers session events to whoever is listening. Publish
// must not block; slow consumers are the publisher's problem.
type EventPublisher interface {
	Publish(event string, payload any)
}

// NopPublisher discards all events
type NopPublisher struct{}

func (NopPublisher) Publish(string, any) {}

// RecordingStartedEvent acknowledges a successful stream start
type RecordingStartedEvent struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// LiveTranscriptionEvent carries one attributed utterance plus the running
// transcript so clients can render incrementally or re-sync from scratch.
type LiveTranscriptionEvent struct {
	SessionID       string `json:"session_id"`
	TranscriptChunk string `json:"transcript_chunk"`
	RawText         string `json:"raw_text"`
	Speaker         *int   `json:"speaker"`
	FullTranscript  string `json:"full_transcript"`
}

// RecordingStoppedEvent carries the final transcript for the cycle
type RecordingStoppedEvent struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
	Status     string `json:"status"`
}

// SOAPNoteCompleteEvent delivers a successfully generated note
type SOAPNoteCompleteEvent struct {
	SessionID string `json:"session_id"`
	SOAPNote  string `json:"soap_note"`
	Status    string `json:"status"`
}

// SOAPErrorEvent delivers a classified note-generation failure
type SOAPErrorEvent struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
	Status    string `json:"status"`
}

// TranscriptionErrorEvent reports a mid-stream provider fault
type TranscriptionErrorEvent struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

// ErrorEvent reports a request-level failure back to the client
type ErrorEvent struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}
