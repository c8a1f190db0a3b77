package scribe

import "errors"

// Error taxonomy surfaced to the transport layer. Collaborator failures are
// converted to these (or to a classified note-generation message); nothing
// escapes as an unhandled fault.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotRecording    = errors.New("session is not recording")
	ErrStreamStart     = errors.New("failed to start streaming session")
	ErrNoConnection    = errors.New("no streaming connection for session")
	ErrEmptyTranscript = errors.New("no transcript available for SOAP note generation")
	ErrInvalidSpeaker  = errors.New("speaker must be 1 or 2")
)
