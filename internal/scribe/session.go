package scribe

import (
	"strings"
	"sync"
	"time"
)

// Status is the lifecycle state of a recording session
type Status string

const (
	StatusReady      Status = "ready"
	StatusRecording  Status = "recording"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Session is one recording-to-note cycle, keyed by a caller-supplied id.
// All fields are guarded by the session's own mutex; cross-session
// operations never contend on each other.
type Session struct {
	mu           sync.Mutex
	id           string
	isRecording  bool
	transcript   string
	soapNote     string
	status       Status
	errorMessage string
	startedAt    time.Time
}

// SessionView is the JSON snapshot exposed by the query surface
type SessionView struct {
	SessionID    string `json:"session_id"`
	Transcript   string `json:"transcript"`
	SOAPNote     string `json:"soap_note"`
	IsRecording  bool   `json:"is_recording"`
	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func newSession(id string) *Session {
	return &Session{id: id, status: StatusReady}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// IsRecording reports whether the session is currently recording
func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRecording
}

// Status returns the current lifecycle state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Transcript returns the accumulated transcript
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// SOAPNote returns the generated note, empty until generation succeeds
func (s *Session) SOAPNote() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soapNote
}

// Snapshot returns a consistent copy of the session state
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionView{
		SessionID:    s.id,
		Transcript:   s.transcript,
		SOAPNote:     s.soapNote,
		IsRecording:  s.isRecording,
		Status:       s.status,
		ErrorMessage: s.errorMessage,
	}
}

// setRecording marks the session live. isRecording is only ever true while
// status is StatusRecording; the two change together under the lock.
func (s *Session) setRecording(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isRecording = true
	s.status = StatusRecording
	s.errorMessage = ""
	s.startedAt = now
}

// updateTranscript replaces the running transcript with the latest full text
func (s *Session) updateTranscript(full string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = strings.TrimSpace(full)
}

// beginProcessing finalizes recording and moves to the processing stage.
// An empty final transcript keeps whatever was accumulated live.
func (s *Session) beginProcessing(final string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isRecording = false
	s.status = StatusProcessing
	if strings.TrimSpace(final) != "" {
		s.transcript = strings.TrimSpace(final)
	}
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// markProcessing flags a generation cycle in progress without touching the
// transcript (used when generation is invoked on an already-stopped session)
func (s *Session) markProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusProcessing
}

// complete records a successful note generation
func (s *Session) complete(note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.soapNote = note
	s.status = StatusCompleted
	s.errorMessage = ""
}

// fail records a terminal error for this cycle; the transcript is preserved
// so generation can be retried after a fresh create/start.
func (s *Session) fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusError
	s.errorMessage = message
}
