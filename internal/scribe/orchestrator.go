package scribe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medscribe/scribe-gateway/internal/notes"
	"github.com/medscribe/scribe-gateway/internal/observability"
)

// SOAPResult is the outcome of one note-generation cycle
type SOAPResult struct {
	Success  bool   `json:"success"`
	SOAPNote string `json:"soap_note,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NoteOrchestrator runs note generation against finalized transcripts and
// reflects the outcome into session state and client events.
type NoteOrchestrator struct {
	registry  *Registry
	generator notes.Generator
	publisher EventPublisher
	timeout   time.Duration
	log       zerolog.Logger
}

// NewNoteOrchestrator wires the orchestrator to its collaborators
func NewNoteOrchestrator(registry *Registry, generator notes.Generator, publisher EventPublisher, timeout time.Duration, log zerolog.Logger) *NoteOrchestrator {
	return &NoteOrchestrator{
		registry:  registry,
		generator: generator,
		publisher: publisher,
		timeout:   timeout,
		log:       log,
	}
}

// Generate produces a SOAP note for the session's transcript, synchronously.
// Failures never leave the session mid-flight: the status lands on completed
// or error, and the transcript survives either way.
func (o *NoteOrchestrator) Generate(ctx context.Context, sessionID string) SOAPResult {
	session, ok := o.registry.Get(sessionID)
	if !ok {
		return SOAPResult{Success: false, Error: ErrSessionNotFound.Error()}
	}

	transcript := session.Transcript()
	if transcript == "" {
		session.fail(ErrEmptyTranscript.Error())
		return SOAPResult{Success: false, Error: ErrEmptyTranscript.Error()}
	}

	session.markProcessing()
	o.log.Info().Str("session_id", sessionID).
		Int("transcript_chars", len(transcript)).
		Msg("generating SOAP note")

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	note, err := o.generator.GenerateSOAP(ctx, transcript)
	observability.RecordNoteResult(err == nil, time.Since(start))

	if err != nil {
		session.fail(err.Error())
		o.log.Error().Str("session_id", sessionID).Err(err).
			Msg("SOAP note generation failed")
		return SOAPResult{Success: false, Error: err.Error()}
	}

	session.complete(note)
	o.log.Info().Str("session_id", sessionID).Msg("SOAP note generated")
	return SOAPResult{Success: true, SOAPNote: note}
}

// GenerateAsync runs Generate in the background and publishes exactly one
// completion event, soap_note_complete or soap_generation_error.
func (o *NoteOrchestrator) GenerateAsync(sessionID string) {
	go func() {
		result := o.Generate(context.Background(), sessionID)
		if result.Success {
			o.publisher.Publish(EventSOAPNoteComplete, SOAPNoteCompleteEvent{
				SessionID: sessionID,
				SOAPNote:  result.SOAPNote,
				Status:    "SOAP note generated successfully",
			})
			return
		}
		o.publisher.Publish(EventSOAPGenerationErr, SOAPErrorEvent{
			SessionID: sessionID,
			Error:     result.Error,
			Status:    "error",
		})
	}()
}
