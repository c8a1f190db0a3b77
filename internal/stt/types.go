package stt

import "context"

// Word is one recognized word within an utterance. Speaker is the
// provider's zero-based speaker index, nil when diarization produced none.
type Word struct {
	Text    string
	Speaker *int
}

// Utterance is one finalized unit of transcribed speech delivered by the
// provider. Speaker tags may appear per word, at the utterance level, or at
// the channel level depending on the provider.
type Utterance struct {
	Text           string
	Words          []Word
	Speaker        *int // utterance/alternative-level speaker tag
	ChannelSpeaker *int // channel-level speaker tag
	Confidence     float64
	Start          float64
	Duration       float64
}

// Metadata carries provider bookkeeping for a live stream
type Metadata struct {
	RequestID string
}

// Handler receives lifecycle events for one live transcription stream.
// Implementations must not block: utterances arrive on the provider's
// delivery goroutine.
type Handler interface {
	OnOpen()
	OnUtterance(u Utterance)
	OnMetadata(md Metadata)
	OnClose()
	OnError(err error)
}

// LiveConnection is one open streaming-transcription connection
type LiveConnection interface {
	// Send forwards raw PCM16 bytes verbatim to the provider
	Send(data []byte) error

	// Finish flushes pending audio and gracefully closes the stream
	Finish() error
}

// Dialer opens live transcription connections
type Dialer interface {
	Dial(ctx context.Context, h Handler) (LiveConnection, error)
}
