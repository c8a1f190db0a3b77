package stt

import (
	"context"
	"fmt"
	"strings"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/medscribe/scribe-gateway/internal/audio"
	"github.com/medscribe/scribe-gateway/internal/config"
	"github.com/medscribe/scribe-gateway/internal/observability"
)

// Vocabulary hints for clinical conversations
var (
	searchTerms  = []string{"medical", "healthcare", "patient", "doctor"}
	keywordTerms = []string{"patient", "doctor", "nurse", "provider"}
)

// DeepgramDialer opens live streaming connections against Deepgram
type DeepgramDialer struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewDeepgramDialer creates a dialer configured for clinical dictation
func NewDeepgramDialer(cfg *config.Config) *DeepgramDialer {
	return &DeepgramDialer{
		cfg: cfg,
		log: observability.GetLogger().With().Str("component", "deepgram").Logger(),
	}
}

// Dial opens one live transcription stream. Provider events are translated
// into the neutral Handler callbacks; any failure to establish the stream is
// returned without registering partial state.
func (d *DeepgramDialer) Dial(ctx context.Context, h Handler) (LiveConnection, error) {
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.cfg.DeepgramModel,
		Language:       d.cfg.DeepgramLanguage,
		SmartFormat:    true,
		Punctuate:      true,
		Numerals:       true,
		Diarize:        true, // Request provider-native speaker labels
		InterimResults: false,
		Encoding:       audio.Encoding,
		SampleRate:     audio.SampleRate,
		Channels:       audio.Channels,
		Search:         searchTerms,
		Keywords:       keywordTerms,
	}

	// Callback struct implementing the LiveMessageCallback interface.
	// The default handler is embedded so only the events we care about
	// need overriding.
	callback := &callbackAdapter{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		handler:                h,
		log:                    d.log,
	}

	client, err := listenClient.NewWSUsingCallback(
		ctx,
		d.cfg.DeepgramAPIKey,
		nil, // ClientOptions - nil uses defaults
		tOptions,
		callback,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create deepgram connection: %w", err)
	}

	d.log.Info().
		Str("model", d.cfg.DeepgramModel).
		Str("language", d.cfg.DeepgramLanguage).
		Msg("Deepgram streaming connection created")

	return &deepgramConn{client: client}, nil
}

// callbackAdapter bridges Deepgram SDK callbacks onto the Handler interface
type callbackAdapter struct {
	*websocketv1api.DefaultCallbackHandler
	handler Handler
	log     zerolog.Logger
}

func (c *callbackAdapter) Open(or *msginterfaces.OpenResponse) error {
	c.handler.OnOpen()
	return nil
}

func (c *callbackAdapter) Message(mr *msginterfaces.MessageResponse) error {
	if mr == nil {
		return nil
	}

	switch mr.Type {
	case "Results", "Message":
		if len(mr.Channel.Alternatives) == 0 {
			return nil
		}

		alt := mr.Channel.Alternatives[0]
		if strings.TrimSpace(alt.Transcript) == "" {
			return nil
		}

		words := make([]Word, 0, len(alt.Words))
		for _, w := range alt.Words {
			words = append(words, Word{Text: w.Word, Speaker: w.Speaker})
		}

		c.handler.OnUtterance(Utterance{
			Text:       alt.Transcript,
			Words:      words,
			Confidence: alt.Confidence,
			Start:      mr.Start,
			Duration:   mr.Duration,
		})

	default:
		c.log.Debug().Str("type", mr.Type).Msg("Ignoring Deepgram message type")
	}

	return nil
}

func (c *callbackAdapter) Metadata(md *msginterfaces.MetadataResponse) error {
	if md != nil {
		c.handler.OnMetadata(Metadata{RequestID: md.RequestID})
	}
	return nil
}

func (c *callbackAdapter) Close(cr *msginterfaces.CloseResponse) error {
	c.handler.OnClose()
	return nil
}

func (c *callbackAdapter) Error(er *msginterfaces.ErrorResponse) error {
	c.handler.OnError(fmt.Errorf("deepgram stream error: %+v", er))
	return nil
}

// deepgramConn wraps the SDK websocket client as a LiveConnection
type deepgramConn struct {
	client *listenClient.WSCallback
}

func (c *deepgramConn) Send(data []byte) error {
	if _, err := c.client.Write(data); err != nil {
		return fmt.Errorf("failed to send audio to deepgram: %w", err)
	}
	return nil
}

func (c *deepgramConn) Finish() error {
	// Finish flushes and closes; the SDK call does not return an error
	c.client.Finish()
	return nil
}
