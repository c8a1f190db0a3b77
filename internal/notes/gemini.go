package notes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/medscribe/scribe-gateway/internal/config"
	"github.com/medscribe/scribe-gateway/internal/observability"
	"github.com/medscribe/scribe-gateway/internal/resilience"
)

const breakerService = "gemini"

// GeminiClient generates SOAP notes via the Google Gemini API
type GeminiClient struct {
	client    *genai.Client
	modelName string
	cfg       *config.Config
	breaker   *resilience.CircuitBreaker
	retryCfg  *resilience.RetryConfig
	log       zerolog.Logger
}

// NewGeminiClient creates a Gemini-backed note generator
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GoogleAPIKey))
	if err != nil {
		return nil, err
	}

	return &GeminiClient{
		client:    client,
		modelName: cfg.GeminiModel,
		cfg:       cfg,
		breaker: resilience.NewCircuitBreaker(
			breakerService,
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		retryCfg: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
		},
		log: observability.GetLogger().With().Str("component", "gemini").Logger(),
	}, nil
}

// soapModel builds the generation model tuned for clinical content
func (g *GeminiClient) soapModel() *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.modelName)
	model.SetCandidateCount(1)
	model.SetMaxOutputTokens(int32(g.cfg.NoteMaxOutputTokens))
	model.SetTemperature(float32(g.cfg.NoteTemperature))
	model.SafetySettings = safetySettings()
	return model
}

func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockMediumAndAbove,
		})
	}
	return settings
}

// GenerateSOAP produces a SOAP note from the transcript. The call runs
// behind the circuit breaker with retries on transient network failures;
// the returned error carries the classified client-facing message.
func (g *GeminiClient) GenerateSOAP(ctx context.Context, transcript string) (string, error) {
	prompt := SOAPPrompt(transcript)
	g.log.Info().Int("transcript_chars", len(transcript)).Msg("generating SOAP note")

	var note string
	err := g.breaker.Call(func() error {
		return resilience.Retry(func() error {
			resp, err := g.soapModel().GenerateContent(ctx, genai.Text(prompt))
			if err != nil {
				return err
			}
			text := responseText(resp)
			if text == "" {
				return errors.New("No response generated from Gemini API")
			}
			note = text
			return nil
		}, g.retryCfg, resilience.IsRetryableNetworkError)
	})

	observability.UpdateCircuitBreakerState(breakerService, int(g.breaker.GetState()))

	if err != nil {
		observability.IncrementCircuitBreakerFailures(breakerService)
		observability.RecordError(string(Classify(err)), "gemini")
		g.log.Error().Err(err).Msg("SOAP note generation failed")
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return "", errors.New("Gemini API error: service temporarily unavailable")
		}
		return "", errors.New(ClassifyMessage(err))
	}

	g.log.Info().Int("note_chars", len(note)).Msg("SOAP note generated")
	return note, nil
}

// Probe issues a minimal generation request to verify the API key works
func (g *GeminiClient) Probe(ctx context.Context) ProbeResult {
	model := g.client.GenerativeModel(g.modelName)
	model.SetMaxOutputTokens(10)

	resp, err := model.GenerateContent(ctx,
		genai.Text("Respond with 'API Working' if you can see this message."))
	if err != nil {
		return ProbeResult{Status: "error", Message: ClassifyMessage(err)}
	}

	if strings.Contains(responseText(resp), "API Working") {
		return ProbeResult{
			Status:  "working",
			Model:   g.modelName,
			Message: "Gemini API is configured and working",
		}
	}
	return ProbeResult{
		Status:  "error",
		Message: "Gemini API responded but with unexpected content",
	}
}

// Close releases the underlying API client
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// responseText concatenates the text parts of the first viable candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	return b.String()
}
