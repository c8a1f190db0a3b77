package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medscribe/scribe-gateway/internal/config"
	"github.com/medscribe/scribe-gateway/internal/notes"
	"github.com/medscribe/scribe-gateway/internal/observability"
	"github.com/medscribe/scribe-gateway/internal/scribe"
	"github.com/medscribe/scribe-gateway/internal/stt"
	"github.com/medscribe/scribe-gateway/internal/transport"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("deepgram_model", cfg.DeepgramModel).
		Str("gemini_model", cfg.GeminiModel).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Medical Scribe Gateway starting")

	// Note generator (Gemini)
	generator, err := notes.NewGeminiClient(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	defer generator.Close()

	// Session engine
	hub := transport.NewHub(logger.With().Str("component", "hub").Logger())
	registry := scribe.NewRegistry()
	dialer := stt.NewDeepgramDialer(cfg)
	streamer := scribe.NewStreamer(dialer, logger.With().Str("component", "streamer").Logger())
	orchestrator := scribe.NewNoteOrchestrator(
		registry, generator, hub,
		time.Duration(cfg.NoteTimeout)*time.Second,
		logger.With().Str("component", "orchestrator").Logger(),
	)
	service := scribe.NewService(registry, streamer, orchestrator, hub,
		logger.With().Str("component", "scribe").Logger())

	// Transport surface
	wsHandler := transport.NewWSHandler(hub, service,
		logger.With().Str("component", "ws").Logger())

	checks := map[string]observability.HealthCheckFunc{
		// Config-level checks only; neither probe spends provider quota
		"deepgram": func(ctx context.Context) (bool, error) {
			if cfg.DeepgramAPIKey == "" {
				return false, fmt.Errorf("deepgram api key not configured")
			}
			return true, nil
		},
		"gemini": func(ctx context.Context) (bool, error) {
			if cfg.GoogleAPIKey == "" {
				return false, fmt.Errorf("google api key not configured")
			}
			return true, nil
		},
	}

	api := transport.NewAPI(service, generator, cfg, wsHandler,
		logger.With().Str("component", "api").Logger()).
		WithReadinessChecks(checks)

	if cfg.MetricsEnabled {
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Read/write timeouts stay unset; the WebSocket endpoint holds its
	// connection open for the whole recording.
	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     api.Router(),
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/ws", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Close any live transcription streams before stopping the listener
	for _, view := range service.ListSessions() {
		if view.IsRecording {
			if _, err := service.StopRecording(view.SessionID); err != nil {
				logger.Warn().Str("session_id", view.SessionID).Err(err).
					Msg("failed to stop session during shutdown")
			}
		}
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
