package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/medscribe/scribe-gateway/internal/config"
	"github.com/medscribe/scribe-gateway/internal/notes"
	"github.com/medscribe/scribe-gateway/internal/observability"
	"github.com/medscribe/scribe-gateway/internal/scribe"
)

// API is the REST surface over the scribe service
type API struct {
	svc       *scribe.Service
	generator notes.Generator
	cfg       *config.Config
	ws        http.Handler
	checks    map[string]observability.HealthCheckFunc
	log       zerolog.Logger
}

// NewAPI creates the REST handler set
func NewAPI(svc *scribe.Service, generator notes.Generator, cfg *config.Config, ws http.Handler, log zerolog.Logger) *API {
	return &API{svc: svc, generator: generator, cfg: cfg, ws: ws, log: log}
}

// WithReadinessChecks registers named dependency probes for /ready
func (a *API) WithReadinessChecks(checks map[string]observability.HealthCheckFunc) *API {
	a.checks = checks
	return a
}

// Router builds the HTTP routing table
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", observability.HealthCheckHandler())
	r.Get("/ready", observability.ReadinessHandler(a.checks))
	r.Get("/gemini-status", a.geminiStatus)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", a.createSession)
		r.Get("/", a.listSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", a.getSession)
			r.Delete("/", a.deleteSession)
			r.Post("/speaker", a.correctSpeaker)
			r.Get("/speaker-stats", a.speakerStats)
		})
	})

	r.Get("/ws", a.ws.ServeHTTP)

	if a.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (a *API) geminiStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.generator.Probe(r.Context()))
}

type createSessionRequest struct {
	SessionID string `json:"session_id"`
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil {
		// An empty or absent body means a generated id
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	view := a.svc.CreateSession(req.SessionID)
	writeJSON(w, http.StatusCreated, view)
}

func (a *API) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": a.svc.ListSessions()})
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := a.svc.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) deleteSession(w http.ResponseWriter, r *http.Request) {
	a.svc.CleanupSession(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

type correctSpeakerRequest struct {
	Speaker int `json:"speaker"`
}

func (a *API) correctSpeaker(w http.ResponseWriter, r *http.Request) {
	var req correctSpeakerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := a.svc.CorrectSpeaker(chi.URLParam(r, "sessionID"), req.Speaker)
	switch {
	case errors.Is(err, scribe.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, scribe.ErrInvalidSpeaker):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "current_speaker": req.Speaker})
	}
}

func (a *API) speakerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.SpeakerStats(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
