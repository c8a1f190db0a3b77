package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medscribe/scribe-gateway/internal/scribe"
)

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAPI_Health(t *testing.T) {
	api, _, _ := newTestStack(t)
	rec := doRequest(t, api.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", body["status"])
	}
}

func TestAPI_GeminiStatus(t *testing.T) {
	api, _, _ := newTestStack(t)
	rec := doRequest(t, api.Router(), http.MethodGet, "/gemini-status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "working" {
		t.Errorf("expected working status, got %q", body["status"])
	}
}

func TestAPI_CreateAndGetSession(t *testing.T) {
	api, _, _ := newTestStack(t)
	router := api.Router()

	rec := doRequest(t, router, http.MethodPost, "/sessions", map[string]string{"session_id": "s1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/sessions/s1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view scribe.SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.SessionID != "s1" || view.Status != scribe.StatusReady {
		t.Errorf("unexpected view %+v", view)
	}
}

func TestAPI_CreateSessionGeneratesID(t *testing.T) {
	api, _, _ := newTestStack(t)
	rec := doRequest(t, api.Router(), http.MethodPost, "/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var view scribe.SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.SessionID == "" {
		t.Error("expected generated session id")
	}
}

func TestAPI_GetSessionNotFound(t *testing.T) {
	api, _, _ := newTestStack(t)
	rec := doRequest(t, api.Router(), http.MethodGet, "/sessions/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "Session not found" {
		t.Errorf("unexpected error %q", body["error"])
	}
}

func TestAPI_ListSessions(t *testing.T) {
	api, _, _ := newTestStack(t)
	router := api.Router()
	doRequest(t, router, http.MethodPost, "/sessions", map[string]string{"session_id": "a"})
	doRequest(t, router, http.MethodPost, "/sessions", map[string]string{"session_id": "b"})

	rec := doRequest(t, router, http.MethodGet, "/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Sessions []scribe.SessionView `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(body.Sessions))
	}
}

func TestAPI_DeleteSession(t *testing.T) {
	api, _, _ := newTestStack(t)
	router := api.Router()
	doRequest(t, router, http.MethodPost, "/sessions", map[string]string{"session_id": "s1"})

	rec := doRequest(t, router, http.MethodDelete, "/sessions/s1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/sessions/s1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected session gone, got %d", rec.Code)
	}
}

func TestAPI_CorrectSpeaker(t *testing.T) {
	api, _, _ := newTestStack(t)
	router := api.Router()
	doRequest(t, router, http.MethodPost, "/sessions", map[string]string{"session_id": "s1"})

	rec := doRequest(t, router, http.MethodPost, "/sessions/s1/speaker", map[string]int{"speaker": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/sessions/s1/speaker-stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats scribe.SpeakerStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.CurrentSpeaker != 2 {
		t.Errorf("expected corrected speaker 2, got %d", stats.CurrentSpeaker)
	}
}

func TestAPI_CorrectSpeakerValidation(t *testing.T) {
	api, _, _ := newTestStack(t)
	router := api.Router()
	doRequest(t, router, http.MethodPost, "/sessions", map[string]string{"session_id": "s1"})

	rec := doRequest(t, router, http.MethodPost, "/sessions/s1/speaker", map[string]int{"speaker": 7})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for out-of-range speaker, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/sessions/ghost/speaker", map[string]int{"speaker": 1})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing session, got %d", rec.Code)
	}
}

func TestAPI_SpeakerStatsNotFound(t *testing.T) {
	api, _, _ := newTestStack(t)
	rec := doRequest(t, api.Router(), http.MethodGet, "/sessions/ghost/speaker-stats", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
