package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/medscribe/scribe-gateway/internal/config"
	"github.com/medscribe/scribe-gateway/internal/notes"
	"github.com/medscribe/scribe-gateway/internal/scribe"
	"github.com/medscribe/scribe-gateway/internal/stt"
)

// stubConn is a no-op live connection that reports a clean close on Finish
type stubConn struct {
	mu       sync.Mutex
	handler  stt.Handler
	sent     int
	finished bool
}

func (s *stubConn) Send([]byte) error {
	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
	return nil
}

func (s *stubConn) Finish() error {
	s.mu.Lock()
	s.finished = true
	h := s.handler
	s.mu.Unlock()
	h.OnClose()
	return nil
}

// stubDialer hands out stub connections and keeps the handlers
type stubDialer struct {
	mu       sync.Mutex
	handlers []stt.Handler
}

func (d *stubDialer) Dial(_ context.Context, h stt.Handler) (stt.LiveConnection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
	return &stubConn{handler: h}, nil
}

// stubGenerator returns a fixed note
type stubGenerator struct {
	note string
}

func (g *stubGenerator) GenerateSOAP(context.Context, string) (string, error) {
	return g.note, nil
}

func (g *stubGenerator) Probe(context.Context) notes.ProbeResult {
	return notes.ProbeResult{Status: "working", Model: "gemini-1.5-flash", Message: "Gemini API is configured and working"}
}

func newTestStack(t *testing.T) (*API, *stubDialer, *Hub) {
	t.Helper()
	dialer := &stubDialer{}
	gen := &stubGenerator{note: "SUBJECTIVE: headache"}
	cfg := &config.Config{
		CORSOrigins: []string{"http://localhost:3000"},
		NoteTimeout: 5,
	}

	hub := NewHub(zerolog.Nop())
	registry := scribe.NewRegistry()
	streamer := scribe.NewStreamer(dialer, zerolog.Nop())
	orch := scribe.NewNoteOrchestrator(registry, gen, hub, 5*time.Second, zerolog.Nop())
	svc := scribe.NewService(registry, streamer, orch, hub, zerolog.Nop())

	ws := NewWSHandler(hub, svc, zerolog.Nop())
	return NewAPI(svc, gen, cfg, ws, zerolog.Nop()), dialer, hub
}

func readEvent(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	env, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return env
}

func sendMessage(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestEventEnvelopeRoundTrip(t *testing.T) {
	speaker := 2
	payload := scribe.LiveTranscriptionEvent{
		SessionID:       "s1",
		TranscriptChunk: "Speaker 2: I have a headache",
		RawText:         "I have a headache",
		Speaker:         &speaker,
		FullTranscript:  "Speaker 1: Hello Speaker 2: I have a headache",
	}

	raw, err := EncodeEvent(scribe.EventLiveTranscription, payload)
	if err != nil {
		t.Fatal(err)
	}

	env, err := DecodeEvent(raw)
	if err != nil {
		t.Fatal(err)
	}
	if env.Event != scribe.EventLiveTranscription {
		t.Errorf("expected event %q, got %q", scribe.EventLiveTranscription, env.Event)
	}

	var got scribe.LiveTranscriptionEvent
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.RawText != payload.RawText {
		t.Errorf("raw text lost in transit: %q", got.RawText)
	}
	if got.Speaker == nil || *got.Speaker != 2 {
		t.Errorf("speaker lost in transit: %v", got.Speaker)
	}
	if got.FullTranscript != payload.FullTranscript {
		t.Errorf("full transcript lost in transit: %q", got.FullTranscript)
	}
}

func TestWebSocket_RecordingFlow(t *testing.T) {
	api, dialer, _ := newTestStack(t)
	server := httptest.NewServer(api.Router())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if env := readEvent(t, conn); env.Event != scribe.EventConnected {
		t.Fatalf("expected connected greeting, got %q", env.Event)
	}

	sendMessage(t, conn, map[string]any{"event": "start_recording", "session_id": "s1"})
	if env := readEvent(t, conn); env.Event != scribe.EventRecordingStarted {
		t.Fatalf("expected recording_started, got %q", env.Event)
	}

	chunk := base64.StdEncoding.EncodeToString([]byte{0, 1, 2, 3})
	sendMessage(t, conn, map[string]any{"event": "audio_chunk", "session_id": "s1", "audio_data": chunk})

	// Simulate a provider utterance; it reaches the client as a broadcast
	var handler stt.Handler
	deadline := time.Now().Add(2 * time.Second)
	for handler == nil {
		dialer.mu.Lock()
		if len(dialer.handlers) > 0 {
			handler = dialer.handlers[0]
		}
		dialer.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatal("stream never dialed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	handler.OnUtterance(stt.Utterance{Text: "I have a pounding headache since yesterday morning"})

	env := readEvent(t, conn)
	if env.Event != scribe.EventLiveTranscription {
		t.Fatalf("expected live_transcription, got %q", env.Event)
	}
	var live scribe.LiveTranscriptionEvent
	if err := json.Unmarshal(env.Data, &live); err != nil {
		t.Fatal(err)
	}
	if live.RawText != "I have a pounding headache since yesterday morning" {
		t.Errorf("unexpected raw text %q", live.RawText)
	}
	if live.Speaker == nil || *live.Speaker != 2 {
		t.Errorf("expected inferred speaker 2, got %v", live.Speaker)
	}

	sendMessage(t, conn, map[string]any{"event": "stop_recording", "session_id": "s1"})
	if env := readEvent(t, conn); env.Event != scribe.EventRecordingStopped {
		t.Fatalf("expected recording_stopped, got %q", env.Event)
	}
	if env := readEvent(t, conn); env.Event != scribe.EventSOAPNoteComplete {
		t.Fatalf("expected soap_note_complete, got %q", env.Event)
	}
}

func TestWebSocket_ValidationErrors(t *testing.T) {
	api, _, _ := newTestStack(t)
	server := httptest.NewServer(api.Router())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	readEvent(t, conn) // connected

	sendMessage(t, conn, map[string]any{"event": "start_recording"})
	env := readEvent(t, conn)
	if env.Event != scribe.EventError {
		t.Fatalf("expected error event, got %q", env.Event)
	}
	var payload scribe.ErrorEvent
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Message != "Session ID is required" {
		t.Errorf("unexpected message %q", payload.Message)
	}

	sendMessage(t, conn, map[string]any{"event": "audio_chunk", "session_id": "s1"})
	if env := readEvent(t, conn); env.Event != scribe.EventError {
		t.Fatalf("expected error for missing audio data, got %q", env.Event)
	}

	sendMessage(t, conn, map[string]any{"event": "warp_drive"})
	if env := readEvent(t, conn); env.Event != scribe.EventError {
		t.Fatalf("expected error for unknown event, got %q", env.Event)
	}
}

func TestWebSocket_AudioChunkBeforeStart(t *testing.T) {
	api, _, _ := newTestStack(t)
	server := httptest.NewServer(api.Router())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	readEvent(t, conn) // connected

	chunk := base64.StdEncoding.EncodeToString([]byte{1})
	sendMessage(t, conn, map[string]any{"event": "audio_chunk", "session_id": "ghost", "audio_data": chunk})

	env := readEvent(t, conn)
	if env.Event != scribe.EventTranscriptionError {
		t.Fatalf("expected transcription_error, got %q", env.Event)
	}
}

func TestHub_PublishWithNoClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	// Must not panic or block
	hub.Publish(scribe.EventError, scribe.ErrorEvent{Message: "nobody listening"})
	if hub.ClientCount() != 0 {
		t.Errorf("expected no clients, got %d", hub.ClientCount())
	}
}
