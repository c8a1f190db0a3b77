// Package transport exposes the scribe service over WebSocket and REST.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/medscribe/scribe-gateway/internal/observability"
	"github.com/medscribe/scribe-gateway/internal/scribe"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin policy is enforced at the HTTP layer via CORS;
		// the browser client connects from a different origin
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// clientMessage is the inbound event envelope
type clientMessage struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id,omitempty"`
	AudioData string `json:"audio_data,omitempty"`
	Speaker   *int   `json:"speaker,omitempty"`
}

// Envelope is the outbound event envelope
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EncodeEvent wraps a payload in the outbound envelope
func EncodeEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// DecodeEvent parses an outbound envelope
func DecodeEvent(raw []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(raw, &env)
	return env, err
}

// Hub fans session events out to every connected client. It implements
// scribe.EventPublisher; Publish never blocks, a client whose queue is
// full misses the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	log     zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		log:     log,
	}
}

// Publish broadcasts one event to all connected clients
func (h *Hub) Publish(event string, payload any) {
	msg, err := EncodeEvent(event, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(msg)
	}
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// wsClient is one connected WebSocket peer. Writes go through a buffered
// queue drained by a single writer goroutine; gorilla connections do not
// allow concurrent writers.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	log  zerolog.Logger
}

func newWSClient(conn *websocket.Conn, log zerolog.Logger) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
		log:  log,
	}
}

// enqueue queues a message for delivery, dropping it if the client is slow
func (c *wsClient) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
		c.log.Warn().Msg("client send queue full, dropping event")
	}
}

func (c *wsClient) writeLoop() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.log.Debug().Err(err).Msg("write failed, stopping writer")
			return
		}
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// sendEvent delivers an event to this client only
func (c *wsClient) sendEvent(event string, payload any) {
	msg, err := EncodeEvent(event, payload)
	if err != nil {
		c.log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}
	c.enqueue(msg)
}

// WSHandler upgrades HTTP requests and runs the per-client event loop
type WSHandler struct {
	hub *Hub
	svc *scribe.Service
	log zerolog.Logger
}

// NewWSHandler creates the WebSocket endpoint handler
func NewWSHandler(hub *Hub, svc *scribe.Service, log zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, svc: svc, log: log}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	correlationID := observability.NewCorrelationID()
	log := h.log.With().Str("correlation_id", correlationID).Logger()

	client := newWSClient(conn, log)
	h.hub.add(client)
	defer func() {
		h.hub.remove(client)
		client.close()
		log.Info().Msg("client disconnected")
	}()

	go client.writeLoop()
	client.sendEvent(scribe.EventConnected, map[string]string{
		"data": "Connected to Medical Scribe Server",
	})
	log.Info().Msg("client connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("unexpected close")
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			client.sendEvent(scribe.EventError, scribe.ErrorEvent{Message: "Invalid message format"})
			continue
		}
		h.dispatch(client, msg)
	}
}

// dispatch routes one inbound event. Request-level failures go back to the
// requesting client only; session events reach everyone through the hub.
func (h *WSHandler) dispatch(client *wsClient, msg clientMessage) {
	switch msg.Event {
	case "start_recording":
		if msg.SessionID == "" {
			client.sendEvent(scribe.EventError, scribe.ErrorEvent{Message: "Session ID is required"})
			return
		}
		h.svc.CreateSession(msg.SessionID)
		if err := h.svc.StartRecording(context.Background(), msg.SessionID); err != nil {
			client.sendEvent(scribe.EventError, scribe.ErrorEvent{
				SessionID: msg.SessionID,
				Message:   err.Error(),
			})
		}

	case "audio_chunk":
		if msg.SessionID == "" || msg.AudioData == "" {
			client.sendEvent(scribe.EventError, scribe.ErrorEvent{Message: "Session ID and audio data are required"})
			return
		}
		if err := h.svc.AddAudioChunk(msg.SessionID, msg.AudioData); err != nil {
			client.sendEvent(scribe.EventTranscriptionError, scribe.TranscriptionErrorEvent{
				SessionID: msg.SessionID,
				Error:     err.Error(),
			})
		}

	case "stop_recording":
		if msg.SessionID == "" {
			client.sendEvent(scribe.EventError, scribe.ErrorEvent{Message: "Session ID is required"})
			return
		}
		if _, err := h.svc.StopRecording(msg.SessionID); err != nil {
			client.sendEvent(scribe.EventError, scribe.ErrorEvent{
				SessionID: msg.SessionID,
				Message:   "Failed to stop recording",
			})
			return
		}
		h.svc.GenerateNoteAsync(msg.SessionID)

	case "correct_speaker":
		if msg.SessionID == "" || msg.Speaker == nil {
			client.sendEvent(scribe.EventError, scribe.ErrorEvent{Message: "Session ID and speaker are required"})
			return
		}
		if err := h.svc.CorrectSpeaker(msg.SessionID, *msg.Speaker); err != nil {
			client.sendEvent(scribe.EventError, scribe.ErrorEvent{
				SessionID: msg.SessionID,
				Message:   err.Error(),
			})
		}

	default:
		client.sendEvent(scribe.EventError, scribe.ErrorEvent{Message: "Unknown event: " + msg.Event})
	}
}
