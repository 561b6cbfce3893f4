package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/logging"
)

// Event names pushed to socket clients.
const (
	EventSnapshot   = "snapshot"
	EventStatus     = "session.status"
	EventConnection = "session.connection"
	EventRecording  = "session.recording"
	EventTranscript = "session.transcript"
	EventLog        = "session.log"
	EventLogCleared = "session.log_cleared"
	EventError      = "session.error"
	EventSuggestion = "assist.suggestion"
)

const clientQueue = 64

// Message is the envelope of every server-to-browser socket frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type hubClient struct {
	send chan []byte
}

// Hub fans session events out to connected browsers. It implements
// ports.EventSink. Slow clients lose messages rather than stall the session.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

func NewHub() *Hub {
	return &Hub{logger: logging.For("hub"), clients: map[*hubClient]struct{}{}}
}

func (h *Hub) register() *hubClient {
	client := &hubClient{send: make(chan []byte, clientQueue)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	return client
}

func (h *Hub) unregister(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Clients reports how many browsers are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(eventType string, data any) {
	payload, err := json.Marshal(Message{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("encode socket event failed", "type", eventType, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("socket client queue full", "type", eventType)
		}
	}
}

func (h *Hub) SessionStatusChanged(status domain.SessionStatus) {
	h.broadcast(EventStatus, fiber.Map{"status": status})
}

func (h *Hub) ConnectionChanged(connected bool) {
	h.broadcast(EventConnection, fiber.Map{"connected": connected})
}

func (h *Hub) RecordingChanged(recording bool) {
	h.broadcast(EventRecording, fiber.Map{"recording": recording})
}

func (h *Hub) TranscriptChanged(transcript string) {
	h.broadcast(EventTranscript, fiber.Map{"transcript": transcript})
}

func (h *Hub) EventLogged(entry domain.LogEntry) {
	h.broadcast(EventLog, entry)
}

func (h *Hub) EventLogCleared() {
	h.broadcast(EventLogCleared, nil)
}

func (h *Hub) SessionError(kind domain.ErrorKind, message string) {
	h.broadcast(EventError, fiber.Map{"kind": kind, "message": message})
}

func (h *Hub) SuggestionReady(suggestion domain.Suggestion) {
	h.broadcast(EventSuggestion, suggestion)
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// socket streams session events to the browser. With ?audio=1 the browser
// also becomes the capture source: binary frames carry float32 LE samples.
func (s *Server) socket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		hub := s.deps.Hub
		client := hub.register()
		defer hub.unregister(client)

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for payload := range client.send {
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					s.logger.Debug("socket write failed", "error", err)
					_ = conn.Close()
					for range client.send {
					}
					return
				}
			}
		}()

		s.sendDirect(client, EventSnapshot, s.deps.Session.Snapshot())

		if conn.Query("audio") == "1" {
			detach, err := s.attachAudio()
			if err != nil {
				s.sendDirect(client, EventError, fiber.Map{"kind": domain.ErrorKindRecording, "message": err.Error()})
			} else {
				defer detach()
				s.logger.Info("browser audio source attached")
			}
		}

		s.readSocket(conn)

		hub.unregister(client)
		<-writerDone
	})
}

func (s *Server) attachAudio() (func(), error) {
	if s.deps.Feed == nil {
		return nil, errors.New("browser audio is not enabled")
	}
	return s.deps.Feed.Attach()
}

func (s *Server) sendDirect(client *hubClient, eventType string, data any) {
	payload, err := json.Marshal(Message{Type: eventType, Data: data})
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

func (s *Server) readSocket(conn *websocket.Conn) {
	for {
		messageType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("socket closed")
			} else {
				s.logger.Debug("socket read failed", "error", err)
			}
			return
		}
		if messageType != websocket.BinaryMessage || s.deps.Feed == nil {
			continue
		}
		s.deps.Feed.Write(msg)
	}
}
