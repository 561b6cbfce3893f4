package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/logging"
	"pdfscribe/internal/ports"
)

const DefaultURL = "wss://api.openai.com/v1/realtime?intent=transcription"

var (
	ErrBackpressure  = errors.New("outbound queue is full")
	ErrSessionClosed = errors.New("realtime session closed")
)

// Config controls the realtime websocket endpoint.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	QueueSize        int
}

// Provider implements ports.RealtimeProvider over a websocket.
type Provider struct {
	cfg    Config
	logger *slog.Logger
}

func NewProvider(cfg Config) *Provider {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Provider{cfg: cfg, logger: logging.For("realtime")}
}

// Subprotocols carries the credential in the websocket sub-protocol negotiation.
func Subprotocols(token string) []string {
	return []string{
		"realtime",
		"openai-insecure-api-key." + token,
		"openai-beta.realtime-v1",
	}
}

func (p *Provider) Connect(ctx context.Context, credential domain.Credential) (ports.RealtimeSession, error) {
	if !credential.Valid() {
		return nil, domain.ErrMissingCredential
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: p.cfg.HandshakeTimeout,
		Subprotocols:     Subprotocols(credential.Value),
	}

	conn, resp, err := dialer.DialContext(ctx, p.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to realtime websocket (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to realtime websocket: %w", err)
	}

	session := &streamingSession{
		conn:     conn,
		logger:   p.logger,
		events:   make(chan domain.ServerEvent, p.cfg.QueueSize),
		outbound: make(chan []byte, p.cfg.QueueSize),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		_ = conn.Close()
		close(session.done)
	}()

	return session, nil
}

type streamingSession struct {
	conn   *websocket.Conn
	logger *slog.Logger

	events   chan domain.ServerEvent
	outbound chan []byte
	closing  chan struct{}
	done     chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

func (s *streamingSession) UpdateSession(cfg ports.TranscriptionConfig) (domain.WireMessage, error) {
	msg, err := EncodeSessionUpdate(cfg)
	if err != nil {
		return domain.WireMessage{}, err
	}
	return msg, s.enqueue(msg)
}

func (s *streamingSession) AppendAudio(samples []byte) (domain.WireMessage, error) {
	if len(samples) == 0 {
		return domain.WireMessage{}, errors.New("empty audio block")
	}
	msg, err := EncodeAudioAppend(samples)
	if err != nil {
		return domain.WireMessage{}, err
	}
	return msg, s.enqueue(msg)
}

func (s *streamingSession) Events() <-chan domain.ServerEvent {
	return s.events
}

func (s *streamingSession) Done() <-chan struct{} {
	return s.done
}

func (s *streamingSession) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close sends a normal close frame and tears the connection down.
// Queued messages that were not yet written are discarded.
func (s *streamingSession) Close() error {
	s.shutdown(true)
	<-s.done
	return s.Err()
}

func (s *streamingSession) enqueue(msg domain.WireMessage) error {
	select {
	case <-s.closing:
		return ErrSessionClosed
	default:
	}

	select {
	case s.outbound <- msg.Payload:
		return nil
	case <-s.closing:
		return ErrSessionClosed
	default:
		return ErrBackpressure
	}
}

func (s *streamingSession) shutdown(graceful bool) {
	s.closeOnce.Do(func() {
		close(s.closing)
		if graceful && s.conn != nil {
			deadline := time.Now().Add(time.Second)
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		}
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

func (s *streamingSession) closingRequested() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

func (s *streamingSession) setErr(err error) {
	if err == nil {
		return
	}
	if isOrderlyClose(err) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// isOrderlyClose reports whether err, possibly wrapped, is a close frame
// from a peer that ended the stream on purpose.
func isOrderlyClose(err error) bool {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	switch closeErr.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
		return true
	}
	return false
}

func (s *streamingSession) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.closing:
			return
		case payload := <-s.outbound:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !s.closingRequested() {
					s.setErr(fmt.Errorf("failed to send realtime message: %w", err))
				}
				s.shutdown(false)
				return
			}
		}
	}
}

func (s *streamingSession) readLoop() {
	defer s.wg.Done()
	defer s.shutdown(false)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closingRequested() {
				s.setErr(fmt.Errorf("failed to read realtime event: %w", err))
			}
			return
		}

		event, err := DecodeServerEvent(payload)
		if err != nil {
			s.logger.Warn("dropping malformed realtime frame", "error", err, "bytes", len(payload))
			continue
		}

		select {
		case s.events <- event:
		case <-s.closing:
			return
		}
	}
}
