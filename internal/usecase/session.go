package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/logging"
	"pdfscribe/internal/ports"
)

// Config controls the realtime transcription session.
type Config struct {
	Audio         ports.AudioConfig
	Transcription ports.TranscriptionConfig
	BlockSize     int
	LogCapacity   int
	Now           func() time.Time
}

// Deps are the collaborators a Session drives.
type Deps struct {
	Credentials ports.CredentialSource
	Provider    ports.RealtimeProvider
	Audio       ports.AudioCapture
	Events      ports.EventSink
	Logger      *slog.Logger
}

// Session owns one credential, at most one live transport and at most one
// recording. Reactions to transport and capture I/O are serialized by mu.
type Session struct {
	credentials ports.CredentialSource
	provider    ports.RealtimeProvider
	audio       ports.AudioCapture
	events      ports.EventSink
	logger      *slog.Logger
	cfg         Config

	transcript *transcriptBuffer
	log        *eventLog

	mu         sync.Mutex
	status     domain.SessionStatus
	credential *domain.Credential
	loading    bool
	connState  domain.ConnectionState
	transport  *activeTransport
	recording  *activeRecording
	starting   bool
	errMessage string
}

func NewSession(deps Deps, cfg Config) *Session {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 4096
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = 24000
	}
	if cfg.Audio.Channels == 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = "gpt-4o-mini-transcribe"
	}
	td := &cfg.Transcription.TurnDetection
	if td.Type == "" {
		td.Type = "server_vad"
	}
	if td.SilenceDurationMs <= 0 {
		td.SilenceDurationMs = 800
	}
	if td.Threshold <= 0 {
		td.Threshold = 0.5
	}
	events := deps.Events
	if events == nil {
		events = noopSink{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.For("session")
	}
	return &Session{
		credentials: deps.Credentials,
		provider:    deps.Provider,
		audio:       deps.Audio,
		events:      events,
		logger:      logger,
		cfg:         cfg,
		transcript:  newTranscriptBuffer(),
		log:         newEventLog(cfg.LogCapacity, cfg.Now),
		status:      domain.SessionStatusDisconnected,
		connState:   domain.ConnectionClosed,
	}
}

// FetchCredential obtains a fresh ephemeral credential. Any unconsumed
// credential is discarded first.
func (s *Session) FetchCredential(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.credential = nil
	s.errMessage = ""
	s.mu.Unlock()
	s.events.SessionError("", "")

	s.logger.Info("fetch_session_token_request")
	cred, err := s.credentials.Fetch(ctx)
	if err == nil && !cred.Valid() {
		err = domain.CredentialError("No ephemeral key provided by the server", nil)
	}
	s.logger.Info("fetch_session_token_response", "ok", err == nil, "expires_at", cred.ExpiresAt)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.status = domain.SessionStatusDisconnected
		s.mu.Unlock()
		s.events.SessionStatusChanged(domain.SessionStatusDisconnected)
		typed := asCredentialError(err)
		s.fail(typed)
		return typed
	}
	s.credential = &cred
	s.status = domain.SessionStatusConnected
	s.mu.Unlock()

	s.events.SessionStatusChanged(domain.SessionStatusConnected)
	return nil
}

// Connect consumes the held credential and opens the streaming transport.
// The session configuration is always the first outgoing message.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.transport != nil || s.connState != domain.ConnectionClosed {
		s.mu.Unlock()
		err := domain.ConnectionError("Cannot connect", domain.ErrAlreadyConnected)
		s.fail(err)
		return err
	}
	if s.credential == nil {
		s.mu.Unlock()
		err := domain.ConnectionError("Cannot connect", domain.ErrMissingCredential)
		s.fail(err)
		return err
	}
	cred := *s.credential
	s.credential = nil
	s.connState = domain.ConnectionConnecting
	s.mu.Unlock()

	rt, err := s.provider.Connect(ctx, cred)
	if err != nil {
		s.mu.Lock()
		s.connState = domain.ConnectionClosed
		s.status = domain.SessionStatusDisconnected
		entry := s.log.AppendValue("connection.error", domain.DirectionIncoming, map[string]string{"error": err.Error()})
		s.mu.Unlock()

		s.events.EventLogged(entry)
		s.events.SessionStatusChanged(domain.SessionStatusDisconnected)
		typed := domain.ConnectionError("Failed to connect WebSocket", err)
		s.fail(typed)
		return typed
	}

	active := &activeTransport{session: rt, done: make(chan struct{})}

	s.mu.Lock()
	s.transport = active
	opened := s.log.AppendValue("connection.opened", domain.DirectionIncoming, map[string]string{"status": "connected"})
	msg, sendErr := rt.UpdateSession(s.cfg.Transcription)
	var configured domain.LogEntry
	if sendErr == nil {
		configured = s.log.Append(msg.Type, domain.DirectionOutgoing, msg.Payload)
		s.connState = domain.ConnectionOpen
	} else {
		s.transport = nil
		s.connState = domain.ConnectionClosed
		s.status = domain.SessionStatusDisconnected
	}
	s.mu.Unlock()

	s.events.EventLogged(opened)
	if sendErr != nil {
		_ = rt.Close()
		s.events.SessionStatusChanged(domain.SessionStatusDisconnected)
		typed := domain.ConnectionError("Failed to configure transcription session", sendErr)
		s.fail(typed)
		return typed
	}
	s.events.EventLogged(configured)
	s.events.ConnectionChanged(true)
	s.logger.Info("transport connected", "model", s.cfg.Transcription.Model)

	go s.watch(active)
	return nil
}

// Disconnect closes the live transport, if any, and waits for its teardown.
func (s *Session) Disconnect() {
	s.mu.Lock()
	active := s.transport
	s.mu.Unlock()
	if active == nil {
		return
	}
	_ = active.session.Close()
	<-active.done
}

// StartRecording acquires the microphone and begins streaming blocks.
// Blocks captured while the transport is not open are dropped.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.recording != nil || s.starting {
		s.mu.Unlock()
		err := domain.RecordingError("Cannot start recording", domain.ErrAlreadyRecording)
		s.fail(err)
		return err
	}
	s.starting = true
	s.mu.Unlock()

	recCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	audio, err := s.audio.Start(recCtx, s.cfg.Audio)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		typed := domain.RecordingError("Failed to start recording", err)
		s.fail(typed)
		return typed
	}

	rec := &activeRecording{cancel: cancel, audio: audio, done: make(chan struct{})}

	s.mu.Lock()
	s.starting = false
	s.recording = rec
	entry := s.log.AppendValue("recording.started", domain.DirectionOutgoing, map[string]any{
		"status":     "started",
		"sampleRate": s.cfg.Audio.SampleRate,
		"blockSize":  s.cfg.BlockSize,
	})
	s.mu.Unlock()

	s.events.EventLogged(entry)
	s.events.RecordingChanged(true)
	s.logger.Info("recording started", "sample_rate", s.cfg.Audio.SampleRate)

	go s.pump(rec)
	return nil
}

// StopRecording tears the capture pipeline down. It is safe to call at any
// time and any number of times.
func (s *Session) StopRecording() {
	s.mu.Lock()
	rec := s.recording
	s.recording = nil
	entry := s.log.AppendValue("recording.stopped", domain.DirectionOutgoing, map[string]string{"status": "stopped"})
	s.mu.Unlock()

	if rec != nil {
		if err := rec.stop(); err != nil {
			s.logger.Warn("audio capture did not stop cleanly", "error", err)
		}
		<-rec.done
	}
	s.logger.Info("recording stopped", "was_active", rec != nil)

	s.events.EventLogged(entry)
	s.events.RecordingChanged(false)
}

func (s *Session) ClearTranscript() {
	s.transcript.Clear()
	s.events.TranscriptChanged("")
}

func (s *Session) ClearLogs() {
	s.log.Clear()
	s.events.EventLogCleared()
}

func (s *Session) ClearError() {
	s.mu.Lock()
	s.errMessage = ""
	s.mu.Unlock()
	s.events.SessionError("", "")
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Snapshot{
		Status:     s.status,
		Connected:  s.connState == domain.ConnectionOpen,
		Recording:  s.recording != nil,
		Loading:    s.loading,
		HasKey:     s.credential != nil,
		Transcript: s.transcript.String(),
		Error:      s.errMessage,
		EventLogs:  s.log.Entries(),
	}
}

func (s *Session) Transcript() string {
	return s.transcript.String()
}

// TranscriptTail returns at most n trailing bytes of the transcript.
func (s *Session) TranscriptTail(n int) string {
	return s.transcript.Tail(n)
}

func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording != nil
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState == domain.ConnectionOpen
}

// Close stops recording and closes the transport.
func (s *Session) Close() {
	s.StopRecording()
	s.Disconnect()
}

func (s *Session) watch(active *activeTransport) {
	defer close(active.done)

	for ev := range active.session.Events() {
		s.handleServerEvent(active, ev)
	}
	<-active.session.Done()
	s.handleTransportClosed(active, active.session.Err())
}

func (s *Session) handleServerEvent(active *activeTransport, ev domain.ServerEvent) {
	s.mu.Lock()
	if s.transport != active {
		s.mu.Unlock()
		return
	}
	entry := s.log.Append(ev.Type, domain.DirectionIncoming, ev.Raw)
	s.mu.Unlock()
	s.events.EventLogged(entry)

	switch ev.Kind {
	case domain.ServerEventDelta:
		if ev.Text != "" {
			s.events.TranscriptChanged(s.transcript.AppendDelta(ev.Text))
		}
	case domain.ServerEventCompleted:
		if ev.Text != "" {
			s.events.TranscriptChanged(s.transcript.AppendSegment(ev.Text))
		}
	case domain.ServerEventError:
		s.fail(domain.ProtocolError("WebSocket error: " + ev.Message))
	default:
		s.logger.Debug("realtime event", "type", ev.Type)
	}
}

func (s *Session) handleTransportClosed(active *activeTransport, cause error) {
	s.mu.Lock()
	if s.transport != active {
		s.mu.Unlock()
		return
	}
	s.transport = nil
	s.connState = domain.ConnectionClosed
	s.status = domain.SessionStatusDisconnected
	s.credential = nil

	var entries []domain.LogEntry
	if cause != nil {
		entries = append(entries, s.log.AppendValue("connection.error", domain.DirectionIncoming, map[string]string{"error": cause.Error()}))
	}
	entries = append(entries, s.log.AppendValue("connection.closed", domain.DirectionIncoming, map[string]string{"status": "closed"}))

	rec := s.recording
	s.recording = nil
	if rec != nil {
		entries = append(entries, s.log.AppendValue("recording.stopped", domain.DirectionOutgoing, map[string]string{
			"status": "stopped",
			"reason": "connection_closed",
		}))
	}
	s.mu.Unlock()

	if rec != nil {
		if err := rec.stop(); err != nil {
			s.logger.Warn("audio capture did not stop cleanly", "error", err)
		}
		<-rec.done
	}
	s.logger.Info("transport closed", "error", cause, "recording_stopped", rec != nil)

	for _, entry := range entries {
		s.events.EventLogged(entry)
	}
	if cause != nil {
		s.fail(domain.ConnectionError("WebSocket connection error", cause))
	}
	if rec != nil {
		s.events.RecordingChanged(false)
	}
	s.events.ConnectionChanged(false)
	s.events.SessionStatusChanged(domain.SessionStatusDisconnected)
}

// recordingEnded handles a capture source that ended on its own.
func (s *Session) recordingEnded(rec *activeRecording, cause error) {
	s.mu.Lock()
	if s.recording != rec {
		s.mu.Unlock()
		return
	}
	s.recording = nil
	entry := s.log.AppendValue("recording.stopped", domain.DirectionOutgoing, map[string]string{
		"status": "stopped",
		"reason": "capture_ended",
	})
	s.mu.Unlock()

	_ = rec.stop()
	s.logger.Info("recording stopped", "reason", "capture_ended", "error", cause)

	s.events.EventLogged(entry)
	s.events.RecordingChanged(false)
	if cause != nil && !errors.Is(cause, io.EOF) && !errors.Is(cause, io.ErrUnexpectedEOF) {
		s.fail(domain.RecordingError("Audio capture stopped", cause))
	}
}

func (s *Session) fail(err *domain.Error) {
	message := err.Error()
	s.mu.Lock()
	s.errMessage = message
	s.mu.Unlock()

	s.logger.Warn("session error", "kind", err.Kind, "error", message)
	s.events.SessionError(err.Kind, message)
}

func asCredentialError(err error) *domain.Error {
	var typed *domain.Error
	if errors.As(err, &typed) && typed.Kind == domain.ErrorKindCredential {
		return typed
	}
	return domain.CredentialError("Failed to fetch ephemeral key", err)
}
