package ports

import (
	"context"
	"io"

	"pdfscribe/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate       int
	Channels         int
	InputFormat      string
	InputDevice      string
	EchoCancelDevice string
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// AudioSession is a live capture yielding 32-bit float little-endian samples.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// CredentialSource obtains ephemeral transcription credentials.
type CredentialSource interface {
	Fetch(ctx context.Context) (domain.Credential, error)
}

// TurnDetection configures server-side utterance segmentation.
type TurnDetection struct {
	Type              string
	SilenceDurationMs int
	Threshold         float64
}

// TranscriptionConfig is sent as the first message on every connection.
type TranscriptionConfig struct {
	Model         string
	Language      string
	TurnDetection TurnDetection
}

// RealtimeSession is one open streaming connection to the speech service.
type RealtimeSession interface {
	UpdateSession(cfg TranscriptionConfig) (domain.WireMessage, error)
	AppendAudio(pcm []byte) (domain.WireMessage, error)
	Events() <-chan domain.ServerEvent
	Done() <-chan struct{}
	Err() error
	Close() error
}

// RealtimeProvider opens streaming connections with a credential.
type RealtimeProvider interface {
	Connect(ctx context.Context, credential domain.Credential) (RealtimeSession, error)
}

// Suggester asks the language model for a form-filling hint.
type Suggester interface {
	Suggest(ctx context.Context, req domain.SuggestionRequest) (domain.Suggestion, error)
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink receives session state changes for the UI.
// SessionError with an empty message means the error was cleared.
type EventSink interface {
	SessionStatusChanged(status domain.SessionStatus)
	ConnectionChanged(connected bool)
	RecordingChanged(recording bool)
	TranscriptChanged(transcript string)
	EventLogged(entry domain.LogEntry)
	EventLogCleared()
	SessionError(kind domain.ErrorKind, message string)
	SuggestionReady(suggestion domain.Suggestion)
}
