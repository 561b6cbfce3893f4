package domain

import (
	"encoding/json"
	"time"
)

// SessionStatus tracks whether an ephemeral credential is held.
// CONNECTED does not imply an open transport.
type SessionStatus string

const (
	SessionStatusDisconnected SessionStatus = "DISCONNECTED"
	SessionStatusConnected    SessionStatus = "CONNECTED"
)

// ConnectionState is the transport state recorded at open/close time.
type ConnectionState string

const (
	ConnectionClosed     ConnectionState = "closed"
	ConnectionConnecting ConnectionState = "connecting"
	ConnectionOpen       ConnectionState = "open"
)

// Direction tags an Event Log entry with the side that produced it.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Credential is a short-lived bearer token for exactly one transport connection.
type Credential struct {
	Value     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Valid reports whether the credential carries a token.
func (c Credential) Valid() bool {
	return c.Value != ""
}

// LogEntry is one diagnostic record of protocol traffic.
type LogEntry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Direction Direction       `json:"direction"`
	Payload   json.RawMessage `json:"payload"`
}

// WireMessage is an outbound protocol message as it was queued on the transport.
type WireMessage struct {
	Type    string
	Payload json.RawMessage
}

// ServerEventKind classifies inbound protocol messages.
type ServerEventKind string

const (
	ServerEventDelta     ServerEventKind = "delta"
	ServerEventCompleted ServerEventKind = "completed"
	ServerEventError     ServerEventKind = "error"
	ServerEventOther     ServerEventKind = "other"
)

// ServerEvent is a decoded inbound protocol message.
type ServerEvent struct {
	Type    string
	Kind    ServerEventKind
	Text    string
	Message string
	Raw     json.RawMessage
}

// Snapshot is the caller-visible state of a transcription session.
type Snapshot struct {
	Status     SessionStatus `json:"sessionStatus"`
	Connected  bool          `json:"isWebSocketConnected"`
	Recording  bool          `json:"isRecording"`
	Loading    bool          `json:"isLoading"`
	HasKey     bool          `json:"hasEphemeralKey"`
	Transcript string        `json:"transcript"`
	Error      string        `json:"error,omitempty"`
	EventLogs  []LogEntry    `json:"eventLogs"`
}

// FieldFocus describes the PDF form field that currently has focus.
type FieldFocus struct {
	FieldName string          `json:"fieldName,omitempty"`
	FieldType string          `json:"fieldType,omitempty"`
	Value     string          `json:"value,omitempty"`
	Page      int             `json:"page,omitempty"`
	Extra     json.RawMessage `json:"extra,omitempty"`
}

// SuggestionRequest is the input to the suggestion service.
type SuggestionRequest struct {
	Transcript  string      `json:"transcript,omitempty"`
	ScreenImage string      `json:"screenImage,omitempty"`
	Annotation  *FieldFocus `json:"annotationData,omitempty"`
}

// Suggestion is a short natural-language hint, or None when the model had nothing to add.
type Suggestion struct {
	Text string `json:"suggestion"`
	None bool   `json:"none"`
}

// ExportResult is returned when the transcript is exported to the clipboard.
type ExportResult struct {
	RawTranscript   string `json:"rawTranscript"`
	FinalTranscript string `json:"finalTranscript"`
	Copied          bool   `json:"copied"`
}

// PDFInfo describes a stored PDF document.
type PDFInfo struct {
	Name         string    `json:"name"`
	DisplayName  string    `json:"displayName"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}
