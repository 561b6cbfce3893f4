package domain

import "errors"

// ErrorKind groups session failures into the categories surfaced to callers.
type ErrorKind string

const (
	ErrorKindCredential ErrorKind = "credential"
	ErrorKindConnection ErrorKind = "connection"
	ErrorKindRecording  ErrorKind = "recording"
	ErrorKindProtocol   ErrorKind = "protocol"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrAlreadyConnected  = errors.New("a transport connection is already live")
	ErrAlreadyRecording  = errors.New("recording is already active")
)

// Error is a typed session failure. Message is what callers display.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func CredentialError(message string, err error) *Error {
	return &Error{Kind: ErrorKindCredential, Message: message, Err: err}
}

func ConnectionError(message string, err error) *Error {
	return &Error{Kind: ErrorKindConnection, Message: message, Err: err}
}

func RecordingError(message string, err error) *Error {
	return &Error{Kind: ErrorKindRecording, Message: message, Err: err}
}

func ProtocolError(message string) *Error {
	return &Error{Kind: ErrorKindProtocol, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind, true
	}
	return "", false
}
