package usecase

import (
	"context"
	"sync"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/ports"
)

type activeTransport struct {
	session ports.RealtimeSession
	done    chan struct{}
}

type activeRecording struct {
	cancel context.CancelFunc
	audio  ports.AudioSession
	done   chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// stop releases the capture source; the pump exits on its next read.
func (r *activeRecording) stop() error {
	r.stopOnce.Do(func() {
		r.cancel()
		r.stopErr = r.audio.Stop()
	})
	return r.stopErr
}

type noopSink struct{}

func (noopSink) SessionStatusChanged(domain.SessionStatus) {}
func (noopSink) ConnectionChanged(bool)                    {}
func (noopSink) RecordingChanged(bool)                     {}
func (noopSink) TranscriptChanged(string)                  {}
func (noopSink) EventLogged(domain.LogEntry)               {}
func (noopSink) EventLogCleared()                          {}
func (noopSink) SessionError(domain.ErrorKind, string)     {}
func (noopSink) SuggestionReady(domain.Suggestion)         {}
