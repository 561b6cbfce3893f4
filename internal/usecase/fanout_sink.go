package usecase

import (
	"pdfscribe/internal/domain"
	"pdfscribe/internal/ports"
)

// FanoutSink forwards every event to each sink in order.
type FanoutSink []ports.EventSink

func (f FanoutSink) SessionStatusChanged(status domain.SessionStatus) {
	for _, sink := range f {
		sink.SessionStatusChanged(status)
	}
}

func (f FanoutSink) ConnectionChanged(connected bool) {
	for _, sink := range f {
		sink.ConnectionChanged(connected)
	}
}

func (f FanoutSink) RecordingChanged(recording bool) {
	for _, sink := range f {
		sink.RecordingChanged(recording)
	}
}

func (f FanoutSink) TranscriptChanged(transcript string) {
	for _, sink := range f {
		sink.TranscriptChanged(transcript)
	}
}

func (f FanoutSink) EventLogged(entry domain.LogEntry) {
	for _, sink := range f {
		sink.EventLogged(entry)
	}
}

func (f FanoutSink) EventLogCleared() {
	for _, sink := range f {
		sink.EventLogCleared()
	}
}

func (f FanoutSink) SessionError(kind domain.ErrorKind, message string) {
	for _, sink := range f {
		sink.SessionError(kind, message)
	}
}

func (f FanoutSink) SuggestionReady(suggestion domain.Suggestion) {
	for _, sink := range f {
		sink.SuggestionReady(suggestion)
	}
}
