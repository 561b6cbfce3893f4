package main

import (
	"fmt"
	"io"
	"sync"

	"pdfscribe/internal/domain"
)

// consoleSink prints session events for a terminal operator.
type consoleSink struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	printed int
}

func newConsoleSink(out io.Writer, verbose bool) *consoleSink {
	return &consoleSink{out: out, verbose: verbose}
}

func (c *consoleSink) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *consoleSink) SessionStatusChanged(status domain.SessionStatus) {
	c.printf("[status] %s\n", status)
}

func (c *consoleSink) ConnectionChanged(connected bool) {
	state := "closed"
	if connected {
		state = "open"
	}
	c.printf("[socket] %s\n", state)
}

func (c *consoleSink) RecordingChanged(recording bool) {
	state := "off"
	if recording {
		state = "on"
	}
	c.printf("[mic] %s\n", state)
}

// TranscriptChanged prints only the text appended since the last update.
func (c *consoleSink) TranscriptChanged(transcript string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(transcript) < c.printed {
		c.printed = 0
		fmt.Fprintln(c.out)
	}
	fmt.Fprint(c.out, transcript[c.printed:])
	c.printed = len(transcript)
}

func (c *consoleSink) EventLogged(entry domain.LogEntry) {
	if !c.verbose {
		return
	}
	c.printf("[%s] %s\n", entry.Direction, entry.Type)
}

func (c *consoleSink) EventLogCleared() {}

func (c *consoleSink) SessionError(kind domain.ErrorKind, message string) {
	if message == "" {
		return
	}
	c.printf("[error:%s] %s\n", kind, message)
}

func (c *consoleSink) SuggestionReady(suggestion domain.Suggestion) {
	c.printf("[suggestion] %s\n", suggestion.Text)
}
