package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeRules struct {
	transform string
	err       error
}

func (f *fakeRules) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.transform != "" {
		return f.transform, nil
	}
	return text, nil
}

type fakeClipboard struct {
	mu       sync.Mutex
	lastText string
	err      error
}

func (f *fakeClipboard) SetText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText = text
	return f.err
}

func TestTranscriptExporterSuccess(t *testing.T) {
	t.Parallel()

	clipboard := &fakeClipboard{}
	e := NewTranscriptExporter(&fakeRules{transform: "FINAL"}, clipboard)

	result, err := e.Export(context.Background(), "  raw  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RawTranscript != "raw" || result.FinalTranscript != "FINAL" || !result.Copied {
		t.Fatalf("unexpected result: %+v", result)
	}
	if clipboard.lastText != "FINAL" {
		t.Fatalf("clipboard did not receive transformed transcript")
	}
}

func TestTranscriptExporterRulesFailure(t *testing.T) {
	t.Parallel()

	e := NewTranscriptExporter(&fakeRules{err: errors.New("rules")}, &fakeClipboard{})
	if _, err := e.Export(context.Background(), "raw"); err == nil {
		t.Fatalf("expected rules error")
	}
}

func TestTranscriptExporterClipboardFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	e := NewTranscriptExporter(&fakeRules{transform: "final"}, &fakeClipboard{err: errors.New("clipboard")})
	result, err := e.Export(context.Background(), "raw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Copied {
		t.Fatalf("expected copied=false")
	}
}

func TestTranscriptExporterEmptyTranscript(t *testing.T) {
	t.Parallel()

	e := NewTranscriptExporter(nil, nil)
	if _, err := e.Export(context.Background(), " \n "); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestFanoutSinkForwardsToEverySink(t *testing.T) {
	t.Parallel()

	a, b := &fakeEventSink{}, &fakeEventSink{}
	fan := FanoutSink{a, b}
	fan.TranscriptChanged("hello")
	fan.RecordingChanged(true)

	for _, sink := range []*fakeEventSink{a, b} {
		if sink.lastTranscript() != "hello" || !sink.lastRecording() {
			t.Fatalf("event not forwarded")
		}
	}
}
