package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pdfscribe/internal/domain"
)

const testFrame = "data:image/jpeg;base64,/9j/4AAQ"

type staticTranscript struct {
	mu   sync.Mutex
	text string
}

func (s *staticTranscript) set(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
}

func (s *staticTranscript) TranscriptTail(n int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.text) > n {
		return s.text[len(s.text)-n:]
	}
	return s.text
}

type fakeSuggester struct {
	mu       sync.Mutex
	requests []domain.SuggestionRequest
	reply    domain.Suggestion
	err      error
}

func (f *fakeSuggester) Suggest(_ context.Context, req domain.SuggestionRequest) (domain.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeSuggester) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSuggester) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeSuggester) last() domain.SuggestionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func TestAssistantSkipsUnchangedInputs(t *testing.T) {
	t.Parallel()

	transcript := &staticTranscript{text: "my name is jane"}
	suggester := &fakeSuggester{reply: domain.Suggestion{Text: "Fill in Jane"}}
	sink := &fakeEventSink{}
	a := NewAssistant(transcript, suggester, nil, sink, AssistConfig{Interval: 5 * time.Millisecond})

	a.Start(context.Background())
	defer a.Stop()

	waitFor(t, func() bool { return suggester.count() >= 1 })
	time.Sleep(30 * time.Millisecond)
	if got := suggester.count(); got != 1 {
		t.Fatalf("expected a single request for unchanged inputs, got %d", got)
	}

	transcript.set("my name is jane doe")
	waitFor(t, func() bool { return suggester.count() == 2 })

	if err := a.SubmitFrame(testFrame); err != nil {
		t.Fatalf("submit frame: %v", err)
	}
	waitFor(t, func() bool { return suggester.count() == 3 })
	if got := suggester.last().ScreenImage; got != testFrame {
		t.Fatalf("frame not forwarded: %q", got)
	}
	waitFor(t, func() bool { return sink.suggestionCount() == 3 })
}

func TestAssistantIdleWithoutInputs(t *testing.T) {
	t.Parallel()

	suggester := &fakeSuggester{}
	a := NewAssistant(&staticTranscript{}, suggester, nil, nil, AssistConfig{Interval: 5 * time.Millisecond})
	a.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	a.Stop()

	if suggester.count() != 0 {
		t.Fatalf("expected no requests without transcript or frame")
	}
}

func TestAssistantAppliesRulesAndFocus(t *testing.T) {
	t.Parallel()

	suggester := &fakeSuggester{reply: domain.Suggestion{None: true}}
	sink := &fakeEventSink{}
	a := NewAssistant(&staticTranscript{text: "raw words"}, suggester, &fakeRules{transform: "clean words"}, sink, AssistConfig{})
	a.SetFocus(&domain.FieldFocus{FieldName: "first_name", Page: 1})

	suggestion, err := a.SuggestNow(context.Background())
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if !suggestion.None {
		t.Fatalf("expected the no-suggestion sentinel")
	}
	req := suggester.last()
	if req.Transcript != "clean words" {
		t.Fatalf("rules not applied: %q", req.Transcript)
	}
	if req.Annotation == nil || req.Annotation.FieldName != "first_name" {
		t.Fatalf("focus not forwarded: %+v", req.Annotation)
	}
	if sink.suggestionCount() != 0 {
		t.Fatalf("no-suggestion replies must not be published")
	}
}

func TestAssistantTranscriptTailLimit(t *testing.T) {
	t.Parallel()

	suggester := &fakeSuggester{}
	long := strings.Repeat("a", 50) + strings.Repeat("b", 10)
	a := NewAssistant(&staticTranscript{text: long}, suggester, nil, nil, AssistConfig{TranscriptChars: 10})

	if _, err := a.SuggestNow(context.Background()); err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if got := suggester.last().Transcript; got != strings.Repeat("b", 10) {
		t.Fatalf("unexpected tail: %q", got)
	}
}

func TestAssistantRejectsInvalidFrame(t *testing.T) {
	t.Parallel()

	a := NewAssistant(&staticTranscript{}, &fakeSuggester{}, nil, nil, AssistConfig{})
	if err := a.SubmitFrame("not-an-image"); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestAssistantStartStop(t *testing.T) {
	t.Parallel()

	a := NewAssistant(&staticTranscript{}, &fakeSuggester{}, nil, nil, AssistConfig{Interval: time.Hour})
	a.Stop()
	a.Start(context.Background())
	a.Start(context.Background())
	if !a.Active() {
		t.Fatalf("expected active assistant")
	}
	a.Stop()
	a.Stop()
	if a.Active() {
		t.Fatalf("expected inactive assistant")
	}
}

func TestAssistantSuggesterFailure(t *testing.T) {
	t.Parallel()

	a := NewAssistant(&staticTranscript{text: "hi"}, &fakeSuggester{err: errors.New("quota")}, nil, nil, AssistConfig{})
	if _, err := a.SuggestNow(context.Background()); err == nil {
		t.Fatalf("expected suggester error")
	}
}

func TestAssistantRetriesUnchangedInputsAfterFailure(t *testing.T) {
	t.Parallel()

	suggester := &fakeSuggester{reply: domain.Suggestion{Text: "Fill in Jane"}}
	suggester.fail(errors.New("upstream 503"))
	sink := &fakeEventSink{}
	a := NewAssistant(&staticTranscript{text: "my name is jane"}, suggester, nil, sink, AssistConfig{Interval: 5 * time.Millisecond})

	a.Start(context.Background())
	defer a.Stop()

	waitFor(t, func() bool { return suggester.count() >= 3 })
	if sink.suggestionCount() != 0 {
		t.Fatalf("failed requests must not publish suggestions")
	}

	suggester.fail(nil)
	waitFor(t, func() bool { return sink.suggestionCount() == 1 })
	settled := suggester.count()
	time.Sleep(30 * time.Millisecond)
	if got := suggester.count(); got != settled {
		t.Fatalf("expected no requests after a delivered suggestion, got %d more", got-settled)
	}
}
