package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/logging"
	"pdfscribe/internal/ports"
)

var ErrInvalidFrame = errors.New("screen frame must be an image data URL")

// AssistConfig controls how often AI mode asks for suggestions.
type AssistConfig struct {
	Interval        time.Duration
	TranscriptChars int
	RequestTimeout  time.Duration
}

// TranscriptSource exposes the recent transcript to AI mode.
type TranscriptSource interface {
	TranscriptTail(n int) string
}

// Assistant periodically sends the transcript tail, the latest screen frame
// and the focused form field to the suggestion service.
type Assistant struct {
	transcript TranscriptSource
	suggester  ports.Suggester
	rules      ports.RulesEngine
	events     ports.EventSink
	cfg        AssistConfig
	logger     *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	focus   *domain.FieldFocus
	frame   string
	version uint64
	sent    assistInput
	hasSent bool
}

type assistInput struct {
	transcript string
	version    uint64
}

func NewAssistant(transcript TranscriptSource, suggester ports.Suggester, rules ports.RulesEngine, events ports.EventSink, cfg AssistConfig) *Assistant {
	if cfg.Interval <= 0 {
		cfg.Interval = 8 * time.Second
	}
	if cfg.TranscriptChars <= 0 {
		cfg.TranscriptChars = 2000
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if events == nil {
		events = noopSink{}
	}
	return &Assistant{
		transcript: transcript,
		suggester:  suggester,
		rules:      rules,
		events:     events,
		cfg:        cfg,
		logger:     logging.For("assist"),
	}
}

// Start begins the suggestion loop. Starting an active assistant is a no-op.
func (a *Assistant) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.done = make(chan struct{})
	a.hasSent = false
	go a.loop(loopCtx, a.done)
	a.logger.Info("ai mode started", "interval", a.cfg.Interval)
}

// Stop ends the loop and forgets the latest frame and focus.
func (a *Assistant) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.frame = ""
	a.focus = nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	a.logger.Info("ai mode stopped")
}

func (a *Assistant) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// SetFocus records the focused form field; nil clears it.
func (a *Assistant) SetFocus(focus *domain.FieldFocus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.focus = focus
	a.version++
}

// SubmitFrame replaces the latest screen frame.
func (a *Assistant) SubmitFrame(dataURL string) error {
	if !strings.HasPrefix(dataURL, "data:image/") || !strings.Contains(dataURL, ";base64,") {
		return ErrInvalidFrame
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frame = dataURL
	a.version++
	return nil
}

// SuggestNow builds a request from the current inputs and asks for a
// suggestion immediately. A ready suggestion is published to the sink.
func (a *Assistant) SuggestNow(ctx context.Context) (domain.Suggestion, error) {
	req, _, err := a.buildRequest()
	if err != nil {
		return domain.Suggestion{}, err
	}
	return a.request(ctx, req)
}

func (a *Assistant) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *Assistant) tick(ctx context.Context) {
	req, input, err := a.buildRequest()
	if err != nil {
		a.logger.Warn("transcript rules failed", "error", err)
		return
	}
	if req.Transcript == "" && req.ScreenImage == "" {
		return
	}

	a.mu.Lock()
	unchanged := a.hasSent && a.sent == input
	a.mu.Unlock()
	if unchanged {
		return
	}

	if _, err := a.request(ctx, req); err != nil {
		if ctx.Err() == nil {
			a.logger.Warn("suggestion request failed", "error", err)
		}
		return
	}

	// Only a delivered request counts, so failures are retried next tick.
	a.mu.Lock()
	a.sent = input
	a.hasSent = true
	a.mu.Unlock()
}

func (a *Assistant) buildRequest() (domain.SuggestionRequest, assistInput, error) {
	tail := strings.TrimSpace(a.transcript.TranscriptTail(a.cfg.TranscriptChars))
	input := assistInput{transcript: tail}
	if tail != "" && a.rules != nil {
		transformed, err := a.rules.Apply(tail)
		if err != nil {
			return domain.SuggestionRequest{}, input, err
		}
		tail = transformed
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	input.version = a.version
	req := domain.SuggestionRequest{Transcript: tail, ScreenImage: a.frame}
	if a.focus != nil {
		focus := *a.focus
		req.Annotation = &focus
	}
	return req, input, nil
}

func (a *Assistant) request(ctx context.Context, req domain.SuggestionRequest) (domain.Suggestion, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	suggestion, err := a.suggester.Suggest(reqCtx, req)
	if err != nil {
		return domain.Suggestion{}, err
	}
	if !suggestion.None {
		a.events.SuggestionReady(suggestion)
	}
	return suggestion, nil
}
