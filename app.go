package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"pdfscribe/internal/bootstrap"
	"pdfscribe/internal/config"
	"pdfscribe/internal/domain"
)

const (
	eventStatus     = "pdfscribe:status"
	eventConnection = "pdfscribe:connection"
	eventRecording  = "pdfscribe:recording"
	eventTranscript = "pdfscribe:transcript"
	eventLog        = "pdfscribe:log"
	eventLogCleared = "pdfscribe:log-cleared"
	eventError      = "pdfscribe:error"
	eventSuggestion = "pdfscribe:suggestion"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	api *apiProxy

	mu       sync.RWMutex
	services *bootstrap.Services
	bootErr  error
}

func NewApp() *App {
	return &App{api: &apiProxy{}}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(ctx, bootstrap.Options{
		Events:      a,
		Clipboard:   &wailsClipboard{},
		AudioSource: config.AudioSourceFFMPEG,
	})
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.bootErr = err
		a.emit(eventError, map[string]string{"kind": "startup", "message": "Startup failed", "detail": err.Error()})
		return
	}
	a.services = &services
	if a.api != nil {
		a.api.set(adaptor.FiberApp(services.Server.App()))
	}
}

func (a *App) shutdown(_ context.Context) {
	a.mu.RLock()
	services := a.services
	a.mu.RUnlock()
	if services != nil {
		services.Close()
	}
}

// apiProxy routes the webview's /api requests to the HTTP API once it exists.
type apiProxy struct {
	mu      sync.RWMutex
	handler http.Handler
}

func (p *apiProxy) set(handler http.Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
}

func (p *apiProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.RLock()
	handler := p.handler
	p.mu.RUnlock()
	if handler == nil {
		http.Error(w, "application is not initialized", http.StatusServiceUnavailable)
		return
	}
	handler.ServeHTTP(w, r)
}

// FetchCredential obtains a fresh ephemeral credential.
func (a *App) FetchCredential() (domain.Snapshot, error) {
	services, err := a.requireReady()
	if err != nil {
		return domain.Snapshot{}, err
	}
	err = services.Session.FetchCredential(a.ctx)
	return services.Session.Snapshot(), err
}

// Connect opens the transcription transport with the held credential.
func (a *App) Connect() (domain.Snapshot, error) {
	services, err := a.requireReady()
	if err != nil {
		return domain.Snapshot{}, err
	}
	err = services.Session.Connect(a.ctx)
	return services.Session.Snapshot(), err
}

func (a *App) Disconnect() (domain.Snapshot, error) {
	services, err := a.requireReady()
	if err != nil {
		return domain.Snapshot{}, err
	}
	services.Session.Disconnect()
	return services.Session.Snapshot(), nil
}

// StartRecording starts streaming microphone audio.
func (a *App) StartRecording() (domain.Snapshot, error) {
	services, err := a.requireReady()
	if err != nil {
		return domain.Snapshot{}, err
	}
	err = services.Session.StartRecording(a.ctx)
	return services.Session.Snapshot(), err
}

func (a *App) StopRecording() (domain.Snapshot, error) {
	services, err := a.requireReady()
	if err != nil {
		return domain.Snapshot{}, err
	}
	services.Session.StopRecording()
	return services.Session.Snapshot(), nil
}

func (a *App) ClearTranscript() error {
	services, err := a.requireReady()
	if err != nil {
		return err
	}
	services.Session.ClearTranscript()
	return nil
}

func (a *App) ClearLogs() error {
	services, err := a.requireReady()
	if err != nil {
		return err
	}
	services.Session.ClearLogs()
	return nil
}

func (a *App) ClearError() error {
	services, err := a.requireReady()
	if err != nil {
		return err
	}
	services.Session.ClearError()
	return nil
}

// GetSnapshot returns the current session state.
func (a *App) GetSnapshot() domain.Snapshot {
	services, err := a.requireReady()
	if err != nil {
		return domain.Snapshot{Status: domain.SessionStatusDisconnected, Error: err.Error(), EventLogs: []domain.LogEntry{}}
	}
	return services.Session.Snapshot()
}

// ExportTranscript applies substitution rules and copies the transcript.
func (a *App) ExportTranscript() (domain.ExportResult, error) {
	services, err := a.requireReady()
	if err != nil {
		return domain.ExportResult{}, err
	}
	return services.Exporter.Export(a.ctx, services.Session.Transcript())
}

// SetAIMode turns periodic suggestions on or off.
func (a *App) SetAIMode(enabled bool) (bool, error) {
	services, err := a.requireReady()
	if err != nil {
		return false, err
	}
	if enabled {
		services.Assistant.Start(a.ctx)
	} else {
		services.Assistant.Stop()
	}
	return services.Assistant.Active(), nil
}

func (a *App) SubmitFrame(dataURL string) error {
	services, err := a.requireReady()
	if err != nil {
		return err
	}
	return services.Assistant.SubmitFrame(dataURL)
}

func (a *App) SetFocus(focus *domain.FieldFocus) error {
	services, err := a.requireReady()
	if err != nil {
		return err
	}
	services.Assistant.SetFocus(focus)
	return nil
}

// SuggestNow asks for a suggestion from the current inputs.
func (a *App) SuggestNow() (domain.Suggestion, error) {
	services, err := a.requireReady()
	if err != nil {
		return domain.Suggestion{}, err
	}
	return services.Assistant.SuggestNow(a.ctx)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	services, err := a.requireReady()
	if err != nil {
		return map[string]string{"error": err.Error()}
	}

	cfg := services.Config
	return map[string]string{
		"provider":         "OpenAI Realtime",
		"model":            cfg.OpenAI.TranscribeModel,
		"language":         cfg.OpenAI.Language,
		"suggestModel":     cfg.OpenAI.SuggestModel,
		"rulesFile":        cfg.Rules.Path,
		"pdfDir":           cfg.Storage.PDFDir,
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() (*bootstrap.Services, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.bootErr != nil {
		return nil, a.bootErr
	}
	if a.services == nil {
		return nil, fmt.Errorf("application is not initialized")
	}
	return a.services, nil
}

func (a *App) emit(name string, data any) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, data)
}

func (a *App) SessionStatusChanged(status domain.SessionStatus) {
	a.emit(eventStatus, map[string]string{"status": string(status)})
}

func (a *App) ConnectionChanged(connected bool) {
	a.emit(eventConnection, map[string]bool{"connected": connected})
}

func (a *App) RecordingChanged(recording bool) {
	a.emit(eventRecording, map[string]bool{"recording": recording})
}

func (a *App) TranscriptChanged(transcript string) {
	a.emit(eventTranscript, map[string]string{"transcript": transcript})
}

func (a *App) EventLogged(entry domain.LogEntry) {
	a.emit(eventLog, entry)
}

func (a *App) EventLogCleared() {
	a.emit(eventLogCleared, nil)
}

// SessionError emits backend errors to the UI. An empty message clears.
func (a *App) SessionError(kind domain.ErrorKind, message string) {
	a.emit(eventError, map[string]string{
		"kind":    string(kind),
		"message": message,
		"title":   errorTitle(kind, message),
	})
}

func (a *App) SuggestionReady(suggestion domain.Suggestion) {
	a.emit(eventSuggestion, suggestion)
}

func errorTitle(kind domain.ErrorKind, message string) string {
	if message == "" {
		return ""
	}
	switch kind {
	case domain.ErrorKindCredential:
		return "Session key error"
	case domain.ErrorKindConnection:
		return "Connection error"
	case domain.ErrorKindRecording:
		return "Microphone error"
	case domain.ErrorKindProtocol:
		return "Transcription error"
	default:
		return "Unknown error"
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
