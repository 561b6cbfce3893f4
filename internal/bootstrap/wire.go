package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"pdfscribe/internal/api"
	"pdfscribe/internal/audio"
	"pdfscribe/internal/config"
	"pdfscribe/internal/credential"
	"pdfscribe/internal/logging"
	"pdfscribe/internal/pdfstore"
	"pdfscribe/internal/ports"
	"pdfscribe/internal/realtime"
	"pdfscribe/internal/rules"
	"pdfscribe/internal/suggest"
	"pdfscribe/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config    config.Config
	Logger    *slog.Logger
	Session   *usecase.Session
	Assistant *usecase.Assistant
	Exporter  usecase.TranscriptExporter
	Server    *api.Server
	Hub       *api.Hub
	// Feed is set when browsers supply the microphone audio.
	Feed *audio.Feed
}

// Options adapts the graph to the shell hosting it.
type Options struct {
	// Events receives session events in addition to socket clients.
	Events    ports.EventSink
	Clipboard ports.Clipboard
	// AudioSource overrides PDFSCRIBE_AUDIO_SOURCE when set.
	AudioSource string
}

// Build wires all backend dependencies for the current runtime.
func Build(ctx context.Context, opts Options) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	if opts.AudioSource != "" {
		cfg.Audio.Source = opts.AudioSource
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, fmt.Errorf("failed to load substitution rules: %w", err)
	}

	hub := api.NewHub()
	sinks := usecase.FanoutSink{hub}
	if opts.Events != nil {
		sinks = append(sinks, opts.Events)
	}

	var (
		capture ports.AudioCapture
		feed    *audio.Feed
	)
	switch cfg.Audio.Source {
	case config.AudioSourceFFMPEG:
		capture = audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand)
	default:
		feed = audio.NewFeed(0)
		capture = feed
	}

	issuer := credential.NewIssuer(credential.IssuerConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.TranscribeModel,
	})

	session := usecase.NewSession(usecase.Deps{
		Credentials: issuer,
		Provider:    realtime.NewProvider(realtime.Config{URL: cfg.OpenAI.RealtimeURL}),
		Audio:       capture,
		Events:      sinks,
	}, usecase.Config{
		Audio: ports.AudioConfig{
			SampleRate:       cfg.Audio.SampleRate,
			Channels:         cfg.Audio.Channels,
			InputFormat:      cfg.Audio.InputFormat,
			InputDevice:      cfg.Audio.InputDevice,
			EchoCancelDevice: cfg.Audio.EchoCancelDevice,
			EchoCancellation: cfg.Audio.EchoCancellation,
			NoiseSuppression: cfg.Audio.NoiseSuppression,
			AutoGainControl:  cfg.Audio.AutoGainControl,
		},
		Transcription: TranscriptionConfig(cfg),
		BlockSize:     cfg.Audio.BlockSize,
	})

	suggester := suggest.New(suggest.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.SuggestModel,
		MaxTokens:   cfg.OpenAI.SuggestMaxTokens,
		Temperature: cfg.OpenAI.SuggestTemp,
	})
	assistant := usecase.NewAssistant(session, suggester, rulesEngine, sinks, usecase.AssistConfig{
		Interval:        cfg.Assist.Interval,
		TranscriptChars: cfg.Assist.TranscriptChars,
	})

	deps := api.Deps{
		Store:     pdfstore.New(cfg.Storage.PDFDir),
		Issuer:    issuer,
		Suggester: suggester,
		Session:   session,
		Assistant: assistant,
		Hub:       hub,
	}
	if feed != nil {
		deps.Feed = feed
	}
	server := api.New(deps, api.Config{MaxUploadBytes: cfg.Storage.MaxUploadBytes, BaseContext: ctx})

	logger.Info("services ready",
		"audio_source", cfg.Audio.Source,
		"pdf_dir", cfg.Storage.PDFDir,
		"rules", rulesEngine.Len(),
		"openai_key", cfg.OpenAI.APIKey != "",
	)

	return Services{
		Config:    cfg,
		Logger:    logger,
		Session:   session,
		Assistant: assistant,
		Exporter:  usecase.NewTranscriptExporter(rulesEngine, opts.Clipboard),
		Server:    server,
		Hub:       hub,
		Feed:      feed,
	}, nil
}

// TranscriptionConfig is the configuration message sent on every connection.
func TranscriptionConfig(cfg config.Config) ports.TranscriptionConfig {
	return ports.TranscriptionConfig{
		Model:    cfg.OpenAI.TranscribeModel,
		Language: cfg.OpenAI.Language,
		TurnDetection: ports.TurnDetection{
			Type:              "server_vad",
			SilenceDurationMs: 800,
			Threshold:         0.5,
		},
	}
}

// Close stops AI mode and tears down the session.
func (s Services) Close() {
	if s.Assistant != nil {
		s.Assistant.Stop()
	}
	if s.Session != nil {
		s.Session.Close()
	}
}
