// Command pdfscribe-harness streams the local microphone through a running
// pdfscribe server's credential endpoint and prints the live transcript.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdfscribe/internal/audio"
	"pdfscribe/internal/bootstrap"
	"pdfscribe/internal/config"
	"pdfscribe/internal/credential"
	"pdfscribe/internal/logging"
	"pdfscribe/internal/ports"
	"pdfscribe/internal/realtime"
	"pdfscribe/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pdfscribe-harness:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sessionURL := flag.String("session-url", cfg.Server.SessionURL, "credential endpoint of a running server")
	device := flag.String("device", cfg.Audio.InputDevice, "capture device passed to ffmpeg")
	duration := flag.Duration("duration", 0, "stop after this long (0 waits for Ctrl-C)")
	verbose := flag.Bool("v", false, "print protocol events")
	flag.Parse()

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	sink := newConsoleSink(os.Stdout, *verbose)
	session := usecase.NewSession(usecase.Deps{
		Credentials: credential.NewHTTPSource(*sessionURL, &http.Client{Timeout: 15 * time.Second}),
		Provider:    realtime.NewProvider(realtime.Config{URL: cfg.OpenAI.RealtimeURL}),
		Audio:       audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		Events:      sink,
	}, usecase.Config{
		Audio: ports.AudioConfig{
			SampleRate:       cfg.Audio.SampleRate,
			Channels:         cfg.Audio.Channels,
			InputFormat:      cfg.Audio.InputFormat,
			InputDevice:      *device,
			EchoCancelDevice: cfg.Audio.EchoCancelDevice,
			EchoCancellation: cfg.Audio.EchoCancellation,
			NoiseSuppression: cfg.Audio.NoiseSuppression,
			AutoGainControl:  cfg.Audio.AutoGainControl,
		},
		Transcription: bootstrap.TranscriptionConfig(cfg),
		BlockSize:     cfg.Audio.BlockSize,
	})
	defer session.Close()

	if err := session.FetchCredential(ctx); err != nil {
		return err
	}
	if err := session.Connect(ctx); err != nil {
		return err
	}
	if err := session.StartRecording(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "Listening. Press Ctrl-C to stop.")

	<-ctx.Done()
	session.StopRecording()
	session.Disconnect()

	snap := session.Snapshot()
	fmt.Fprintf(os.Stdout, "\n\nTranscript (%d events logged):\n%s\n", len(snap.EventLogs), snap.Transcript)
	return nil
}
