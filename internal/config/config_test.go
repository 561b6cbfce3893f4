package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PDFSCRIBE_ENV_FILE", filepath.Join(home, "missing.env"))
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "PDFSCRIBE_REALTIME_URL", "PDFSCRIBE_TRANSCRIBE_MODEL",
		"PDFSCRIBE_LANGUAGE", "PDFSCRIBE_SUGGEST_MODEL", "PDFSCRIBE_SUGGEST_MAX_TOKENS",
		"PDFSCRIBE_SUGGEST_TEMPERATURE", "PDFSCRIBE_AUDIO_SOURCE", "PDFSCRIBE_FFMPEG_COMMAND",
		"PDFSCRIBE_AUDIO_INPUT_FORMAT", "PDFSCRIBE_AUDIO_INPUT_DEVICE", "PDFSCRIBE_ECHO_CANCEL_DEVICE",
		"PDFSCRIBE_ECHO_CANCELLATION", "PDFSCRIBE_NOISE_SUPPRESSION", "PDFSCRIBE_AUTO_GAIN_CONTROL",
		"PDFSCRIBE_PDF_DIR", "PDFSCRIBE_MAX_UPLOAD_MB", "PDFSCRIBE_ADDR", "PDFSCRIBE_SESSION_URL",
		"PDFSCRIBE_RULES_FILE", "PDFSCRIBE_RULE_ITERATION_LIMIT", "PDFSCRIBE_ASSIST_INTERVAL_MS",
		"PDFSCRIBE_ASSIST_TRANSCRIPT_CHARS", "PDFSCRIBE_LOG_LEVEL", "PDFSCRIBE_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.OpenAI.RealtimeURL != "wss://api.openai.com/v1/realtime?intent=transcription" {
		t.Fatalf("unexpected realtime url: %q", cfg.OpenAI.RealtimeURL)
	}
	if cfg.OpenAI.TranscribeModel != "gpt-4o-mini-transcribe" || cfg.OpenAI.Language != "en" {
		t.Fatalf("unexpected transcription defaults: %+v", cfg.OpenAI)
	}
	if cfg.OpenAI.SuggestModel != "gpt-4o" || cfg.OpenAI.SuggestMaxTokens != 500 || cfg.OpenAI.SuggestTemp != 0.7 {
		t.Fatalf("unexpected suggestion defaults: %+v", cfg.OpenAI)
	}
	if cfg.Audio.Source != AudioSourceBrowser || cfg.Audio.SampleRate != 24000 || cfg.Audio.Channels != 1 || cfg.Audio.BlockSize != 4096 {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if !cfg.Audio.EchoCancellation || !cfg.Audio.NoiseSuppression || !cfg.Audio.AutoGainControl {
		t.Fatalf("audio processing should default on: %+v", cfg.Audio)
	}
	if cfg.Storage.PDFDir != filepath.Join("public", "pdfs") || cfg.Storage.MaxUploadBytes != 50*1024*1024 {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Server.Addr != ":3000" || cfg.Server.SessionURL != "http://localhost:3000/api/session" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Rules.Path != "" || cfg.Rules.IterationLimit != 30 {
		t.Fatalf("unexpected rules defaults: %+v", cfg.Rules)
	}
	if cfg.Assist.Interval != 8*time.Second || cfg.Assist.TranscriptChars != 2000 {
		t.Fatalf("unexpected assist defaults: %+v", cfg.Assist)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadRespectsOverridesAndFallbacks(t *testing.T) {
	home := isolate(t)
	rules := filepath.Join(home, "my.rules")
	if err := os.WriteFile(rules, []byte("x => y\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", " sk-test ")
	t.Setenv("PDFSCRIBE_AUDIO_SOURCE", "FFmpeg")
	t.Setenv("PDFSCRIBE_AUDIO_INPUT_DEVICE", "hw:1")
	t.Setenv("PDFSCRIBE_NOISE_SUPPRESSION", "off")
	t.Setenv("PDFSCRIBE_SUGGEST_TEMPERATURE", "0.2")
	t.Setenv("PDFSCRIBE_MAX_UPLOAD_MB", "-1")
	t.Setenv("PDFSCRIBE_ADDR", "127.0.0.1:8080")
	t.Setenv("PDFSCRIBE_RULES_FILE", rules)
	t.Setenv("PDFSCRIBE_RULE_ITERATION_LIMIT", "not-a-number")
	t.Setenv("PDFSCRIBE_ASSIST_INTERVAL_MS", "1500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.OpenAI.APIKey != "sk-test" {
		t.Fatalf("unexpected api key: %q", cfg.OpenAI.APIKey)
	}
	if cfg.Audio.Source != AudioSourceFFMPEG || cfg.Audio.InputDevice != "hw:1" || cfg.Audio.NoiseSuppression {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.OpenAI.SuggestTemp != 0.2 {
		t.Fatalf("unexpected temperature: %v", cfg.OpenAI.SuggestTemp)
	}
	if cfg.Storage.MaxUploadBytes != 50*1024*1024 {
		t.Fatalf("expected upload limit fallback, got %d", cfg.Storage.MaxUploadBytes)
	}
	if cfg.Server.SessionURL != "http://127.0.0.1:8080/api/session" {
		t.Fatalf("unexpected session url: %q", cfg.Server.SessionURL)
	}
	if cfg.Rules.Path != rules || cfg.Rules.IterationLimit != 30 {
		t.Fatalf("unexpected rules config: %+v", cfg.Rules)
	}
	if cfg.Assist.Interval != 1500*time.Millisecond {
		t.Fatalf("unexpected assist interval: %v", cfg.Assist.Interval)
	}
}

func TestLoadUsesHomeRulesFile(t *testing.T) {
	home := isolate(t)
	rules := filepath.Join(home, ".config", "pdfscribe", "substitutions.rules")
	if err := os.MkdirAll(filepath.Dir(rules), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(rules, []byte("a => b\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Rules.Path != rules {
		t.Fatalf("expected home rules file, got %q", cfg.Rules.Path)
	}
}

func TestLoadRejectsUnknownAudioSource(t *testing.T) {
	isolate(t)
	t.Setenv("PDFSCRIBE_AUDIO_SOURCE", "webrtc")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown audio source")
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	home := isolate(t)
	envFile := filepath.Join(home, "test.env")
	if err := os.WriteFile(envFile, []byte("PDFSCRIBE_TEST_ONLY_MODEL=from-file\nPDFSCRIBE_LANGUAGE=fr\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("PDFSCRIBE_ENV_FILE", envFile)
	os.Unsetenv("PDFSCRIBE_LANGUAGE")
	t.Cleanup(func() {
		os.Unsetenv("PDFSCRIBE_TEST_ONLY_MODEL")
		os.Unsetenv("PDFSCRIBE_LANGUAGE")
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.OpenAI.Language != "fr" {
		t.Fatalf("expected language from env file, got %q", cfg.OpenAI.Language)
	}
	if os.Getenv("PDFSCRIBE_TEST_ONLY_MODEL") != "from-file" {
		t.Fatalf("expected env file to populate the environment")
	}
}
