package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the server, desktop shell and harness.
type Config struct {
	OpenAI  OpenAIConfig
	Audio   AudioConfig
	Storage StorageConfig
	Server  ServerConfig
	Rules   RulesConfig
	Assist  AssistConfig
	Log     LogConfig
}

type OpenAIConfig struct {
	APIKey           string
	BaseURL          string
	RealtimeURL      string
	TranscribeModel  string
	Language         string
	SuggestModel     string
	SuggestMaxTokens int
	SuggestTemp      float32
}

// AudioConfig selects the capture source. Sample rate, channel count and
// block size are fixed by the transcription protocol.
type AudioConfig struct {
	Source           string
	RecorderCommand  string
	InputFormat      string
	InputDevice      string
	EchoCancelDevice string
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	SampleRate       int
	Channels         int
	BlockSize        int
}

type StorageConfig struct {
	PDFDir         string
	MaxUploadBytes int
}

type ServerConfig struct {
	Addr       string
	SessionURL string
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

type AssistConfig struct {
	Interval        time.Duration
	TranscriptChars int
}

type LogConfig struct {
	Level  string
	Format string
}

const (
	AudioSourceBrowser = "browser"
	AudioSourceFFMPEG  = "ffmpeg"
)

// Load reads an optional .env file (PDFSCRIBE_ENV_FILE or ./.env) and then
// resolves configuration from the environment. Variables already set win
// over the file.
func Load() (Config, error) {
	envFile := envOrDefault("PDFSCRIBE_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	rulesPath := strings.TrimSpace(os.Getenv("PDFSCRIBE_RULES_FILE"))
	if rulesPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			rulesPath = firstExisting(filepath.Join(home, ".config", "pdfscribe", "substitutions.rules"))
		}
	}

	addr := envOrDefault("PDFSCRIBE_ADDR", ":3000")
	cfg := Config{
		OpenAI: OpenAIConfig{
			APIKey:           strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL:          envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1/"),
			RealtimeURL:      envOrDefault("PDFSCRIBE_REALTIME_URL", "wss://api.openai.com/v1/realtime?intent=transcription"),
			TranscribeModel:  envOrDefault("PDFSCRIBE_TRANSCRIBE_MODEL", "gpt-4o-mini-transcribe"),
			Language:         envOrDefault("PDFSCRIBE_LANGUAGE", "en"),
			SuggestModel:     envOrDefault("PDFSCRIBE_SUGGEST_MODEL", "gpt-4o"),
			SuggestMaxTokens: envOrDefaultInt("PDFSCRIBE_SUGGEST_MAX_TOKENS", 500),
			SuggestTemp:      float32(envOrDefaultFloat("PDFSCRIBE_SUGGEST_TEMPERATURE", 0.7)),
		},
		Audio: AudioConfig{
			Source:           strings.ToLower(envOrDefault("PDFSCRIBE_AUDIO_SOURCE", AudioSourceBrowser)),
			RecorderCommand:  envOrDefault("PDFSCRIBE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:      envOrDefault("PDFSCRIBE_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:      envOrDefault("PDFSCRIBE_AUDIO_INPUT_DEVICE", "default"),
			EchoCancelDevice: strings.TrimSpace(os.Getenv("PDFSCRIBE_ECHO_CANCEL_DEVICE")),
			EchoCancellation: envOrDefaultBool("PDFSCRIBE_ECHO_CANCELLATION", true),
			NoiseSuppression: envOrDefaultBool("PDFSCRIBE_NOISE_SUPPRESSION", true),
			AutoGainControl:  envOrDefaultBool("PDFSCRIBE_AUTO_GAIN_CONTROL", true),
			SampleRate:       24000,
			Channels:         1,
			BlockSize:        4096,
		},
		Storage: StorageConfig{
			PDFDir:         envOrDefault("PDFSCRIBE_PDF_DIR", filepath.Join("public", "pdfs")),
			MaxUploadBytes: envOrDefaultInt("PDFSCRIBE_MAX_UPLOAD_MB", 50) * 1024 * 1024,
		},
		Server: ServerConfig{
			Addr:       addr,
			SessionURL: envOrDefault("PDFSCRIBE_SESSION_URL", "http://"+localAddr(addr)+"/api/session"),
		},
		Rules: RulesConfig{
			Path:           rulesPath,
			IterationLimit: envOrDefaultInt("PDFSCRIBE_RULE_ITERATION_LIMIT", 30),
		},
		Assist: AssistConfig{
			Interval:        time.Duration(envOrDefaultInt("PDFSCRIBE_ASSIST_INTERVAL_MS", 8000)) * time.Millisecond,
			TranscriptChars: envOrDefaultInt("PDFSCRIBE_ASSIST_TRANSCRIPT_CHARS", 2000),
		},
		Log: LogConfig{
			Level:  envOrDefault("PDFSCRIBE_LOG_LEVEL", "info"),
			Format: envOrDefault("PDFSCRIBE_LOG_FORMAT", "text"),
		},
	}

	if cfg.Audio.Source != AudioSourceBrowser && cfg.Audio.Source != AudioSourceFFMPEG {
		return Config{}, fmt.Errorf("PDFSCRIBE_AUDIO_SOURCE must be %q or %q, got %q", AudioSourceBrowser, AudioSourceFFMPEG, cfg.Audio.Source)
	}
	if cfg.OpenAI.SuggestMaxTokens <= 0 {
		cfg.OpenAI.SuggestMaxTokens = 500
	}
	if cfg.Storage.MaxUploadBytes <= 0 {
		cfg.Storage.MaxUploadBytes = 50 * 1024 * 1024
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Assist.Interval <= 0 {
		cfg.Assist.Interval = 8 * time.Second
	}
	if cfg.Assist.TranscriptChars <= 0 {
		cfg.Assist.TranscriptChars = 2000
	}

	return cfg, nil
}

func localAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
