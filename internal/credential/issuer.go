// Package credential issues and fetches ephemeral transcription credentials.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/logging"
)

const DefaultBaseURL = "https://api.openai.com/v1/"

var ErrNoAPIKey = errors.New("OPENAI_API_KEY is not configured")

// Grant is the token-issuing response: {client_secret: {value, expires_at}}.
type Grant struct {
	ClientSecret *ClientSecret `json:"client_secret,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type ClientSecret struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// Credential converts the grant, failing when the token field is absent.
func (g Grant) Credential() (domain.Credential, error) {
	if g.ClientSecret == nil || strings.TrimSpace(g.ClientSecret.Value) == "" {
		if g.Error != "" {
			return domain.Credential{}, domain.CredentialError("Failed to fetch ephemeral key", errors.New(g.Error))
		}
		return domain.Credential{}, domain.CredentialError("No ephemeral key provided by the server", nil)
	}
	cred := domain.Credential{Value: g.ClientSecret.Value}
	if g.ClientSecret.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(g.ClientSecret.ExpiresAt, 0)
	}
	return cred, nil
}

// IssuerConfig selects the transcription session defaults baked into issued tokens.
type IssuerConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	SilenceDurationMs int
}

// Issuer creates transcription sessions server-side with the long-lived API key.
type Issuer struct {
	cfg    IssuerConfig
	client openai.Client
	logger *slog.Logger
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini-transcribe"
	}
	if cfg.SilenceDurationMs <= 0 {
		cfg.SilenceDurationMs = 800
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)
	return &Issuer{cfg: cfg, client: client, logger: logging.For("credential")}
}

type transcriptionSessionRequest struct {
	InputAudioFormat        string `json:"input_audio_format"`
	InputAudioTranscription struct {
		Model string `json:"model"`
	} `json:"input_audio_transcription"`
	TurnDetection struct {
		Type              string `json:"type"`
		SilenceDurationMs int    `json:"silence_duration_ms"`
	} `json:"turn_detection"`
}

// Issue asks the speech service for a new ephemeral session token.
func (i *Issuer) Issue(ctx context.Context) (Grant, error) {
	if strings.TrimSpace(i.cfg.APIKey) == "" {
		return Grant{}, ErrNoAPIKey
	}

	var body transcriptionSessionRequest
	body.InputAudioFormat = "pcm16"
	body.InputAudioTranscription.Model = i.cfg.Model
	body.TurnDetection.Type = "server_vad"
	body.TurnDetection.SilenceDurationMs = i.cfg.SilenceDurationMs

	var grant Grant
	err := i.client.Post(ctx, "realtime/transcription_sessions", body, &grant,
		option.WithHeader("OpenAI-Beta", "assistants=v2"),
	)
	if err != nil {
		return Grant{}, fmt.Errorf("failed to create transcription session: %w", err)
	}
	return grant, nil
}

// Fetch implements ports.CredentialSource for in-process sessions.
func (i *Issuer) Fetch(ctx context.Context) (domain.Credential, error) {
	i.logger.Debug("fetch_session_token_request", "source", "issuer")
	grant, err := i.Issue(ctx)
	if err != nil {
		i.logger.Debug("fetch_session_token_response", "source", "issuer", "error", err)
		return domain.Credential{}, domain.CredentialError("Failed to fetch ephemeral key", err)
	}
	cred, err := grant.Credential()
	i.logger.Debug("fetch_session_token_response", "source", "issuer", "ok", err == nil)
	return cred, err
}
