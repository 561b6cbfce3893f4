// Package suggest asks a chat model for form-filling hints.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/logging"
)

// NoSuggestion is the reply the model is told to give when it has nothing to add.
const NoSuggestion = "NO_SUGGESTION"

var (
	ErrEmptyRequest = errors.New("either transcript or screen image is required")
	ErrNoAPIKey     = errors.New("OPENAI_API_KEY is not configured")
)

const systemPrompt = "You are an AI assistant that helps users edit PDF forms efficiently. " +
	"Based on the user's voice transcript and/or screen image, provide helpful suggestions for " +
	"filling out or editing the current form field that has focus. Be concise and actionable. " +
	"If there is nothing useful to suggest, reply with exactly " + NoSuggestion + "."

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Client implements ports.Suggester with the chat completions API.
type Client struct {
	cfg    Config
	client *openai.Client
	logger *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &Client{cfg: cfg, client: openai.NewClientWithConfig(clientCfg), logger: logging.For("suggest")}
}

func (c *Client) Suggest(ctx context.Context, req domain.SuggestionRequest) (domain.Suggestion, error) {
	if strings.TrimSpace(req.Transcript) == "" && req.ScreenImage == "" {
		return domain.Suggestion{}, ErrEmptyRequest
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return domain.Suggestion{}, ErrNoAPIKey
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    BuildMessages(req),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("suggestion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.logger.Debug("suggestion empty", "model", resp.Model)
		return domain.Suggestion{None: true}, nil
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" || strings.EqualFold(text, NoSuggestion) {
		return domain.Suggestion{None: true}, nil
	}
	c.logger.Debug("suggestion ready", "model", resp.Model, "tokens", resp.Usage.TotalTokens)
	return domain.Suggestion{Text: text}, nil
}

// BuildMessages lays out the prompt: instructions, field context, what the
// user said, the screenshot and the closing question.
func BuildMessages(req domain.SuggestionRequest) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}

	if req.Annotation != nil {
		field, _ := json.MarshalIndent(req.Annotation, "", "  ")
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: "Current form field context: " + string(field),
		})
	}

	if transcript := strings.TrimSpace(req.Transcript); transcript != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: `Here's what the user has been saying: "` + transcript + `"`,
		})
	}

	if req.ScreenImage != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: "Here's a screenshot of the current screen:"},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    req.ScreenImage,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		})
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: "Based on the context above, what suggestions do you have for editing the current form field? Provide specific, actionable advice.",
	})
}
