package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/saifjishan/chatmeme/internal/prompts"
)

// ChatService handles the general-purpose chat completion used for
// cooperative turns that are not meme requests, plus caption punch-up.
type ChatService struct {
	client   *resty.Client
	model    string
	endpoint string
}

// ChatConfig holds configuration for the chat service.
type ChatConfig struct {
	Model   string
	APIKey  string
	BaseURL string
}

// NewChatService creates a new chat service.
func NewChatService(cfg *ChatConfig) *ChatService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &ChatService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

// Complete forwards the prompt verbatim under the MemeGPT system prompt
// and returns the model's reply.
func (s *ChatService) Complete(ctx context.Context, prompt string) (string, error) {
	return s.call(ctx, prompts.ChatSystemPrompt, prompt, 500, 0.7)
}

// FormatCaption punches up a caption before drawing. Any failure keeps
// the original text; a bad formatting call must never abort the meme.
func (s *ChatService) FormatCaption(ctx context.Context, text string) string {
	formatted, err := s.call(ctx, prompts.CaptionFormatPrompt, text, 100, 0.7)
	if err != nil || strings.TrimSpace(formatted) == "" {
		return text
	}
	return strings.TrimSpace(formatted)
}

func (s *ChatService) call(ctx context.Context, system, user string, maxTokens int, temperature float32) (string, error) {
	req := llmRequest{
		Model: s.model,
		Messages: []llmMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var resp llmResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		return "", fmt.Errorf("failed to call chat API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != nil {
			return "", fmt.Errorf("chat API error: HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("chat API error: HTTP %d", httpResp.StatusCode())
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from chat API")
	}

	return resp.Choices[0].Message.Content, nil
}
