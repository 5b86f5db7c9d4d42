package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	groqBaseURL = "https://api.groq.com/openai/v1"
	groqModel   = "llama-3.1-8b-instant"
)

// GroqConfig configures the secondary tier.
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GroqClient calls Groq's OpenAI-compatible chat completions endpoint.
type GroqClient struct {
	apiKey    string
	baseURL   string
	model     string
	client    *http.Client
	validator *ResponseValidator
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

func NewGroqClient(cfg GroqConfig) *GroqClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = groqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = groqModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GroqClient{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		client:    &http.Client{Timeout: cfg.Timeout},
		validator: NewResponseValidator(chatCompletionSchema),
	}
}

func (c *GroqClient) Name() string { return "groq" }

// Generate makes a single chat completion call.
func (c *GroqClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("groq: %w", ErrMissingAPIKey)
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: 0.7,
		MaxTokens:   1024,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	body, err := postJSON(ctx, c.client, c.Name(), c.baseURL+"/chat/completions", headers, payload)
	if err != nil {
		return "", err
	}

	if err := c.validator.Validate(body); err != nil {
		return "", fmt.Errorf("groq: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("groq: failed to decode response: %w", err)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
