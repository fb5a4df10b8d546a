package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// GroqBaseURL is the Groq chat completions endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1/chat/completions"

// DefaultRequestTimeout bounds a single completion call.
const DefaultRequestTimeout = 60 * time.Second

// APIError is a non-success answer from a provider API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("llm api error: status %d: %s", e.StatusCode, e.Message)
}

// GroqClient implements Client over the OpenAI-compatible Groq API.
type GroqClient struct {
	apiKey     string
	config     *Config
	httpClient *http.Client
}

// NewGroqClient creates a Groq client. config.BaseURL may point at a test
// server.
func NewGroqClient(config *Config, apiKey string) (*GroqClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if config == nil {
		config = DefaultGroqConfig()
	}
	return &GroqClient{
		apiKey:     apiKey,
		config:     config,
		httpClient: &http.Client{Timeout: DefaultRequestTimeout},
	}, nil
}

// WithHTTPClient replaces the HTTP client used for requests.
func (c *GroqClient) WithHTTPClient(hc *http.Client) *GroqClient {
	c.httpClient = hc
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GenerateContent sends one chat completion and returns the first choice.
func (c *GroqClient) GenerateContent(ctx context.Context, req Request) (string, error) {
	model := c.config.GetModel(req.Tier)
	if model == "" {
		return "", fmt.Errorf("no model configured for tier %s", req.Tier)
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{Model: model, Messages: messages, MaxTokens: req.MaxTokens}
	if req.Temperature > 0 {
		temp := req.Temperature
		body.Temperature = &temp
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := c.config.BaseURL
	if url == "" {
		url = GroqBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("groq request timeout: %w", err)
		}
		return "", fmt.Errorf("groq request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read groq response: %w", err)
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil && parsed.Error != nil {
			apiErr.Message = parsed.Error.Message
		}
		return "", apiErr
	}
	if decodeErr != nil {
		return "", fmt.Errorf("groq response parse: %w", decodeErr)
	}
	if parsed.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("groq response missing choices")
	}

	if parsed.Usage != nil {
		log.Printf("[AI] groq response model=%s prompt_tokens=%d completion_tokens=%d",
			model, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("groq response empty content")
	}
	return content, nil
}

// GenerateJSON sends a completion and extracts the JSON document from it.
func (c *GroqClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	text, err := c.GenerateContent(ctx, req)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// GetModel returns the model name for a tier
func (c *GroqClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (c *GroqClient) Close() error {
	return nil
}

var (
	_ Client = (*GroqClient)(nil)
	_ Client = (*GeminiClient)(nil)
)
