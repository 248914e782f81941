package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	openAIChatPath   = "/v1/chat/completions"
	openAIModelsPath = "/v1/models"
)

// OpenAIClient speaks the OpenAI chat-completions format. It also serves any
// OpenAI-compatible server (vLLM, LM Studio, ...) via a custom base URL.
type OpenAIClient struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewOpenAIClient constructs an OpenAI-compatible chat client.
func NewOpenAIClient(opts Options, logger zerolog.Logger) *OpenAIClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	return &OpenAIClient{
		opts:    opts,
		logger:  logger.With().Str("component", "llm_openai").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type openAIChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat sends a system+user prompt pair and returns the raw completion text.
func (c *OpenAIClient) Chat(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	payload := openAIChatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.opts.Temperature,
		MaxTokens:   800,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+openAIChatPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var chatResp openAIChatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if chatResp.Error != nil {
			return "", fmt.Errorf("openai api error (%d): %s", resp.StatusCode, chatResp.Error.Message)
		}
		return "", fmt.Errorf("openai api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Available probes the models endpoint.
func (c *OpenAIClient) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+openAIModelsPath, nil)
	if err != nil {
		return false
	}
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Msg("openai endpoint not available")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

var _ ChatProvider = (*OpenAIClient)(nil)
