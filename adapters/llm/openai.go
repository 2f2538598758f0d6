package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"xceldash/internal/config"
	"xceldash/ports"

	"github.com/tidwall/gjson"
)

// OpenAIClient implements ports.LLMClient against the OpenAI chat completions API
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	httpClient  *http.Client
}

// NewOpenAIClient creates an OpenAI-backed LLM client
func NewOpenAIClient(cfg config.AIConfig) *OpenAIClient {
	log.Printf("[OpenAIClient] Initializing with model=%s, temp=%.2f, maxTokens=%d, timeout=%s",
		cfg.Model, cfg.Temperature, cfg.MaxTokens, cfg.Timeout)

	return &OpenAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model               string          `json:"model"`
	Messages            []chatMessage   `json:"messages"`
	Temperature         float64         `json:"temperature,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

// ChatCompletion sends a chat completion request with JSON output enforced
func (c *OpenAIClient) ChatCompletion(ctx context.Context, systemMessage, prompt string) (*ports.LLMResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: prompt},
		},
		Temperature:         c.temperature,
		MaxCompletionTokens: c.maxTokens,
		ResponseFormat:      &responseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	log.Printf("[OpenAIClient] Sending request to %s - promptLength=%d", c.model, len(prompt))

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("request timeout after %v: %w", c.timeout, err)
		}
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, string(body))
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() || content.String() == "" {
		return nil, fmt.Errorf("no choices in OpenAI response\nRaw response: %s", string(body))
	}

	return &ports.LLMResponse{
		Content: content.String(),
		Usage: &ports.UsageData{
			PromptTokens:     int(gjson.GetBytes(body, "usage.prompt_tokens").Int()),
			CompletionTokens: int(gjson.GetBytes(body, "usage.completion_tokens").Int()),
			TotalTokens:      int(gjson.GetBytes(body, "usage.total_tokens").Int()),
			Model:            c.model,
		},
	}, nil
}
